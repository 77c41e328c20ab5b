package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

func newServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if handler != nil {
			handler(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func hold(d time.Duration) func(*websocket.Conn) {
	return func(*websocket.Conn) { time.Sleep(d) }
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{Name: "test"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}

func TestClient_Connect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newClient(t, wsURL(newServer(t, hold(200*time.Millisecond))))

		require.NoError(t, c.Connect(testCtx(t)))
		assert.Equal(t, StateConnected, c.State())
		assert.True(t, c.IsConnected())

		// second call is a no-op
		require.NoError(t, c.Connect(testCtx(t)))
	})

	t.Run("unreachable", func(t *testing.T) {
		c := newClient(t, "ws://127.0.0.1:1")

		err := c.Connect(testCtx(t))
		assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketConnectionError))
		assert.Equal(t, StateDisconnected, c.State())
	})

	t.Run("after close", func(t *testing.T) {
		c := newClient(t, "ws://127.0.0.1:1")
		require.NoError(t, c.Close())

		err := c.Connect(testCtx(t))
		assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketClosed))
	})
}

func TestClient_SendJSON_LogsSubscribe(t *testing.T) {
	got := make(chan []byte, 1)
	srv := newServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.Read(context.Background())
		if err == nil {
			got <- data
		}
	})
	c := newClient(t, wsURL(srv))
	require.NoError(t, c.Connect(testCtx(t)))

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "logsSubscribe",
		"params":  []any{map[string][]string{"mentions": {"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"}}, map[string]string{"commitment": "confirmed"}},
	}
	require.NoError(t, c.SendJSON(testCtx(t), req))

	select {
	case data := <-got:
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, "logsSubscribe", parsed["method"])
		assert.EqualValues(t, 7, parsed["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
	}
}

func TestClient_SendJSON_Unmarshalable(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1")
	err := c.SendJSON(context.Background(), map[string]any{"bad": make(chan int)})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidFormat))
}

func TestClient_DeliversFramesInOrder(t *testing.T) {
	srv := newServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		for _, n := range []string{"1", "2", "3"} {
			frame := `{"method":"logsNotification","params":{"subscription":` + n + `}}`
			if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	})
	c := newClient(t, wsURL(srv))

	var mu sync.Mutex
	var subs []float64
	c.OnMessage(func(_ context.Context, msg []byte) {
		var n struct {
			Params struct {
				Subscription float64 `json:"subscription"`
			} `json:"params"`
		}
		if json.Unmarshal(msg, &n) == nil {
			mu.Lock()
			subs = append(subs, n.Params.Subscription)
			mu.Unlock()
		}
	})
	require.NoError(t, c.Connect(testCtx(t)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(subs) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []float64{1, 2, 3}, subs)
	mu.Unlock()
}

func TestClient_StateTransitions(t *testing.T) {
	c := newClient(t, wsURL(newServer(t, hold(200*time.Millisecond))))

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, c.Connect(testCtx(t)))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateClosed}, states)
	assert.Equal(t, StateClosed, c.State())
}

func TestClient_ConcurrentSend(t *testing.T) {
	var received atomic.Int32
	srv := newServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			received.Add(1)
		}
	})
	c := newClient(t, wsURL(srv))
	require.NoError(t, c.Connect(testCtx(t)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Send(context.Background(), []byte(`{"jsonrpc":"2.0","method":"ping"}`)))
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return received.Load() == 20 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReadLimitDropsConnection(t *testing.T) {
	srv := newServer(t, func(conn *websocket.Conn) {
		_ = conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("x", 2048)))
		time.Sleep(200 * time.Millisecond)
	})

	cfg := DefaultConfig(wsURL(srv), "test")
	cfg.PingInterval = 0
	cfg.MaxMessageSize = 512
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	var delivered atomic.Bool
	c.OnMessage(func(context.Context, []byte) { delivered.Store(true) })
	require.NoError(t, c.Connect(testCtx(t)))

	assert.Eventually(t, func() bool { return c.State() == StateDisconnected }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, delivered.Load())
}

func TestClient_SendWhileDisconnected(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1")
	err := c.Send(context.Background(), []byte("x"))
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketClosed))
}

func TestClient_ConnectWithRetry(t *testing.T) {
	t.Run("gives up after the attempt budget", func(t *testing.T) {
		cfg := DefaultConfig("ws://127.0.0.1:1", "test")
		cfg.PingInterval = 0
		cfg.InitialBackoff = 10 * time.Millisecond
		cfg.MaxReconnects = 3
		c, err := New(cfg)
		require.NoError(t, err)
		defer c.Close()

		var reconnecting atomic.Int32
		c.OnStateChange(func(s State, _ error) {
			if s == StateReconnecting {
				reconnecting.Add(1)
			}
		})

		require.Error(t, c.ConnectWithRetry(testCtx(t)))
		assert.EqualValues(t, 2, reconnecting.Load())
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		cfg := DefaultConfig("ws://127.0.0.1:1", "test")
		cfg.PingInterval = 0
		cfg.InitialBackoff = time.Hour
		cfg.MaxReconnects = 0
		c, err := New(cfg)
		require.NoError(t, err)
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = c.ConnectWithRetry(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("succeeds", func(t *testing.T) {
		c := newClient(t, wsURL(newServer(t, hold(200*time.Millisecond))))
		require.NoError(t, c.ConnectWithRetry(testCtx(t)))
		assert.True(t, c.IsConnected())
	})
}

func TestClient_PeerCloseNotifiesObserver(t *testing.T) {
	c := newClient(t, wsURL(newServer(t, hold(20*time.Millisecond))))

	dropped := make(chan error, 1)
	c.OnStateChange(func(s State, err error) {
		if s == StateDisconnected {
			select {
			case dropped <- err:
			default:
			}
		}
	})
	require.NoError(t, c.Connect(testCtx(t)))

	select {
	case err := <-dropped:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect notification")
	}
}
