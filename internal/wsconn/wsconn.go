// Package wsconn provides a WebSocket client with a state machine, keep-alive
// pings and dial retries on top of github.com/coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	ReadTimeout    time.Duration // 0 = no per-read deadline
	WriteTimeout   time.Duration
	PingInterval   time.Duration // 0 = no keep-alive pings
	MaxMessageSize int64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // dial attempts for ConnectWithRetry, 0 = until ctx is done
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		ReadTimeout:    0,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4 << 20,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  5,
	}
}

// MessageHandler receives every inbound data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions. err is set on failures.
type StateHandler func(state State, err error)

// Client is a WebSocket client. Inbound frames are delivered to the
// message handler from a single read goroutine, in arrival order.
type Client struct {
	config Config

	connMu sync.RWMutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	stateMu sync.RWMutex
	state   State

	handlerMu     sync.RWMutex
	onMessage     MessageHandler
	onStateChange StateHandler

	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("websocket url is required"))
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	return &Client{
		config: config,
		state:  StateDisconnected,
	}, nil
}

// OnMessage registers the inbound frame handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = h
	c.handlerMu.Unlock()
}

// OnStateChange registers the state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlerMu.Lock()
	c.onStateChange = h
	c.handlerMu.Unlock()
}

// Connect dials the server and starts the read and ping loops.
// It is a no-op while already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	if c.IsConnected() {
		return nil
	}

	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: dial %s", c.config.Name, c.config.URL)))
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c.connMu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.connMu.Unlock()

	c.setState(StateConnected, nil)

	go c.readLoop(loopCtx, conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(loopCtx, conn)
	}
	return nil
}

// ConnectWithRetry dials with exponential backoff. It gives up early once
// the client is closed, ctx is done or the attempt budget is spent.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = c.Connect(ctx); lastErr == nil {
			return nil
		}
		if c.closed.Load() {
			return lastErr
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return lastErr
		}

		c.setState(StateReconnecting, lastErr)

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		case <-time.After(backoff):
		}

		backoff *= 2
		if c.config.MaxBackoff > 0 && backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || !c.IsConnected() {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext(c.config.Name+": not connected"))
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON encodes v and writes it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("marshal websocket payload"))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.connMu.Lock()
		conn, cancel := c.conn, c.cancel
		c.conn, c.cancel = nil, nil
		c.connMu.Unlock()

		if cancel != nil {
			cancel()
		}
		if conn != nil {
			// The peer may already be gone; the close handshake is best effort.
			_ = conn.Close(websocket.StatusNormalClosure, "client closing")
		}

		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		readCtx := ctx
		var cancel context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}

		_, data, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			c.dropConnection(conn, err)
			return
		}

		c.handlerMu.RLock()
		h := c.onMessage
		c.handlerMu.RUnlock()

		if h != nil {
			h(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.dropConnection(conn, err)
				return
			}
		}
	}
}

// dropConnection tears down conn after a read or ping failure.
func (c *Client) dropConnection(conn *websocket.Conn, cause error) {
	if c.closed.Load() {
		return
	}

	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	cancel := c.cancel
	c.conn, c.cancel = nil, nil
	c.connMu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = conn.CloseNow()

	c.setState(StateDisconnected, cause)
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed && state != StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.stateMu.Unlock()

	c.handlerMu.RLock()
	h := c.onStateChange
	c.handlerMu.RUnlock()

	if h != nil {
		h(state, err)
	}
}
