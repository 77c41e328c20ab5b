package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

type fakeQuery struct {
	mu      sync.Mutex
	calls   map[string]int
	reserve int64
	fail    map[string]error
	delay   time.Duration
	active  atomic.Int32
	peak    atomic.Int32
}

func newFakeQuery() *fakeQuery {
	return &fakeQuery{calls: make(map[string]int), reserve: 1000, fail: make(map[string]error)}
}

func (f *fakeQuery) QueryPool(_ context.Context, id string) (domain.PoolState, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err := f.fail[id]; err != nil {
		return domain.PoolState{}, err
	}
	return domain.PoolState{
		ID:       id,
		TokenA:   "A",
		TokenB:   "B",
		ReserveA: decimal.NewFromInt(f.reserve),
		ReserveB: decimal.NewFromInt(500),
		FeeRate:  decimal.RequireFromString("0.003"),
	}, nil
}

func (f *fakeQuery) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type memMirror struct {
	mu    sync.Mutex
	saved map[string]domain.PoolState
}

func (m *memMirror) Save(_ context.Context, s domain.PoolState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[s.ID] = s
	return nil
}

func (m *memMirror) Load(_ context.Context, id string) (domain.PoolState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[id]
	return s, ok, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(q PoolQuery, m Mirror, tracked ...string) (*Cache, *clock) {
	cfg := CacheConfig{StalenessBound: 2 * time.Second, RefreshConcurrency: 2}
	for _, id := range tracked {
		cfg.Tracked = append(cfg.Tracked, domain.TrackedPool{Address: id, ProgramID: "prog"})
	}
	c := NewCache(cfg, q, m, logger.NewNop())
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.SetClock(clk.Now)
	return c, clk
}

func TestCache_GetReadsThrough(t *testing.T) {
	q := newFakeQuery()
	c, clk := newTestCache(q, nil)
	ctx := context.Background()

	s, err := c.Get(ctx, "P", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "P", s.ID)
	assert.Equal(t, clk.Now(), s.RefreshedAt)
	assert.Equal(t, 1, q.callsFor("P"))

	// fresh entry is served from memory
	clk.Advance(time.Second)
	_, err = c.Get(ctx, "P", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, q.callsFor("P"))

	// stale entry is refetched and replaced whole
	clk.Advance(2 * time.Second)
	q.reserve = 2000
	s, err = c.Get(ctx, "P", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, q.callsFor("P"))
	assert.True(t, s.ReserveA.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, time.Duration(0), s.Age(clk.Now()))
}

func TestCache_LookupError(t *testing.T) {
	q := newFakeQuery()
	q.fail["P"] = errors.New("account not found")
	c, _ := newTestCache(q, nil)

	_, err := c.Get(context.Background(), "P", time.Second)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeLookupError))

	_, ok := c.Peek("P")
	assert.False(t, ok)
}

func TestCache_FailedRefreshKeepsPreviousEntry(t *testing.T) {
	q := newFakeQuery()
	c, clk := newTestCache(q, nil)
	ctx := context.Background()

	_, err := c.Refresh(ctx, "P")
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	q.fail["P"] = errors.New("rpc down")
	_, err = c.Get(ctx, "P", 2*time.Second)
	require.Error(t, err)

	prev, ok := c.Peek("P")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, prev.Age(clk.Now()))
}

func TestCache_Invalidate(t *testing.T) {
	q := newFakeQuery()
	c, _ := newTestCache(q, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "P", time.Minute)
	require.NoError(t, err)
	c.Invalidate("P")
	_, err = c.Get(ctx, "P", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 2, q.callsFor("P"))
}

func TestCache_RefreshAllSkipsFailures(t *testing.T) {
	q := newFakeQuery()
	q.delay = 10 * time.Millisecond
	q.fail["P2"] = errors.New("bad layout")
	c, _ := newTestCache(q, nil, "P3", "P1", "P2", "P4")

	loaded := c.RefreshAll(context.Background())

	require.Len(t, loaded, 3)
	assert.Equal(t, "P1", loaded[0].ID)
	assert.Equal(t, "P3", loaded[1].ID)
	assert.Equal(t, "P4", loaded[2].ID)
	assert.LessOrEqual(t, q.peak.Load(), int32(2))
	assert.Len(t, c.Snapshot(), 3)
}

func TestCache_ConcurrentRefreshSharesQuery(t *testing.T) {
	q := newFakeQuery()
	q.delay = 50 * time.Millisecond
	c, _ := newTestCache(q, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "P", time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, q.callsFor("P"))
}

func TestCache_MirrorRoundTrip(t *testing.T) {
	q := newFakeQuery()
	m := &memMirror{saved: make(map[string]domain.PoolState)}
	c, _ := newTestCache(q, m, "P")

	_, err := c.Refresh(context.Background(), "P")
	require.NoError(t, err)
	require.Contains(t, m.saved, "P")

	warm, clk := newTestCache(q, m, "P")
	assert.Equal(t, 1, warm.WarmStart(context.Background()))

	s, ok := warm.Peek("P")
	require.True(t, ok)
	assert.True(t, s.ReserveA.Equal(decimal.NewFromInt(1000)))

	// the mirrored snapshot carries its original timestamp and goes stale normally
	clk.Advance(3 * time.Second)
	_, err = warm.Get(context.Background(), "P", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, q.callsFor("P"))
}
