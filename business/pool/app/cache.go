// Package app contains the pool state cache.
package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// CacheConfig configures the pool cache.
type CacheConfig struct {
	StalenessBound     time.Duration
	RefreshConcurrency int
	Tracked            []domain.TrackedPool
}

// Cache holds one live PoolState per pool id. Entries are replaced whole on
// refresh and never merged, so readers never see a torn entry.
type Cache struct {
	cfg    CacheConfig
	query  PoolQuery
	mirror Mirror // optional
	log    logger.LoggerInterface
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]domain.PoolState

	refreshes singleflight.Group
}

// NewCache creates a cache over query. mirror may be nil.
func NewCache(cfg CacheConfig, query PoolQuery, mirror Mirror, log logger.LoggerInterface) *Cache {
	if cfg.RefreshConcurrency <= 0 {
		cfg.RefreshConcurrency = 4
	}
	return &Cache{
		cfg:     cfg,
		query:   query,
		mirror:  mirror,
		log:     log,
		now:     time.Now,
		entries: make(map[string]domain.PoolState),
	}
}

// SetClock replaces the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// StalenessBound returns the configured default bound.
func (c *Cache) StalenessBound() time.Duration {
	return c.cfg.StalenessBound
}

// Tracked returns the configured pools.
func (c *Cache) Tracked() []domain.TrackedPool {
	return c.cfg.Tracked
}

// Peek returns the cached entry without refreshing it.
func (c *Cache) Peek(id string) (domain.PoolState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[id]
	return s, ok
}

// Get is a read-through: it returns the cached entry when it is younger than
// bound and refreshes it otherwise. A failed refresh is a LookupError.
func (c *Cache) Get(ctx context.Context, id string, bound time.Duration) (domain.PoolState, error) {
	if s, ok := c.Peek(id); ok && !s.IsStale(bound, c.now()) {
		return s, nil
	}
	return c.Refresh(ctx, id)
}

// Refresh fetches id and replaces its entry. Concurrent refreshes of the same
// pool share one query.
func (c *Cache) Refresh(ctx context.Context, id string) (domain.PoolState, error) {
	v, err, _ := c.refreshes.Do(id, func() (any, error) {
		state, err := c.query.QueryPool(ctx, id)
		if err != nil {
			return domain.PoolState{}, err
		}
		if state.RefreshedAt.IsZero() {
			state.RefreshedAt = c.now()
		}
		c.put(state)
		c.save(ctx, state)
		return state, nil
	})
	if err != nil {
		if apperror.HasCode(err, apperror.CodeLookupError) {
			return domain.PoolState{}, err
		}
		return domain.PoolState{}, apperror.New(apperror.CodeLookupError,
			apperror.WithCause(err),
			apperror.WithContext("pool "+id))
	}
	return v.(domain.PoolState), nil
}

// Invalidate drops id so the next Get refetches it.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// RefreshAll refreshes every tracked pool with bounded concurrency. Pools that
// fail are logged and left out of the result.
func (c *Cache) RefreshAll(ctx context.Context) []domain.PoolState {
	var (
		mu     sync.Mutex
		loaded []domain.PoolState
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.RefreshConcurrency)

	for _, p := range c.cfg.Tracked {
		g.Go(func() error {
			state, err := c.Refresh(gctx, p.Address)
			if err != nil {
				c.log.Warn(gctx, "could not load pool", "pool", p.Address, "error", err)
				return nil
			}
			mu.Lock()
			loaded = append(loaded, state)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	return loaded
}

// WarmStart seeds entries from the mirror. Loaded entries keep their original
// refresh time, so stale snapshots are refetched on first Get.
func (c *Cache) WarmStart(ctx context.Context) int {
	if c.mirror == nil {
		return 0
	}

	n := 0
	for _, p := range c.cfg.Tracked {
		state, ok, err := c.mirror.Load(ctx, p.Address)
		if err != nil {
			c.log.Warn(ctx, "pool mirror load failed", "pool", p.Address, "error", err)
			continue
		}
		if !ok {
			continue
		}
		c.mu.Lock()
		if _, exists := c.entries[state.ID]; !exists {
			c.entries[state.ID] = state
			n++
		}
		c.mu.Unlock()
	}
	return n
}

// Snapshot returns every cached entry ordered by id.
func (c *Cache) Snapshot() []domain.PoolState {
	c.mu.RLock()
	out := make([]domain.PoolState, 0, len(c.entries))
	for _, s := range c.entries {
		out = append(out, s)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Cache) put(state domain.PoolState) {
	c.mu.Lock()
	c.entries[state.ID] = state
	c.mu.Unlock()
}

func (c *Cache) save(ctx context.Context, state domain.PoolState) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(ctx, state); err != nil {
		c.log.Warn(ctx, "pool mirror save failed", "pool", state.ID, "error", err)
	}
}
