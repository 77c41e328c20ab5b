package app

import (
	"context"
	"time"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/cache"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// Dedup drops opportunities already seen for the same pool, direction and
// event within ttl. Mentions-mode subscriptions can deliver one transaction
// once per watched program.
type Dedup struct {
	seen *cache.Cache[string, struct{}]
	ttl  time.Duration
	log  logger.LoggerInterface
}

// NewDedup creates a Dedup. A ttl of zero keeps keys until Close.
func NewDedup(ttl time.Duration, log logger.LoggerInterface) *Dedup {
	cleanup := ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Dedup{
		seen: cache.New[string, struct{}](cleanup),
		ttl:  ttl,
		log:  log,
	}
}

// Filter returns the opportunities not seen before and records them.
func (d *Dedup) Filter(ctx context.Context, opps []domain.Opportunity) []domain.Opportunity {
	out := opps[:0:0]
	for _, opp := range opps {
		key := opp.Key()
		if _, ok := d.seen.Get(ctx, key); ok {
			d.log.Debug(ctx, "opportunity dropped, duplicate", "id", opp.ID, "key", key)
			continue
		}
		d.seen.Set(ctx, key, struct{}{}, d.ttl)
		out = append(out, opp)
	}
	return out
}

// Close stops the expiry loop.
func (d *Dedup) Close() {
	d.seen.Close()
}
