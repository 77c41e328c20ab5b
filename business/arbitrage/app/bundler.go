package app

import (
	"context"
	"time"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// Bundler groups opportunities into conflict-free bundles.
type Bundler struct {
	maxSize int
	metrics MetricsSink
	log     logger.LoggerInterface
	now     func() time.Time
}

// NewBundler creates a new Bundler. maxSize below 1 is treated as 1.
func NewBundler(maxSize int, metrics MetricsSink, log logger.LoggerInterface) *Bundler {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Bundler{
		maxSize: maxSize,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// CreateBundle selects the most profitable opportunities greedily. A pool
// already selected in one direction rejects later opportunities in the
// opposite direction.
func (b *Bundler) CreateBundle(ctx context.Context, opps []domain.Opportunity) (domain.Bundle, error) {
	if len(opps) == 0 {
		return domain.Bundle{}, apperror.New(apperror.CodeEmptyBundle)
	}

	sorted := make([]domain.Opportunity, len(opps))
	copy(sorted, opps)
	domain.SortOpportunities(sorted)

	selected := make([]domain.Opportunity, 0, min(len(sorted), b.maxSize))
	directions := make(map[string]domain.Direction)

	for _, opp := range sorted {
		if len(selected) == b.maxSize {
			b.log.Debug(ctx, "opportunity dropped, bundle full",
				"id", opp.ID, "pool", opp.PoolID, "profit_sol", opp.EstimatedProfit.String())
			continue
		}
		if dir, ok := directions[opp.PoolID]; ok && dir != opp.Direction {
			b.log.Info(ctx, "opportunity dropped, conflicting direction",
				"id", opp.ID, "pool", opp.PoolID, "direction", opp.Direction, "selected", dir)
			continue
		}
		directions[opp.PoolID] = opp.Direction
		selected = append(selected, opp)
	}

	bundle := domain.NewBundle(selected, b.now())
	b.metrics.BundleCreated(ctx, bundle.Size())

	b.log.Info(ctx, "bundle created",
		"bundle", bundle.ID,
		"size", bundle.Size(),
		"candidates", len(opps),
		"estimated_profit_sol", bundle.TotalEstimatedProfit.String(),
		"net_profit_sol", bundle.NetEstimatedProfit.String(),
	)
	return bundle, nil
}
