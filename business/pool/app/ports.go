package app

import (
	"context"

	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
)

// PoolQuery fetches the current on-chain state of a pool.
type PoolQuery interface {
	QueryPool(ctx context.Context, id string) (domain.PoolState, error)
}

// Mirror persists pool snapshots outside the process for warm starts.
type Mirror interface {
	Save(ctx context.Context, state domain.PoolState) error
	Load(ctx context.Context, id string) (domain.PoolState, bool, error)
}
