// Package pool implements the pool bounded context: on-chain pool queries,
// the staleness-aware state cache and the exchange-rate curves.
package pool

import (
	"context"
	"time"

	ledgerDI "github.com/fd1az/orca-arbitrage-bot/business/ledger/di"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/app"
	poolDI "github.com/fd1az/orca-arbitrage-bot/business/pool/di"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/infra/orca"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/infra/redis"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
)

// Module implements the pool bounded context.
type Module struct{}

// RegisterServices registers all pool services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PoolQuery (private - reads pools through the ledger gateway)
	di.RegisterToken(c, poolDI.PoolQuery, func(sr di.ServiceRegistry) app.PoolQuery {
		log := sr.Get("logger").(logger.LoggerInterface)

		q, err := orca.NewQuery(ledgerDI.GetGateway(sr), log)
		if err != nil {
			panic("failed to create pool query: " + err.Error())
		}
		return q
	})

	// Register Mirror (private - optional redis snapshot store)
	di.RegisterToken(c, poolDI.Mirror, func(sr di.ServiceRegistry) *redis.Mirror {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Pool.RedisURL == "" {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		mirror, err := redis.NewMirror(ctx, cfg.Pool.RedisURL, cfg.Pool.RedisTTL)
		if err != nil {
			// the mirror only speeds up restarts
			log.Warn(ctx, "pool mirror disabled", "error", err)
			return nil
		}
		return mirror
	})

	// Register Curve (public - used by the analyzer)
	di.RegisterToken(c, poolDI.Curve, func(sr di.ServiceRegistry) domain.Curve {
		cfg := sr.Get("config").(*config.Config)

		curve, err := domain.NewCurve(cfg.Pool.Curve)
		if err != nil {
			panic("failed to create curve: " + err.Error())
		}
		return curve
	})

	// Register Cache (public - exposed to other modules)
	di.RegisterToken(c, poolDI.Cache, func(sr di.ServiceRegistry) *app.Cache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		tracked := make([]domain.TrackedPool, 0, len(cfg.Pool.Tracked))
		for _, p := range cfg.Pool.Tracked {
			tracked = append(tracked, domain.TrackedPool{Address: p.Address, ProgramID: p.ProgramID})
		}

		var mirror app.Mirror
		if m := poolDI.GetMirror(sr); m != nil {
			mirror = m
		}

		return app.NewCache(app.CacheConfig{
			StalenessBound:     cfg.Pool.StalenessBound,
			RefreshConcurrency: cfg.Pool.RefreshConcurrency,
			Tracked:            tracked,
		}, poolDI.GetPoolQuery(sr), mirror, log)
	})

	return nil
}

// Startup warms the cache from the mirror and loads every tracked pool.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cache := poolDI.GetCache(mono.Services())

	if n := cache.WarmStart(ctx); n > 0 {
		log.Info(ctx, "pool cache warmed from mirror", "pools", n)
	}

	loaded := cache.RefreshAll(ctx)
	for _, p := range loaded {
		log.Info(ctx, "pool loaded",
			"pool", p.ID,
			"token_a", mono.AssetRegistry().Symbol(p.TokenA),
			"token_b", mono.AssetRegistry().Symbol(p.TokenB),
			"reserve_a", p.ReserveA.String(),
			"reserve_b", p.ReserveB.String(),
			"fee", p.FeeRate.String())
	}

	log.Info(ctx, "pool module started", "tracked", len(cache.Tracked()), "loaded", len(loaded),
		"curve", poolDI.GetCurve(mono.Services()).Name())
	return nil
}
