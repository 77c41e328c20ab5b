// Package listener implements the listener bounded context: log subscriptions
// filtered to the watched programs and the bounded queue feeding the analyzer.
package listener

import (
	"context"

	ledgerDI "github.com/fd1az/orca-arbitrage-bot/business/ledger/di"
	"github.com/fd1az/orca-arbitrage-bot/business/listener/app"
	listenerDI "github.com/fd1az/orca-arbitrage-bot/business/listener/di"
	"github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
)

// Module implements the listener bounded context.
type Module struct{}

// RegisterServices registers all listener services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Listener (public - started and stopped by the pipeline)
	di.RegisterToken(c, listenerDI.Listener, func(sr di.ServiceRegistry) *app.Listener {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewListener(app.Config{
			Mode:          domain.Mode(cfg.Listener.Mode),
			ProgramIDs:    cfg.Listener.ProgramIDs,
			Commitment:    cfg.Listener.Commitment,
			IncludeFailed: cfg.Listener.IncludeFailed,
		}, ledgerDI.GetGateway(sr), log)
	})

	// Register EventQueue (public - drained by the pipeline)
	di.RegisterToken(c, listenerDI.EventQueue, func(sr di.ServiceRegistry) *app.EventQueue {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		q, err := app.NewEventQueue(cfg.Pipeline.QueueSize, cfg.Pipeline.Backpressure, log)
		if err != nil {
			panic("failed to create event queue: " + err.Error())
		}
		return q
	})

	return nil
}

// Startup only resolves the listener; the pipeline owns Start and Stop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	l := listenerDI.GetListener(mono.Services())
	q := listenerDI.GetEventQueue(mono.Services())

	cfg := mono.Config().Listener
	log.Info(ctx, "listener module started",
		"mode", cfg.Mode, "programs", cfg.ProgramIDs, "state", l.State(),
		"queue_size", q.Cap(), "backpressure", mono.Config().Pipeline.Backpressure)
	return nil
}
