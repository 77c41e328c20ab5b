// Package arbitrage implements the arbitrage bounded context: opportunity
// analysis, bundling, execution and the pipeline that drives them.
package arbitrage

import (
	"context"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/infra/txbuilder"
	ledgerDI "github.com/fd1az/orca-arbitrage-bot/business/ledger/di"
	listenerDI "github.com/fd1az/orca-arbitrage-bot/business/listener/di"
	monitoringDI "github.com/fd1az/orca-arbitrage-bot/business/monitoring/di"
	poolDI "github.com/fd1az/orca-arbitrage-bot/business/pool/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Analyzer (public)
	di.RegisterToken(c, arbitrageDI.Analyzer, func(sr di.ServiceRegistry) *app.Analyzer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		return app.NewAnalyzer(app.AnalyzerConfig{
			MaxTradeSize:   cfg.Trading.MaxTradeSizeDecimal(),
			Slippage:       cfg.Trading.SlippageFraction(),
			MinProfit:      cfg.Trading.MinProfitDecimal(),
			StalenessBound: cfg.Pool.StalenessBound,
		},
			poolDI.GetCache(sr),
			poolDI.GetCurve(sr),
			ledgerDI.GetGateway(sr),
			assets,
			monitoringDI.GetMetrics(sr),
			log,
		)
	})

	// Register Bundler (public)
	di.RegisterToken(c, arbitrageDI.Bundler, func(sr di.ServiceRegistry) *app.Bundler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewBundler(cfg.Trading.MaxBundleSize, monitoringDI.GetMetrics(sr), log)
	})

	// Register TxBuilder (private - signs with the wallet keypair)
	di.RegisterToken(c, arbitrageDI.TxBuilder, func(sr di.ServiceRegistry) *txbuilder.Builder {
		signer, _ := sr.Get("signer").(solana.Signer)
		if signer == nil {
			return nil
		}
		return txbuilder.New(signer)
	})

	// Register Executor (public)
	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		var builder app.TxBuilder
		if b := arbitrageDI.GetTxBuilder(sr); b != nil {
			builder = b
		}

		return app.NewExecutor(app.ExecutorConfig{
			ConfirmationTimeout:   cfg.Executor.ConfirmationTimeout(),
			PollInterval:          cfg.Executor.PollInterval,
			QueueSize:             cfg.Executor.QueueSize,
			BusyPolicy:            cfg.Executor.BusyPolicy,
			PriorityFeeMultiplier: cfg.Trading.PriorityFeeMultiplierDecimal(),
		},
			ledgerDI.GetGateway(sr),
			builder,
			assets,
			monitoringDI.GetMetrics(sr),
			log,
		)
	})

	// Register Dedup (private)
	di.RegisterToken(c, arbitrageDI.Dedup, func(sr di.ServiceRegistry) *app.Dedup {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDedup(cfg.Pipeline.DedupTTL, log)
	})

	// Register Pipeline (public - started and stopped by main)
	di.RegisterToken(c, arbitrageDI.Pipeline, func(sr di.ServiceRegistry) *app.Pipeline {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		builder := arbitrageDI.GetTxBuilder(sr)
		wallet := ""
		if builder != nil {
			wallet = builder.Payer()
		}

		return app.NewPipeline(app.PipelineConfig{
			Workers:                cfg.Pipeline.AnalyzerWorkers,
			ScanInterval:           cfg.Trading.ScanInterval(),
			DrainTimeout:           cfg.Pipeline.DrainTimeout,
			ResubscribeBackoff:     cfg.Listener.ResubscribeBackoff,
			MaxResubscribeAttempts: cfg.Listener.MaxResubscribeAttempts,
			// nothing can be signed without a wallet
			DryRun: cfg.Executor.DryRun || builder == nil,
			Wallet: wallet,
		},
			ledgerDI.GetGateway(sr),
			listenerDI.GetListener(sr),
			listenerDI.GetEventQueue(sr),
			arbitrageDI.GetAnalyzer(sr),
			arbitrageDI.GetBundler(sr),
			arbitrageDI.GetDedup(sr),
			arbitrageDI.GetExecutor(sr),
			log,
		)
	})

	return nil
}

// Startup builds the pipeline and attaches the reporters of the current mode.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	pipeline := arbitrageDI.GetPipeline(sr)

	reporters := []app.Reporter{monitoringDI.GetNotifyReporter(sr)}
	if cfg.App.TUIMode {
		reporters = append(reporters, monitoringDI.GetTUIReporter(sr))
	} else {
		reporters = append(reporters, monitoringDI.GetConsoleReporter(sr))
	}
	for _, r := range reporters {
		if err := r.Start(ctx); err != nil {
			return err
		}
		pipeline.AddReporter(r)
	}

	status := pipeline.Status()
	log.Info(ctx, "arbitrage module started",
		"wallet", status.Wallet,
		"dry_run", cfg.Executor.DryRun || mono.Signer() == nil,
		"max_bundle_size", cfg.Trading.MaxBundleSize,
		"min_profit", cfg.Trading.MinProfitDecimal().String(),
		"max_trade_size_sol", cfg.Trading.MaxTradeSizeDecimal().String(),
		"busy_policy", cfg.Executor.BusyPolicy)
	return nil
}
