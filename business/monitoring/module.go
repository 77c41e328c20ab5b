// Package monitoring implements the monitoring bounded context: the metrics
// store fed by the pipeline and the reporters that publish its activity.
package monitoring

import (
	"context"

	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/app"
	monitoringDI "github.com/fd1az/orca-arbitrage-bot/business/monitoring/di"
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/infra/report"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
	"github.com/fd1az/orca-arbitrage-bot/internal/notify"
)

// Module implements the monitoring bounded context.
type Module struct{}

// RegisterServices registers all monitoring services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Metrics (public - the pipeline's metrics sink)
	di.RegisterToken(c, monitoringDI.Metrics, func(sr di.ServiceRegistry) *app.Metrics {
		metrics, err := app.NewMetrics()
		if err != nil {
			panic("failed to create metrics: " + err.Error())
		}
		return metrics
	})

	// Register Notifier (private - nil without telegram settings)
	di.RegisterToken(c, monitoringDI.Notifier, func(sr di.ServiceRegistry) *notify.Notifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Notify.TelegramEnabled() {
			return nil
		}
		sender, err := notify.NewTelegramSender(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
		if err != nil {
			log.Warn(context.Background(), "telegram notifications disabled", "error", err)
			return nil
		}
		return notify.NewNotifier([]notify.Sender{sender}, nil, log)
	})

	// Register reporters (public - attached to the pipeline by main)
	di.RegisterToken(c, monitoringDI.ConsoleReporter, func(sr di.ServiceRegistry) *report.ConsoleReporter {
		assets := sr.Get("assetRegistry").(*asset.Registry)
		return report.NewConsoleReporter(assets)
	})

	di.RegisterToken(c, monitoringDI.TUIReporter, func(sr di.ServiceRegistry) *report.TUIReporter {
		cfg := sr.Get("config").(*config.Config)
		assets := sr.Get("assetRegistry").(*asset.Registry)
		return report.NewTUIReporter(assets, cfg.Executor.DryRun)
	})

	di.RegisterToken(c, monitoringDI.NotifyReporter, func(sr di.ServiceRegistry) *report.NotifyReporter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return report.NewNotifyReporter(monitoringDI.GetNotifier(sr), cfg.Solana.Network, log)
	})

	return nil
}

// Startup creates the metrics store so its uptime clock starts with the bot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	monitoringDI.GetMetrics(mono.Services())
	notifier := monitoringDI.GetNotifier(mono.Services())

	log.Info(ctx, "monitoring module started", "telegram", notifier.Enabled())
	return nil
}
