// Package di contains dependency injection tokens for the monitoring context.
package di

import (
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/app"
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/infra/report"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/notify"
)

// Public service tokens - exposed to other modules
var (
	Metrics         = di.NewToken[*app.Metrics]("monitoring.Metrics")
	ConsoleReporter = di.NewToken[*report.ConsoleReporter]("monitoring.ConsoleReporter")
	TUIReporter     = di.NewToken[*report.TUIReporter]("monitoring.TUIReporter")
	NotifyReporter  = di.NewToken[*report.NotifyReporter]("monitoring.NotifyReporter")
)

// Private dependency tokens - internal to monitoring module
var (
	Notifier = di.NewToken[*notify.Notifier]("monitoring:notifier")
)

// Helper functions for type-safe access
func GetMetrics(c di.ServiceRegistry) *app.Metrics {
	return di.GetToken(c, Metrics)
}

func GetConsoleReporter(c di.ServiceRegistry) *report.ConsoleReporter {
	return di.GetToken(c, ConsoleReporter)
}

func GetTUIReporter(c di.ServiceRegistry) *report.TUIReporter {
	return di.GetToken(c, TUIReporter)
}

func GetNotifyReporter(c di.ServiceRegistry) *report.NotifyReporter {
	return di.GetToken(c, NotifyReporter)
}

func GetNotifier(c di.ServiceRegistry) *notify.Notifier {
	return di.GetToken(c, Notifier)
}
