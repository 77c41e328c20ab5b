package rpc

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	tracerName = "github.com/fd1az/orca-arbitrage-bot/business/ledger/infra/rpc"
	meterName  = "github.com/fd1az/orca-arbitrage-bot/business/ledger/infra/rpc"
)

// ledgerMetrics holds OTEL metric instruments shared by the RPC client and the log stream.
type ledgerMetrics struct {
	requests        metric.Int64Counter
	latency         metric.Float64Histogram
	errors          metric.Int64Counter
	notifications   metric.Int64Counter
	connectionState metric.Int64Gauge
}

func newLedgerMetrics() (*ledgerMetrics, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &ledgerMetrics{}

	m.requests, err = meter.Int64Counter(
		"ledger_rpc_requests_total",
		metric.WithDescription("Total ledger JSON-RPC requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.latency, err = meter.Float64Histogram(
		"ledger_rpc_latency_ms",
		metric.WithDescription("Ledger JSON-RPC round trip latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.errors, err = meter.Int64Counter(
		"ledger_rpc_errors_total",
		metric.WithDescription("Total failed ledger JSON-RPC requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.notifications, err = meter.Int64Counter(
		"ledger_log_notifications_total",
		metric.WithDescription("Total log notifications received"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	m.connectionState, err = meter.Int64Gauge(
		"ledger_connection_state",
		metric.WithDescription("Log stream state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
