// Package app contains the metrics store fed by the arbitrage pipeline.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

const meterName = "github.com/fd1az/orca-arbitrage-bot/business/monitoring/app"

// instruments mirrors the counters into the otel meter provider.
type instruments struct {
	attempted     metric.Int64Counter
	succeeded     metric.Int64Counter
	failed        metric.Int64Counter
	opportunities metric.Int64Counter
	bundles       metric.Int64Counter
	bundleSize    metric.Int64Histogram
	profit        metric.Float64UpDownCounter
}

func newInstruments() (*instruments, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &instruments{}

	m.attempted, err = meter.Int64Counter(
		"arb_bundles_attempted_total",
		metric.WithDescription("Total bundle executions attempted"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, err
	}

	m.succeeded, err = meter.Int64Counter(
		"arb_bundles_succeeded_total",
		metric.WithDescription("Total bundles confirmed on chain"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, err
	}

	m.failed, err = meter.Int64Counter(
		"arb_bundles_failed_total",
		metric.WithDescription("Total failed bundle executions by error code"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, err
	}

	m.opportunities, err = meter.Int64Counter(
		"arb_opportunities_discovered_total",
		metric.WithDescription("Total opportunities above the profit threshold"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return nil, err
	}

	m.bundles, err = meter.Int64Counter(
		"arb_bundles_created_total",
		metric.WithDescription("Total bundles created"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, err
	}

	m.bundleSize, err = meter.Int64Histogram(
		"arb_bundle_size",
		metric.WithDescription("Opportunities per created bundle"),
		metric.WithUnit("{opportunity}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10),
	)
	if err != nil {
		return nil, err
	}

	m.profit, err = meter.Float64UpDownCounter(
		"arb_realized_profit_sol",
		metric.WithDescription("Cumulative realized profit"),
		metric.WithUnit("SOL"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Metrics is the pipeline's metrics sink. Every method is safe for
// concurrent use; counters are atomics and the profit total is a decimal
// swapped with compare-and-swap.
type Metrics struct {
	attempted     atomic.Uint64
	succeeded     atomic.Uint64
	failed        atomic.Uint64
	opportunities atomic.Uint64
	bundles       atomic.Uint64
	bundleSize    atomic.Uint64
	profit        atomic.Pointer[decimal.Decimal]
	// unix nanoseconds, zero before the first execution
	lastExecution atomic.Int64

	failuresMu sync.Mutex
	failures   map[string]uint64

	startedAt time.Time
	now       func() time.Time
	inst      *instruments
}

// NewMetrics creates a zeroed store starting its uptime clock now.
func NewMetrics() (*Metrics, error) {
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}
	return newMetrics(time.Now, inst), nil
}

func newMetrics(now func() time.Time, inst *instruments) *Metrics {
	m := &Metrics{
		failures:  make(map[string]uint64),
		startedAt: now(),
		now:       now,
		inst:      inst,
	}
	zero := decimal.Zero
	m.profit.Store(&zero)
	return m
}

// OpportunityDiscovered counts one opportunity that passed the threshold.
func (m *Metrics) OpportunityDiscovered(ctx context.Context) {
	m.opportunities.Add(1)
	if m.inst != nil {
		m.inst.opportunities.Add(ctx, 1)
	}
}

// BundleCreated counts one bundle of size opportunities.
func (m *Metrics) BundleCreated(ctx context.Context, size int) {
	m.bundles.Add(1)
	if size > 0 {
		m.bundleSize.Add(uint64(size))
	}
	if m.inst != nil {
		m.inst.bundles.Add(ctx, 1)
		m.inst.bundleSize.Record(ctx, int64(size))
	}
}

// ExecutionAttempted counts one bundle handed to the ledger.
func (m *Metrics) ExecutionAttempted(ctx context.Context) {
	m.attempted.Add(1)
	if m.inst != nil {
		m.inst.attempted.Add(ctx, 1)
	}
}

// ExecutionSucceeded counts a confirmed bundle and adds its realized profit.
func (m *Metrics) ExecutionSucceeded(ctx context.Context, realized decimal.Decimal) {
	m.succeeded.Add(1)
	m.addProfit(realized)
	m.lastExecution.Store(m.now().UnixNano())
	if m.inst != nil {
		m.inst.succeeded.Add(ctx, 1)
		m.inst.profit.Add(ctx, realized.InexactFloat64())
	}
}

// ExecutionFailed counts a failed bundle under its error code.
func (m *Metrics) ExecutionFailed(ctx context.Context, code apperror.Code) {
	m.failed.Add(1)
	m.lastExecution.Store(m.now().UnixNano())

	m.failuresMu.Lock()
	m.failures[string(code)]++
	m.failuresMu.Unlock()

	if m.inst != nil {
		m.inst.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", string(code))))
	}
}

func (m *Metrics) addProfit(delta decimal.Decimal) {
	for {
		old := m.profit.Load()
		next := old.Add(delta)
		if m.profit.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Snapshot returns the current counters and derived averages.
func (m *Metrics) Snapshot() domain.Snapshot {
	s := domain.Snapshot{
		BundlesAttempted:        m.attempted.Load(),
		BundlesSucceeded:        m.succeeded.Load(),
		BundlesFailed:           m.failed.Load(),
		OpportunitiesDiscovered: m.opportunities.Load(),
		BundlesCreated:          m.bundles.Load(),
		CumulativeProfit:        *m.profit.Load(),
		AverageProfitPerBundle:  decimal.Zero,
		AverageBundleSize:       decimal.Zero,
		StartedAt:               m.startedAt,
		Uptime:                  m.now().Sub(m.startedAt),
	}

	if s.BundlesSucceeded > 0 {
		s.AverageProfitPerBundle = s.CumulativeProfit.Div(decimal.NewFromUint64(s.BundlesSucceeded))
	}
	if s.BundlesCreated > 0 {
		s.AverageBundleSize = decimal.NewFromUint64(m.bundleSize.Load()).Div(decimal.NewFromUint64(s.BundlesCreated))
	}
	if ns := m.lastExecution.Load(); ns != 0 {
		s.LastExecutionTime = time.Unix(0, ns)
	}

	m.failuresMu.Lock()
	s.FailuresByCode = make(map[string]uint64, len(m.failures))
	for code, n := range m.failures {
		s.FailuresByCode[code] = n
	}
	m.failuresMu.Unlock()

	return s
}
