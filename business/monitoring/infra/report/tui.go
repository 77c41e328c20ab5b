package report

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	arbdomain "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
	"github.com/fd1az/orca-arbitrage-bot/pkg/ui"
	"github.com/fd1az/orca-arbitrage-bot/pkg/ui/components"
)

// TUIReporter forwards pipeline activity to the dashboard.
type TUIReporter struct {
	send   func(tea.Msg)
	assets *asset.Registry
	dryRun bool
	now    func() time.Time
}

// NewTUIReporter creates a reporter sending to the running ui program. In
// dry-run mode bundles are shown as never submitted.
func NewTUIReporter(assets *asset.Registry, dryRun bool) *TUIReporter {
	return &TUIReporter{
		send:   ui.Send,
		assets: assets,
		dryRun: dryRun,
		now:    time.Now,
	}
}

// Start is a no-op; the ui program is owned by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportBundle adds the bundle to the dashboard.
func (r *TUIReporter) ReportBundle(b arbdomain.Bundle) {
	status := components.BundlePending
	if r.dryRun {
		status = components.BundleDryRun
	}
	r.send(ui.BundleMsg{Row: components.BundleRow{
		ID:        b.ID,
		Time:      b.CreatedAt.Format("15:04:05"),
		Size:      b.Size(),
		Pools:     strings.Join(b.PoolIDs(), ","),
		Estimated: b.TotalEstimatedProfit,
		Status:    status,
	}})
}

// ReportResult resolves the bundle row.
func (r *TUIReporter) ReportResult(res arbdomain.ExecutionResult) {
	row := components.BundleRow{
		ID:        res.BundleID,
		Time:      res.CompletedAt.Format("15:04:05"),
		Size:      len(res.Opportunities),
		Estimated: res.EstimatedProfit,
		Realized:  res.RealizedProfit,
	}
	switch {
	case res.Success:
		row.Status = components.BundleConfirmed
		row.Detail = res.Signature
	case res.ResultUnknown:
		row.Status = components.BundleUnknown
		row.Detail = res.SubmittedSignature
	default:
		row.Status = components.BundleFailed
		row.Detail = string(res.ErrorCode)
	}
	r.send(ui.ResultMsg{Row: row})
}

// UpdateConnectionStatus updates the status bar.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, detail string) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Detail: detail})
}

// SendSnapshot pushes the counters to the stats panel.
func (r *TUIReporter) SendSnapshot(s domain.Snapshot, queueDepth int, dropped uint64) {
	r.send(ui.StatsMsg{Stats: components.Stats{
		Opportunities:    s.OpportunitiesDiscovered,
		BundlesCreated:   s.BundlesCreated,
		Attempted:        s.BundlesAttempted,
		Succeeded:        s.BundlesSucceeded,
		Failed:           s.BundlesFailed,
		CumulativeProfit: s.CumulativeProfit,
		AverageProfit:    s.AverageProfitPerBundle,
		Uptime:           s.Uptime,
		QueueDepth:       queueDepth,
		DroppedEvents:    dropped,
	}})
}

// SendPools pushes the pool cache contents to the pools panel.
func (r *TUIReporter) SendPools(pools []pooldomain.PoolState, bound time.Duration) {
	now := r.now()
	rows := make([]components.PoolRow, 0, len(pools))
	for _, p := range pools {
		rows = append(rows, components.PoolRow{
			Pool:     p.ID,
			Pair:     r.symbol(p.TokenA) + "/" + r.symbol(p.TokenB),
			ReserveA: p.ReserveA,
			ReserveB: p.ReserveB,
			FeeRate:  p.FeeRate,
			Age:      p.Age(now),
			Stale:    p.IsStale(bound, now),
		})
	}
	r.send(ui.PoolsMsg{Pools: rows})
}

// Stop is a no-op.
func (r *TUIReporter) Stop() error {
	return nil
}

func (r *TUIReporter) symbol(mint string) string {
	if r.assets == nil {
		return short(mint)
	}
	return r.assets.Symbol(mint)
}
