// Package report contains the egress reporters: console lines, the
// dashboard feed and chat notifications.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	arbdomain "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
)

// ConsoleReporter prints fixed-width lines for CLI mode.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	assets *asset.Registry
	now    func() time.Time
}

// NewConsoleReporter creates a reporter writing to stdout. assets may be nil,
// in which case mints are printed shortened.
func NewConsoleReporter(assets *asset.Registry) *ConsoleReporter {
	return newConsoleReporter(os.Stdout, assets)
}

func newConsoleReporter(out io.Writer, assets *asset.Registry) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		assets: assets,
		now:    time.Now,
	}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Orca Arbitrage Bot Started")
	fmt.Fprintln(r.out, "==========================")
	return nil
}

// ReportBundle prints a bundle and its legs.
func (r *ConsoleReporter) ReportBundle(b arbdomain.Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, strings.Repeat("=", 80))
	fmt.Fprintf(r.out, "BUNDLE %s  %d swap(s)  est. %s SOL  net %s SOL\n",
		b.ID, b.Size(), b.TotalEstimatedProfit.StringFixed(6), b.NetEstimatedProfit.StringFixed(6))
	fmt.Fprintln(r.out, strings.Repeat("-", 80))
	for i, o := range b.Opportunities {
		fmt.Fprintf(r.out, "  %d. %-12s %-7s %14s %-6s -> min %14s %-6s  profit %s\n",
			i+1,
			short(o.PoolID),
			o.Direction.String(),
			o.InputAmount.String(),
			r.symbol(o.InputToken),
			o.MinOutput.String(),
			r.symbol(o.OutputToken),
			o.EstimatedProfit.StringFixed(6))
	}
	fmt.Fprintln(r.out, strings.Repeat("=", 80))
}

// ReportResult prints the outcome of an execution.
func (r *ConsoleReporter) ReportResult(res arbdomain.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := res.CompletedAt.Format("15:04:05")
	switch {
	case res.Success:
		fmt.Fprintf(r.out, "[%s] CONFIRMED %s slot=%d realized=%s est=%s sig=%s\n",
			ts, short(res.BundleID), res.Slot,
			res.RealizedProfit.StringFixed(6), res.EstimatedProfit.StringFixed(6), res.Signature)
	case res.ResultUnknown:
		fmt.Fprintf(r.out, "[%s] UNKNOWN   %s submitted=%s error=%s\n",
			ts, short(res.BundleID), res.SubmittedSignature, res.Error)
	default:
		fmt.Fprintf(r.out, "[%s] FAILED    %s code=%s error=%s\n",
			ts, short(res.BundleID), res.ErrorCode, res.Error)
	}
}

// UpdateConnectionStatus prints connection changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := "disconnected"
	if connected {
		status = "connected"
	}
	if detail != "" {
		status += " (" + detail + ")"
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", r.now().Format("15:04:05"), name, status)
}

// PrintSnapshot prints one status line.
func (r *ConsoleReporter) PrintSnapshot(s domain.Snapshot, queueDepth int, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] opps=%d bundles=%d attempted=%d ok=%d failed=%d profit=%s avg=%s queue=%d dropped=%d uptime=%s\n",
		r.now().Format("15:04:05"),
		s.OpportunitiesDiscovered, s.BundlesCreated,
		s.BundlesAttempted, s.BundlesSucceeded, s.BundlesFailed,
		s.CumulativeProfit.StringFixed(6), s.AverageProfitPerBundle.StringFixed(6),
		queueDepth, dropped, s.Uptime.Round(time.Second))
}

// Stop prints the footer.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Orca Arbitrage Bot Stopped")
	return nil
}

func (r *ConsoleReporter) symbol(mint string) string {
	if r.assets == nil {
		return short(mint)
	}
	return r.assets.Symbol(mint)
}

func short(s string) string {
	if len(s) > 10 {
		return s[:4] + ".." + s[len(s)-4:]
	}
	return s
}
