package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Stats holds pipeline counters for display.
type Stats struct {
	Opportunities    uint64
	BundlesCreated   uint64
	Attempted        uint64
	Succeeded        uint64
	Failed           uint64
	CumulativeProfit decimal.Decimal
	AverageProfit    decimal.Decimal
	Uptime           time.Duration
	QueueDepth       int
	DroppedEvents    uint64
}

// StatsComponent renders pipeline statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the last statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	successRate := float64(0)
	if s.stats.Attempted > 0 {
		successRate = float64(s.stats.Succeeded) / float64(s.stats.Attempted) * 100
	}

	failedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	if s.stats.Failed > 0 {
		failedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	}

	profit := s.stats.CumulativeProfit
	profitDisplay := profitStyle.Render(profit.StringFixed(6) + " SOL")
	if profit.IsNegative() {
		profitDisplay = errorStyle.Render(profit.StringFixed(6) + " SOL")
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Opportunities: %s  │  Bundles: %s  │  Executed: %s  │  Confirmed: %s (%.1f%%)  │  Failed: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.BundlesCreated)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Attempted)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Succeeded)),
			successRate,
			failedDisplay,
		) +
		fmt.Sprintf("Profit: %s  │  Avg/bundle: %s  │  Queue: %s  │  Dropped events: %s  │  Uptime: %s",
			profitDisplay,
			valueStyle.Render(s.stats.AverageProfit.StringFixed(6)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.QueueDepth)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.DroppedEvents)),
			valueStyle.Render(s.stats.Uptime.Round(time.Second).String()),
		)
}
