package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PoolRow is one cached pool.
type PoolRow struct {
	Pool     string
	Pair     string
	ReserveA decimal.Decimal
	ReserveB decimal.Decimal
	FeeRate  decimal.Decimal
	Age      time.Duration
	Stale    bool
}

// PoolsComponent renders the pool cache.
type PoolsComponent struct {
	rows []PoolRow
}

// NewPoolsComponent creates a new pools component.
func NewPoolsComponent() *PoolsComponent {
	return &PoolsComponent{}
}

// Update replaces the pool rows.
func (p *PoolsComponent) Update(rows []PoolRow) {
	p.rows = rows
}

// View renders the pools table.
func (p *PoolsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	staleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("POOLS"))
	sb.WriteString("\n\n")

	if len(p.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  Loading pools..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-12s %-14s %16s %16s %7s %6s\n", "Pool", "Pair", "Reserve A", "Reserve B", "Fee", "Age"))
	for _, row := range p.rows {
		line := fmt.Sprintf("  %-12s %-14s %16s %16s %6s%% %6s",
			shorten(row.Pool),
			row.Pair,
			row.ReserveA.StringFixed(4),
			row.ReserveB.StringFixed(4),
			row.FeeRate.Shift(2).StringFixed(2),
			row.Age.Round(100*time.Millisecond),
		)
		if row.Stale {
			line = staleStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:5] + ".." + s[len(s)-5:]
}
