// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Bundle statuses shown in the table.
const (
	BundlePending   = "PENDING"
	BundleConfirmed = "CONFIRMED"
	BundleFailed    = "FAILED"
	BundleUnknown   = "UNKNOWN"
	BundleDryRun    = "DRY RUN"
)

// BundleRow is one bundle in the list.
type BundleRow struct {
	ID        string
	Time      string
	Size      int
	Pools     string
	Estimated decimal.Decimal
	Realized  decimal.Decimal
	Status    string
	Detail    string
}

// BundlesComponent renders the most recent bundles, newest first.
type BundlesComponent struct {
	rows    []BundleRow
	maxRows int
	offset  int
	visible int
}

// NewBundlesComponent creates a component keeping at most maxRows bundles.
func NewBundlesComponent(maxRows int) *BundlesComponent {
	return &BundlesComponent{
		rows:    make([]BundleRow, 0, maxRows),
		maxRows: maxRows,
		visible: 8,
	}
}

// Add inserts a bundle, or updates it when the id is already listed.
func (b *BundlesComponent) Add(row BundleRow) {
	for i := range b.rows {
		if b.rows[i].ID == row.ID {
			b.rows[i] = row
			return
		}
	}
	b.rows = append([]BundleRow{row}, b.rows...)
	if len(b.rows) > b.maxRows {
		b.rows = b.rows[:b.maxRows]
	}
}

// Resolve sets the outcome of a listed bundle. Unknown ids are added.
func (b *BundlesComponent) Resolve(row BundleRow) {
	for i := range b.rows {
		if b.rows[i].ID == row.ID {
			if row.Pools == "" {
				row.Pools = b.rows[i].Pools
			}
			b.rows[i] = row
			return
		}
	}
	b.Add(row)
}

// Len returns the number of listed bundles.
func (b *BundlesComponent) Len() int {
	return len(b.rows)
}

// Clear removes every bundle.
func (b *BundlesComponent) Clear() {
	b.rows = b.rows[:0]
	b.offset = 0
}

// ScrollUp moves the window towards newer bundles.
func (b *BundlesComponent) ScrollUp() {
	if b.offset > 0 {
		b.offset--
	}
}

// ScrollDown moves the window towards older bundles.
func (b *BundlesComponent) ScrollDown() {
	if b.offset < len(b.rows)-b.visible {
		b.offset++
	}
}

// View renders the bundles table.
func (b *BundlesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	if len(b.rows) == 0 {
		return headerStyle.Render("BUNDLES") + "\n\nNo bundles yet..."
	}

	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("BUNDLES (%d)", len(b.rows))))
	sb.WriteString("\n")
	sb.WriteString("┌──────────┬──────┬──────────────┬──────────────┬─────────────┐\n")
	sb.WriteString("│   Time   │ Size │  Est. (SOL)  │ Real. (SOL)  │   Status    │\n")
	sb.WriteString("├──────────┼──────┼──────────────┼──────────────┼─────────────┤\n")

	end := min(b.offset+b.visible, len(b.rows))
	for _, row := range b.rows[b.offset:end] {
		style := mutedStyle
		switch row.Status {
		case BundleConfirmed:
			style = okStyle
		case BundleFailed:
			style = failStyle
		case BundleUnknown:
			style = warnStyle
		}

		realized := "-"
		if row.Status == BundleConfirmed {
			realized = row.Realized.StringFixed(6)
		}

		sb.WriteString(fmt.Sprintf("│ %8s │ %4d │ %12s │ %12s │ %s │\n",
			row.Time,
			row.Size,
			row.Estimated.StringFixed(6),
			realized,
			style.Render(fmt.Sprintf("%-11s", row.Status)),
		))
	}
	sb.WriteString("└──────────┴──────┴──────────────┴──────────────┴─────────────┘")

	if b.rows[b.offset].Detail != "" {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render("  " + b.rows[b.offset].Detail))
	}
	return sb.String()
}
