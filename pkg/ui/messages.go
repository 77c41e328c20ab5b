// Package ui provides the Bubble Tea dashboard for the arbitrage bot.
package ui

import (
	"github.com/fd1az/orca-arbitrage-bot/pkg/ui/components"
)

// Message types for TUI updates

// BundleMsg is sent when a bundle is handed to the executor.
type BundleMsg struct {
	Row components.BundleRow
}

// ResultMsg is sent when a bundle reaches a final state.
type ResultMsg struct {
	Row components.BundleRow
}

// ConnectionStatusMsg is sent when a connection changes state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Detail    string
}

// StatsMsg carries a metrics snapshot.
type StatsMsg struct {
	Stats components.Stats
}

// PoolsMsg carries the pool cache contents.
type PoolsMsg struct {
	Pools []components.PoolRow
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step   string // Current step name
	Status string // "connecting", "connected", "failed"
}
