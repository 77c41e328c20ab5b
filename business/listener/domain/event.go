// Package domain contains the core domain types for the listener context.
package domain

import "time"

// LedgerEvent is one log batch that touched a watched program.
type LedgerEvent struct {
	Signature  string
	Slot       uint64
	Logs       []string
	ProgramIDs []string // watched programs matched in the batch
	Failed     bool
	ReceivedAt time.Time
}

// State is the listener lifecycle state.
type State string

const (
	StateStopped   State = "stopped"
	StateStarting  State = "starting"
	StateListening State = "listening"
	StateStopping  State = "stopping"
)

// Mode selects how the listener subscribes.
type Mode string

const (
	// ModeAll subscribes to every log batch and filters by program id in process.
	ModeAll Mode = "all"
	// ModeMentions opens one address-scoped subscription per program id.
	ModeMentions Mode = "mentions"
)
