// Package domain contains the core domain types for the pool context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metadata is the static part of a pool account. It does not change between
// refreshes and carries everything needed to build a swap instruction.
type Metadata struct {
	Address      string
	ProgramID    string
	Authority    string
	TokenProgram string
	VaultA       string
	VaultB       string
	MintA        string
	MintB        string
	PoolMint     string
	FeeAccount   string
	DecimalsA    uint8
	DecimalsB    uint8
	CurveType    uint8
}

// PoolState is a point-in-time view of one pool. Reserves are in token units.
type PoolState struct {
	ID          string
	ProgramID   string
	TokenA      string // mint
	TokenB      string // mint
	ReserveA    decimal.Decimal
	ReserveB    decimal.Decimal
	FeeRate     decimal.Decimal // fraction, 0.003 = 0.3%
	RefreshedAt time.Time
	Meta        Metadata
}

// Age returns how old the state is at now.
func (p PoolState) Age(now time.Time) time.Duration {
	return now.Sub(p.RefreshedAt)
}

// IsStale reports whether the state is older than bound. A zero bound never goes stale.
func (p PoolState) IsStale(bound time.Duration, now time.Time) bool {
	return bound > 0 && p.Age(now) > bound
}

// Has reports whether mint is one of the pool's tokens.
func (p PoolState) Has(mint string) bool {
	return mint == p.TokenA || mint == p.TokenB
}

// Reserves returns (reserveIn, reserveOut) for a trade that sells inputMint.
func (p PoolState) Reserves(inputMint string) (decimal.Decimal, decimal.Decimal, bool) {
	switch inputMint {
	case p.TokenA:
		return p.ReserveA, p.ReserveB, true
	case p.TokenB:
		return p.ReserveB, p.ReserveA, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

// Other returns the counterpart of mint in the pair.
func (p PoolState) Other(mint string) string {
	if mint == p.TokenA {
		return p.TokenB
	}
	return p.TokenA
}

// Decimals returns the decimals of mint, or false when mint is not in the pair.
func (p PoolState) Decimals(mint string) (uint8, bool) {
	switch mint {
	case p.TokenA:
		return p.Meta.DecimalsA, true
	case p.TokenB:
		return p.Meta.DecimalsB, true
	default:
		return 0, false
	}
}

// TrackedPool is a pool the bot watches.
type TrackedPool struct {
	Address   string
	ProgramID string
}
