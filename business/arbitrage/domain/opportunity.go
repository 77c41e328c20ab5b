package domain

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
)

// Opportunity is a single profitable swap found in one pool after a ledger
// event. Amounts are in token units, profit and fee in SOL.
type Opportunity struct {
	ID             string
	PoolID         string
	Direction      Direction
	InputToken     string // mint
	OutputToken    string // mint
	InputAmount    decimal.Decimal
	ExpectedOutput decimal.Decimal
	MinOutput      decimal.Decimal
	// EstimatedProfit is value(output) - value(input) - FeeEstimate.
	EstimatedProfit decimal.Decimal
	FeeEstimate     decimal.Decimal
	Slot            uint64
	EventSignature  string
	DiscoveredAt    time.Time

	// Pool is the static account layout the swap instruction is built from.
	Pool pooldomain.Metadata
}

// NewOpportunityID returns a fresh random id.
func NewOpportunityID() string {
	return uuid.NewString()
}

// IsProfitable reports whether the estimate clears minProfit.
func (o Opportunity) IsProfitable(minProfit decimal.Decimal) bool {
	return o.EstimatedProfit.GreaterThanOrEqual(minProfit)
}

// Key identifies the same trade derived from the same event.
func (o Opportunity) Key() string {
	return o.PoolID + "|" + string(o.Direction) + "|" + o.EventSignature
}

// Compare orders opportunities by profit descending, then earlier discovery,
// then id.
func Compare(a, b Opportunity) int {
	if c := b.EstimatedProfit.Cmp(a.EstimatedProfit); c != 0 {
		return c
	}
	if c := a.DiscoveredAt.Compare(b.DiscoveredAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortOpportunities sorts opps in place using Compare.
func SortOpportunities(opps []Opportunity) {
	slices.SortStableFunc(opps, Compare)
}
