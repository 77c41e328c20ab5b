package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SwapLeg is one swap instruction of a bundle's transaction.
type SwapLeg struct {
	PoolID     string
	Direction  Direction
	InputMint  string
	OutputMint string
	AmountIn   decimal.Decimal
	MinOut     decimal.Decimal
}

// Bundle is an ordered, conflict-free group of opportunities executed as one
// atomic transaction. It is not modified after creation.
type Bundle struct {
	ID            string
	Opportunities []Opportunity

	// Transactions are the legs of the single transaction, in opportunity order.
	Transactions []SwapLeg

	// TotalEstimatedProfit is the sum of the members' EstimatedProfit. Each
	// member already paid a whole transaction fee, so it undercounts by
	// (N-1) fees and is the conservative figure used for reporting.
	TotalEstimatedProfit decimal.Decimal

	// NetworkFee is the one fee the bundle's single transaction pays, and
	// NetEstimatedProfit charges it once for the whole bundle.
	NetworkFee         decimal.Decimal
	NetEstimatedProfit decimal.Decimal

	CreatedAt time.Time
}

// NewBundle creates a bundle over opps, which must already be selected.
func NewBundle(opps []Opportunity, now time.Time) Bundle {
	members := make([]Opportunity, len(opps))
	copy(members, opps)

	legs := make([]SwapLeg, 0, len(members))
	total, gross, fee := decimal.Zero, decimal.Zero, decimal.Zero
	for _, o := range members {
		total = total.Add(o.EstimatedProfit)
		gross = gross.Add(o.EstimatedProfit).Add(o.FeeEstimate)
		if o.FeeEstimate.GreaterThan(fee) {
			fee = o.FeeEstimate
		}
		legs = append(legs, SwapLeg{
			PoolID:     o.PoolID,
			Direction:  o.Direction,
			InputMint:  o.InputToken,
			OutputMint: o.OutputToken,
			AmountIn:   o.InputAmount,
			MinOut:     o.MinOutput,
		})
	}

	return Bundle{
		ID:                   uuid.NewString(),
		Opportunities:        members,
		Transactions:         legs,
		TotalEstimatedProfit: total,
		NetworkFee:           fee,
		NetEstimatedProfit:   gross.Sub(fee),
		CreatedAt:            now,
	}
}

// Size returns the number of opportunities.
func (b Bundle) Size() int {
	return len(b.Opportunities)
}

// PoolIDs returns the pools touched by the bundle, in order.
func (b Bundle) PoolIDs() []string {
	ids := make([]string, 0, len(b.Opportunities))
	for _, o := range b.Opportunities {
		ids = append(ids, o.PoolID)
	}
	return ids
}
