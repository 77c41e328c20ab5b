// Package domain contains the monitoring value types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of the pipeline counters. Fields are read
// independently, so a snapshot taken during an execution may be off by one
// between counters.
type Snapshot struct {
	BundlesAttempted        uint64
	BundlesSucceeded        uint64
	BundlesFailed           uint64
	OpportunitiesDiscovered uint64
	BundlesCreated          uint64
	// AverageBundleSize is the mean number of opportunities per created bundle.
	AverageBundleSize      decimal.Decimal
	CumulativeProfit       decimal.Decimal
	AverageProfitPerBundle decimal.Decimal
	// LastExecutionTime is zero until the first execution completes.
	LastExecutionTime time.Time
	StartedAt         time.Time
	Uptime            time.Duration
	// FailuresByCode counts failed executions per error code.
	FailuresByCode map[string]uint64
}

// SuccessRate returns succeeded/attempted, or zero before the first attempt.
func (s Snapshot) SuccessRate() decimal.Decimal {
	if s.BundlesAttempted == 0 {
		return decimal.Zero
	}
	return decimal.NewFromUint64(s.BundlesSucceeded).Div(decimal.NewFromUint64(s.BundlesAttempted))
}
