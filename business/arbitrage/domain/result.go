package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// ExecutionResult is the outcome of one bundle execution.
type ExecutionResult struct {
	BundleID string
	Success  bool
	// Signature is set only on success.
	Signature string
	// SubmittedSignature is the signature of a transaction that was sent but
	// did not confirm. It allows out-of-band reconciliation.
	SubmittedSignature string
	Error              string
	ErrorCode          apperror.Code
	// ResultUnknown is set when the transaction may still land.
	ResultUnknown   bool
	Opportunities   []Opportunity
	RealizedProfit  decimal.Decimal
	EstimatedProfit decimal.Decimal
	Slot            uint64
	CompletedAt     time.Time
}

// Succeeded builds a successful result for b.
func Succeeded(b Bundle, signature string, slot uint64, realized decimal.Decimal, now time.Time) ExecutionResult {
	return ExecutionResult{
		BundleID:        b.ID,
		Success:         true,
		Signature:       signature,
		Opportunities:   b.Opportunities,
		RealizedProfit:  realized,
		EstimatedProfit: b.TotalEstimatedProfit,
		Slot:            slot,
		CompletedAt:     now,
	}
}

// Failed builds a failed result for b from err.
func Failed(b Bundle, err error, now time.Time) ExecutionResult {
	r := ExecutionResult{
		BundleID:        b.ID,
		Opportunities:   b.Opportunities,
		EstimatedProfit: b.TotalEstimatedProfit,
		CompletedAt:     now,
	}
	if err != nil {
		r.Error = err.Error()
		r.ErrorCode = apperror.GetCode(err)
		r.ResultUnknown = apperror.HasCode(err, apperror.CodeConfirmationTimeout)
	}
	return r
}
