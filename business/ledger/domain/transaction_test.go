package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionMeta_Deltas(t *testing.T) {
	meta := &TransactionMeta{
		AccountKeys:  []string{"payer", "pool"},
		PreBalances:  []uint64{2_000_000_000, 10},
		PostBalances: []uint64{1_999_990_000, 10},
		PreTokenBalances: []TokenBalance{
			{AccountIndex: 2, Mint: "USDC", Owner: "payer", Amount: 1_000_000},
			{AccountIndex: 3, Mint: "USDC", Owner: "pool", Amount: 9_000_000},
		},
		PostTokenBalances: []TokenBalance{
			{AccountIndex: 2, Mint: "USDC", Owner: "payer", Amount: 1_250_000},
			{AccountIndex: 3, Mint: "USDC", Owner: "pool", Amount: 8_750_000},
			{AccountIndex: 4, Mint: "ORCA", Owner: "payer", Amount: 7},
		},
	}

	d, ok := meta.LamportDelta("payer")
	assert.True(t, ok)
	assert.Equal(t, int64(-10_000), d)

	_, ok = meta.LamportDelta("missing")
	assert.False(t, ok)

	assert.Equal(t, map[string]int64{"USDC": 250_000, "ORCA": 7}, meta.TokenDeltas("payer"))
}

func TestSignatureStatus(t *testing.T) {
	tests := []struct {
		name   string
		status *SignatureStatus
		landed bool
		failed bool
	}{
		{"nil", nil, false, false},
		{"processed", &SignatureStatus{ConfirmationStatus: CommitmentProcessed}, false, false},
		{"confirmed", &SignatureStatus{ConfirmationStatus: CommitmentConfirmed}, true, false},
		{"finalized with null err", &SignatureStatus{ConfirmationStatus: CommitmentFinalized, Err: json.RawMessage("null")}, true, false},
		{"failed", &SignatureStatus{ConfirmationStatus: CommitmentConfirmed, Err: json.RawMessage(`{"InstructionError":[2,{"Custom":16}]}`)}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.landed, tt.status.Landed())
			assert.Equal(t, tt.failed, tt.status.Failed())
		})
	}
}

func TestSubscription_EndOnce(t *testing.T) {
	sub := NewSubscription(7, LogFilter{All: true})
	sub.End(assert.AnError)
	sub.End(nil)

	<-sub.Done()
	assert.Equal(t, assert.AnError, sub.Err())
}
