package domain

import "encoding/json"

// Confirmation levels reported by getSignatureStatuses.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// Blockhash is a recent blockhash usable as a transaction lifetime.
type Blockhash struct {
	Hash                 [32]byte
	LastValidBlockHeight uint64
}

// SignatureStatus is the node's view of a submitted transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus string
	Err                json.RawMessage
}

// Landed reports whether the status has reached at least confirmed.
func (s *SignatureStatus) Landed() bool {
	return s != nil && (s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized)
}

// Failed reports whether the transaction executed with an error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && len(s.Err) > 0 && string(s.Err) != "null"
}

// TokenBalance is one SPL token balance from transaction metadata.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       uint64
	Decimals     uint8
}

// TransactionMeta is the subset of getTransaction used for settlement.
type TransactionMeta struct {
	Slot              uint64
	Fee               uint64
	Err               json.RawMessage
	AccountKeys       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LogMessages       []string
}

// LamportDelta returns post minus pre lamports for account, ok=false when absent.
func (m *TransactionMeta) LamportDelta(account string) (int64, bool) {
	for i, key := range m.AccountKeys {
		if key != account {
			continue
		}
		if i >= len(m.PreBalances) || i >= len(m.PostBalances) {
			return 0, false
		}
		return int64(m.PostBalances[i]) - int64(m.PreBalances[i]), true
	}
	return 0, false
}

// TokenDeltas returns post minus pre raw token amounts per mint for accounts owned by owner.
func (m *TransactionMeta) TokenDeltas(owner string) map[string]int64 {
	deltas := make(map[string]int64)
	for _, b := range m.PostTokenBalances {
		if b.Owner == owner {
			deltas[b.Mint] += int64(b.Amount)
		}
	}
	for _, b := range m.PreTokenBalances {
		if b.Owner == owner {
			deltas[b.Mint] -= int64(b.Amount)
		}
	}
	for mint, d := range deltas {
		if d == 0 {
			delete(deltas, mint)
		}
	}
	return deltas
}

// AccountInfo is a raw account as returned by getMultipleAccounts.
type AccountInfo struct {
	Owner    string
	Lamports uint64
	Data     []byte
}
