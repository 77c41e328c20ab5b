// Package app contains application services and port definitions for the ledger context.
package app

import (
	"context"

	"github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
)

// RPCClient is the request/response side of the ledger node.
type RPCClient interface {
	GetBalance(ctx context.Context, account string) (uint64, error)
	GetSlot(ctx context.Context) (uint64, error)
	// GetRecentPrioritizationFees returns recent per-slot fees in micro-lamports per compute unit.
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]uint64, error)
	GetLatestBlockhash(ctx context.Context) (domain.Blockhash, error)
	SendTransaction(ctx context.Context, raw []byte, skipPreflight bool) (string, error)
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*domain.SignatureStatus, error)
	GetTransaction(ctx context.Context, signature string) (*domain.TransactionMeta, error)
	GetMultipleAccounts(ctx context.Context, accounts []string) ([]*domain.AccountInfo, error)
}

// LogHandler receives every batch delivered by one subscription.
type LogHandler func(ctx context.Context, batch domain.LogBatch)

// LogStream is the streaming side of the ledger node.
type LogStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, filter domain.LogFilter, handler LogHandler) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, id domain.SubscriptionID) error
	State() domain.ConnectionState
	Close() error
}
