// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	listenerapp "github.com/fd1az/orca-arbitrage-bot/business/listener/app"
	listenerdomain "github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// PoolSource serves pool state with explicit staleness.
type PoolSource interface {
	Tracked() []pooldomain.TrackedPool
	Get(ctx context.Context, id string, bound time.Duration) (pooldomain.PoolState, error)
}

// FeeEstimator returns the expected network fee of one transaction in SOL.
type FeeEstimator interface {
	GetRecentFeeEstimate(ctx context.Context) decimal.Decimal
}

// Valuer values token units in SOL.
type Valuer interface {
	ValueInSOL(mint string, units decimal.Decimal) (decimal.Decimal, error)
}

// MetricsSink receives pipeline events. Implementations must be safe for
// concurrent use.
type MetricsSink interface {
	OpportunityDiscovered(ctx context.Context)
	BundleCreated(ctx context.Context, size int)
	ExecutionAttempted(ctx context.Context)
	ExecutionSucceeded(ctx context.Context, realized decimal.Decimal)
	ExecutionFailed(ctx context.Context, code apperror.Code)
}

// Ledger is the part of the gateway the executor submits through.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (ledgerdomain.Blockhash, error)
	SendTransaction(ctx context.Context, raw []byte) (string, error)
	// PollSignatureStatus reads a status once; the caller owns the polling cadence.
	PollSignatureStatus(ctx context.Context, signature string) (*ledgerdomain.SignatureStatus, error)
	GetTransaction(ctx context.Context, signature string) (*ledgerdomain.TransactionMeta, error)
	PriorityFeeMicroLamports(ctx context.Context) uint64
	ComputeUnitBudget() uint32
}

// ComputeBudget is the compute unit limit and price of a transaction.
type ComputeBudget struct {
	UnitLimit     uint32
	MicroLamports uint64
}

// SignedTransaction is a serialized, signed transaction ready to send.
type SignedTransaction struct {
	Raw       []byte
	Signature string
}

// TxBuilder compiles a bundle into one signed transaction.
type TxBuilder interface {
	// Payer returns the signer address whose balances settle the bundle.
	Payer() string
	Build(ctx context.Context, bundle domain.Bundle, blockhash ledgerdomain.Blockhash, budget ComputeBudget) (SignedTransaction, error)
}

// Connector is the lifecycle of the ledger connection.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}

// EventListener produces ledger events for the watched programs.
type EventListener interface {
	Start(ctx context.Context, onEvent listenerapp.EventHandler) error
	Stop(ctx context.Context) error
	State() listenerdomain.State
	Errors() <-chan error
}

// EventQueue is the bounded hand-off between the listener and the analyzers.
type EventQueue interface {
	Push(ctx context.Context, ev listenerdomain.LedgerEvent) error
	Events() <-chan listenerdomain.LedgerEvent
	Close()
	Len() int
	Dropped() uint64
}

// Reporter consumes pipeline output for display or notification.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportBundle announces a bundle handed to the executor.
	ReportBundle(bundle domain.Bundle)

	// ReportResult announces the outcome of a bundle.
	ReportResult(result domain.ExecutionResult)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, detail string)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
