package app

import (
	"context"

	ledgerapp "github.com/fd1az/orca-arbitrage-bot/business/ledger/app"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
)

// LogSource opens log subscriptions. The ledger gateway implements it.
type LogSource interface {
	SubscribeToLogs(ctx context.Context, filter ledgerdomain.LogFilter, handler ledgerapp.LogHandler) (*ledgerdomain.Subscription, error)
	Unsubscribe(ctx context.Context, id ledgerdomain.SubscriptionID) error
}
