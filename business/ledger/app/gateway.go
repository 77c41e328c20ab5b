package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
	"github.com/fd1az/orca-arbitrage-bot/internal/cache"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// BaseSignatureFeeLamports is the fixed fee per transaction signature.
const BaseSignatureFeeLamports = 5000

const feeCacheKey = "prioritization"

// GatewayConfig holds gateway policy settings.
type GatewayConfig struct {
	MaxRetries        int
	RetryBaseDelay    time.Duration
	ComputeUnitBudget uint32
	FeeCacheTTL       time.Duration
	SkipPreflight     bool
	// FeeAccounts scopes getRecentPrioritizationFees to writable accounts of interest.
	FeeAccounts []string
}

type feeSample struct {
	count         int
	microLamports uint64 // mean per compute unit
}

// Gateway is the resilient ledger client shared by every component.
type Gateway struct {
	cfg     GatewayConfig
	rpc     RPCClient
	stream  LogStream
	retrier *Retrier
	log     logger.LoggerInterface

	feeCache *cache.Cache[string, feeSample]

	connectMu sync.Mutex
	connected atomic.Bool
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewGateway creates a Gateway over the given transports.
func NewGateway(cfg GatewayConfig, rpc RPCClient, stream LogStream, log logger.LoggerInterface) *Gateway {
	return &Gateway{
		cfg:      cfg,
		rpc:      rpc,
		stream:   stream,
		retrier:  NewRetrier(cfg.MaxRetries, cfg.RetryBaseDelay),
		log:      log,
		feeCache: cache.New[string, feeSample](time.Minute),
	}
}

// Retrier exposes the read retry policy, mainly so tests can swap the sleep.
func (g *Gateway) Retrier() *Retrier {
	return g.retrier
}

// Connect verifies the RPC endpoint and opens the log stream. A live
// connection is reused.
func (g *Gateway) Connect(ctx context.Context) error {
	g.connectMu.Lock()
	defer g.connectMu.Unlock()

	if g.closed.Load() {
		return apperror.New(apperror.CodeConnectionError, apperror.WithContext("gateway is closed"))
	}
	if g.connected.Load() && g.stream.State() == domain.StateConnected {
		return nil
	}

	slot, err := Retry(ctx, g.retrier, "getSlot", g.rpc.GetSlot)
	if err != nil {
		return connectionError(err, "rpc endpoint unreachable")
	}

	if _, err := Retry(ctx, g.retrier, "logStream.connect", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.stream.Connect(ctx)
	}); err != nil {
		return connectionError(err, "log stream unreachable")
	}

	g.connected.Store(true)
	g.log.Info(ctx, "ledger gateway connected", "slot", slot)

	return nil
}

// connectionError reports err as a ConnectionError without stacking a second
// layer on one Retry already produced.
func connectionError(err error, detail string) error {
	if apperror.GetCode(err) == apperror.CodeConnectionError {
		return err
	}
	return apperror.New(apperror.CodeConnectionError, apperror.WithCause(err), apperror.WithContext(detail))
}

// GetBalance returns the account balance in SOL.
func (g *Gateway) GetBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	lamports, err := Retry(ctx, g.retrier, "getBalance", func(ctx context.Context) (uint64, error) {
		return g.rpc.GetBalance(ctx, account)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return asset.LamportsToSOL(lamports), nil
}

// GetSlot returns the current slot.
func (g *Gateway) GetSlot(ctx context.Context) (uint64, error) {
	return Retry(ctx, g.retrier, "getSlot", g.rpc.GetSlot)
}

// GetRecentFeeEstimate returns the expected cost in SOL of one transaction
// using the configured compute budget at the mean recent priority fee. It
// returns zero when no samples exist or the lookup fails.
func (g *Gateway) GetRecentFeeEstimate(ctx context.Context) decimal.Decimal {
	s, err := g.prioritizationFee(ctx)
	if err != nil {
		g.log.Warn(ctx, "fee estimate unavailable, assuming zero cost", "error", err)
		return decimal.Zero
	}
	if s.count == 0 {
		return decimal.Zero
	}

	priority := decimal.NewFromInt(int64(s.microLamports)).
		Mul(decimal.NewFromInt(int64(g.cfg.ComputeUnitBudget))).
		Div(decimal.NewFromInt(1_000_000))
	lamports := priority.Add(decimal.NewFromInt(BaseSignatureFeeLamports))

	return lamports.Div(decimal.NewFromInt(asset.LamportsPerSOL))
}

// PriorityFeeMicroLamports returns the mean recent compute unit price, 0 when unknown.
func (g *Gateway) PriorityFeeMicroLamports(ctx context.Context) uint64 {
	s, err := g.prioritizationFee(ctx)
	if err != nil {
		return 0
	}
	return s.microLamports
}

// ComputeUnitBudget returns the per-transaction compute unit limit.
func (g *Gateway) ComputeUnitBudget() uint32 {
	return g.cfg.ComputeUnitBudget
}

// prioritizationFee serves the analyzer hot path, so the lookup is made once
// without retries. A failure is cached as an empty sample for FeeCacheTTL.
func (g *Gateway) prioritizationFee(ctx context.Context) (feeSample, error) {
	if s, ok := g.feeCache.Get(ctx, feeCacheKey); ok {
		return s, nil
	}

	fees, err := g.rpc.GetRecentPrioritizationFees(ctx, g.cfg.FeeAccounts)
	if err != nil {
		g.feeCache.Set(ctx, feeCacheKey, feeSample{}, g.cfg.FeeCacheTTL)
		return feeSample{}, connectionError(err, "getRecentPrioritizationFees")
	}

	s := feeSample{count: len(fees)}
	if len(fees) > 0 {
		var sum uint64
		for _, f := range fees {
			sum += f
		}
		s.microLamports = sum / uint64(len(fees))
	}

	g.feeCache.Set(ctx, feeCacheKey, s, g.cfg.FeeCacheTTL)
	return s, nil
}

// GetLatestBlockhash returns a recent blockhash for transaction lifetimes.
func (g *Gateway) GetLatestBlockhash(ctx context.Context) (domain.Blockhash, error) {
	return Retry(ctx, g.retrier, "getLatestBlockhash", g.rpc.GetLatestBlockhash)
}

// SendTransaction submits a signed wire transaction once. Submissions are not
// retried; the caller owns the confirmation loop.
func (g *Gateway) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	return g.rpc.SendTransaction(ctx, raw, g.cfg.SkipPreflight)
}

// PollSignatureStatus reads the status of one signature once, nil when the
// node has not seen it. It is not retried: confirmation loops poll on their
// own cadence and deadline.
func (g *Gateway) PollSignatureStatus(ctx context.Context, signature string) (*domain.SignatureStatus, error) {
	statuses, err := g.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil || len(statuses) == 0 {
		return nil, err
	}
	return statuses[0], nil
}

// GetTransaction returns settlement metadata for a confirmed signature.
func (g *Gateway) GetTransaction(ctx context.Context, signature string) (*domain.TransactionMeta, error) {
	return Retry(ctx, g.retrier, "getTransaction", func(ctx context.Context) (*domain.TransactionMeta, error) {
		return g.rpc.GetTransaction(ctx, signature)
	})
}

// GetMultipleAccounts returns raw account data in request order; missing accounts are nil.
func (g *Gateway) GetMultipleAccounts(ctx context.Context, accounts []string) ([]*domain.AccountInfo, error) {
	return Retry(ctx, g.retrier, "getMultipleAccounts", func(ctx context.Context) ([]*domain.AccountInfo, error) {
		return g.rpc.GetMultipleAccounts(ctx, accounts)
	})
}

// SubscribeToLogs opens a log subscription. The handler runs on the stream's
// read goroutine, one batch at a time. Subscriptions are not retried.
func (g *Gateway) SubscribeToLogs(ctx context.Context, filter domain.LogFilter, handler LogHandler) (*domain.Subscription, error) {
	sub, err := g.stream.Subscribe(ctx, filter, handler)
	if err != nil {
		return nil, apperror.New(apperror.CodeSubscriptionError,
			apperror.WithCause(err),
			apperror.WithContext("logsSubscribe failed"))
	}
	return sub, nil
}

// Unsubscribe cancels a log subscription.
func (g *Gateway) Unsubscribe(ctx context.Context, id domain.SubscriptionID) error {
	return g.stream.Unsubscribe(ctx, id)
}

// State returns the log stream connection state.
func (g *Gateway) State() domain.ConnectionState {
	return g.stream.State()
}

// Close releases the stream and caches. Safe to call more than once.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		g.connected.Store(false)
		g.feeCache.Close()
		err = g.stream.Close()
	})
	return err
}
