package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apm"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// Busy policies of the executor queue.
const (
	BusyQueue = "queue"
	BusyDrop  = "drop"
)

// ExecutorConfig configures submission and confirmation.
type ExecutorConfig struct {
	ConfirmationTimeout   time.Duration
	PollInterval          time.Duration
	QueueSize             int
	BusyPolicy            string
	PriorityFeeMultiplier decimal.Decimal
}

// Executor submits bundles one at a time and tracks them to confirmation.
type Executor struct {
	cfg     ExecutorConfig
	ledger  Ledger
	builder TxBuilder
	valuer  Valuer
	metrics MetricsSink
	log     logger.LoggerInterface
	tracer  apm.Tracer
	now     func() time.Time

	// single flight per signer
	mu sync.Mutex

	qmu     sync.RWMutex
	closed  bool
	queue   chan domain.Bundle
	results chan domain.ExecutionResult

	startOnce sync.Once
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewExecutor creates a new Executor.
func NewExecutor(
	cfg ExecutorConfig,
	ledger Ledger,
	builder TxBuilder,
	valuer Valuer,
	metrics MetricsSink,
	log logger.LoggerInterface,
) *Executor {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 30 * time.Second
	}
	if cfg.BusyPolicy == "" {
		cfg.BusyPolicy = BusyDrop
	}
	if cfg.PriorityFeeMultiplier.IsZero() {
		cfg.PriorityFeeMultiplier = decimal.NewFromInt(1)
	}
	return &Executor{
		cfg:     cfg,
		ledger:  ledger,
		builder: builder,
		valuer:  valuer,
		metrics: metrics,
		log:     log,
		tracer:  apm.NewTracer(tracerName),
		now:     time.Now,
		queue:   make(chan domain.Bundle, cfg.QueueSize),
		results: make(chan domain.ExecutionResult, cfg.QueueSize*4),
		done:    make(chan struct{}),
	}
}

// ExecuteBundle builds, signs, submits and confirms bundle as one
// transaction. Concurrent callers are serialized. Failures are reported in
// the result, never as a panic or error return.
func (e *Executor) ExecuteBundle(ctx context.Context, bundle domain.Bundle) domain.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.StartSpanFromContext(ctx, "executor.ExecuteBundle",
		trace.WithAttributes(
			attribute.String("bundle.id", bundle.ID),
			attribute.Int("bundle.size", bundle.Size()),
		),
	)
	defer span.End()

	e.metrics.ExecutionAttempted(ctx)
	e.log.Info(ctx, "executing bundle",
		"bundle", bundle.ID,
		"size", bundle.Size(),
		"estimated_profit_sol", bundle.TotalEstimatedProfit.String(),
	)

	res := e.execute(ctx, bundle)
	if res.Success {
		span.SetAttributes(attribute.String("tx.signature", res.Signature))
		span.SetStatus(codes.Ok, "")
		e.metrics.ExecutionSucceeded(ctx, res.RealizedProfit)
		e.log.Info(ctx, "bundle confirmed",
			"bundle", res.BundleID,
			"signature", res.Signature,
			"slot", res.Slot,
			"realized_profit_sol", res.RealizedProfit.String(),
		)
		return res
	}

	span.SetAttributes(attribute.String("error.code", string(res.ErrorCode)))
	span.Fail(errors.New(res.Error))
	e.metrics.ExecutionFailed(ctx, res.ErrorCode)
	e.log.Warn(ctx, "bundle failed",
		"bundle", res.BundleID,
		"code", res.ErrorCode,
		"error", res.Error,
		"result_unknown", res.ResultUnknown,
		"signature", res.SubmittedSignature,
	)
	return res
}

func (e *Executor) execute(ctx context.Context, bundle domain.Bundle) domain.ExecutionResult {
	if bundle.Size() == 0 {
		return domain.Failed(bundle, apperror.New(apperror.CodeEmptyBundle), e.now())
	}
	if e.builder == nil {
		return domain.Failed(bundle, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("no signer configured")), e.now())
	}

	blockhash, err := e.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return domain.Failed(bundle, err, e.now())
	}

	budget := ComputeBudget{
		UnitLimit:     e.ledger.ComputeUnitBudget(),
		MicroLamports: e.priorityFee(ctx),
	}

	tx, err := e.builder.Build(ctx, bundle, blockhash, budget)
	if err != nil {
		return domain.Failed(bundle, err, e.now())
	}

	sig, err := e.ledger.SendTransaction(ctx, tx.Raw)
	if err != nil {
		return domain.Failed(bundle, apperror.New(apperror.CodeSubmissionError,
			apperror.WithCause(err),
			apperror.WithContext("transaction rejected")), e.now())
	}
	e.log.Debug(ctx, "transaction submitted", "bundle", bundle.ID, "signature", sig)

	status, err := e.awaitConfirmation(ctx, sig)
	if err != nil {
		res := domain.Failed(bundle, err, e.now())
		res.SubmittedSignature = sig
		return res
	}

	realized := decimal.Zero
	meta, err := e.ledger.GetTransaction(ctx, sig)
	if err != nil {
		e.log.Warn(ctx, "realized profit unavailable", "signature", sig, "error", err)
	} else {
		realized = e.realizedProfit(ctx, meta, e.builder.Payer())
	}

	return domain.Succeeded(bundle, sig, status.Slot, realized, e.now())
}

// priorityFee returns the recent fee scaled by the configured multiplier.
func (e *Executor) priorityFee(ctx context.Context) uint64 {
	base := e.ledger.PriorityFeeMicroLamports(ctx)
	scaled := decimal.NewFromInt(int64(base)).Mul(e.cfg.PriorityFeeMultiplier).Floor()
	if scaled.IsNegative() {
		return 0
	}
	return scaled.BigInt().Uint64()
}

// awaitConfirmation polls the signature until it lands, fails on-chain or
// the confirmation timeout passes. Polls share the timeout's deadline.
func (e *Executor) awaitConfirmation(ctx context.Context, sig string) (*ledgerdomain.SignatureStatus, error) {
	pollCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmationTimeout)
	defer cancel()
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := e.ledger.PollSignatureStatus(pollCtx, sig)
		switch {
		case err != nil:
			e.log.Debug(ctx, "signature status poll failed", "signature", sig, "error", err)
		case status.Failed():
			return nil, apperror.New(apperror.CodeSubmissionError,
				apperror.WithContext("transaction failed on-chain: "+string(status.Err)))
		case status.Landed():
			return status, nil
		}

		select {
		case <-pollCtx.Done():
			return nil, e.confirmationTimeout(ctx)
		case <-ticker.C:
			if pollCtx.Err() != nil {
				return nil, e.confirmationTimeout(ctx)
			}
		}
	}
}

func (e *Executor) confirmationTimeout(ctx context.Context) error {
	if ctx.Err() != nil {
		return apperror.New(apperror.CodeConfirmationTimeout,
			apperror.WithCause(ctx.Err()),
			apperror.WithContext("confirmation interrupted"))
	}
	return apperror.New(apperror.CodeConfirmationTimeout,
		apperror.WithContext("no confirmation within "+e.cfg.ConfirmationTimeout.String()))
}

// realizedProfit values the payer's balance changes in SOL. Lamport deltas
// already include the network fee.
func (e *Executor) realizedProfit(ctx context.Context, meta *ledgerdomain.TransactionMeta, payer string) decimal.Decimal {
	total := decimal.Zero
	if delta, ok := meta.LamportDelta(payer); ok {
		total = total.Add(decimal.New(delta, -9))
	}

	for mint, raw := range meta.TokenDeltas(payer) {
		if raw == 0 {
			continue
		}
		units := decimal.New(raw, -int32(tokenDecimals(meta, mint)))
		value, err := e.valuer.ValueInSOL(mint, units)
		if err != nil {
			e.log.Warn(ctx, "token delta not valued", "mint", mint, "units", units.String(), "error", err)
			continue
		}
		total = total.Add(value)
	}
	return total
}

func tokenDecimals(meta *ledgerdomain.TransactionMeta, mint string) uint8 {
	for _, b := range meta.PostTokenBalances {
		if b.Mint == mint {
			return b.Decimals
		}
	}
	for _, b := range meta.PreTokenBalances {
		if b.Mint == mint {
			return b.Decimals
		}
	}
	return 0
}

// Start launches the worker that drains the submission queue.
func (e *Executor) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		e.qmu.Lock()
		e.started = true
		e.cancel = cancel
		e.qmu.Unlock()
		go e.run(runCtx)
	})
}

func (e *Executor) run(ctx context.Context) {
	defer close(e.done)
	defer close(e.results)

	for bundle := range e.queue {
		if ctx.Err() != nil {
			e.log.Warn(ctx, "bundle discarded at shutdown", "bundle", bundle.ID)
			continue
		}
		res := e.ExecuteBundle(ctx, bundle)
		select {
		case e.results <- res:
		default:
			e.log.Warn(ctx, "result channel full, result not published", "bundle", res.BundleID)
		}
	}
}

// Submit enqueues bundle for the worker. When the queue is full the drop
// policy rejects the bundle with ExecutorBusy and the queue policy waits.
func (e *Executor) Submit(ctx context.Context, bundle domain.Bundle) error {
	e.qmu.RLock()
	defer e.qmu.RUnlock()

	if e.closed {
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("executor stopped"))
	}

	if e.cfg.BusyPolicy == BusyDrop {
		select {
		case e.queue <- bundle:
			return nil
		default:
			e.log.Warn(ctx, "executor busy, bundle dropped",
				"bundle", bundle.ID,
				"size", bundle.Size(),
				"estimated_profit_sol", bundle.TotalEstimatedProfit.String(),
			)
			return apperror.New(apperror.CodeExecutorBusy)
		}
	}

	select {
	case e.queue <- bundle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results publishes the result of every queued bundle. It is closed when
// the worker exits.
func (e *Executor) Results() <-chan domain.ExecutionResult {
	return e.results
}

// Pending returns the number of queued bundles.
func (e *Executor) Pending() int {
	return len(e.queue)
}

// Stop closes the queue and waits for queued bundles to finish. When ctx
// ends first the in-flight bundle is cancelled and the rest are discarded.
func (e *Executor) Stop(ctx context.Context) {
	e.qmu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	started, cancel := e.started, e.cancel
	e.qmu.Unlock()

	if !started {
		return
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		e.log.Warn(ctx, "executor drain cut off, cancelling in-flight bundle")
		cancel()
		<-e.done
	}
	cancel()
}
