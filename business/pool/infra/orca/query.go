package orca

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/cache"
	"github.com/fd1az/orca-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

const (
	tracerName = "github.com/fd1az/orca-arbitrage-bot/business/pool/infra/orca"
	meterName  = "github.com/fd1az/orca-arbitrage-bot/business/pool/infra/orca"
)

// AccountReader loads raw accounts. The ledger gateway implements it.
type AccountReader interface {
	GetMultipleAccounts(ctx context.Context, accounts []string) ([]*ledgerdomain.AccountInfo, error)
}

// queryMetrics holds OTEL metric instruments for pool queries.
type queryMetrics struct {
	queries metric.Int64Counter
	latency metric.Float64Histogram
}

func newQueryMetrics() (*queryMetrics, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &queryMetrics{}

	m.queries, err = meter.Int64Counter(
		"pool_queries_total",
		metric.WithDescription("Total pool state queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	m.latency, err = meter.Float64Histogram(
		"pool_query_latency_ms",
		metric.WithDescription("Pool state query latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Query implements app.PoolQuery against token-swap accounts. Static pool
// metadata is fetched once and cached; every query re-reads both vaults.
type Query struct {
	reader AccountReader
	logger logger.LoggerInterface
	meta   *cache.Cache[string, domain.Metadata]
	cb     *circuitbreaker.CircuitBreaker[domain.PoolState]

	tracer  trace.Tracer
	metrics *queryMetrics
}

// NewQuery creates a pool query over reader.
func NewQuery(reader AccountReader, log logger.LoggerInterface) (*Query, error) {
	m, err := newQueryMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	q := &Query{
		reader:  reader,
		logger:  log,
		meta:    cache.New[string, domain.Metadata](time.Hour),
		tracer:  otel.Tracer(tracerName),
		metrics: m,
	}

	cfg := circuitbreaker.DefaultConfig("orca-pool-query")
	cfg.IsSuccessful = func(err error) bool {
		// a malformed account is not an endpoint failure
		return err == nil || apperror.HasCode(err, apperror.CodeInvalidPoolLayout) || apperror.HasCode(err, apperror.CodeAccountNotFound)
	}
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	q.cb = circuitbreaker.New[domain.PoolState](cfg)

	return q, nil
}

// QueryPool returns the current state of the pool at id.
func (q *Query) QueryPool(ctx context.Context, id string) (domain.PoolState, error) {
	ctx, span := q.tracer.Start(ctx, "orca.QueryPool",
		trace.WithAttributes(attribute.String("pool", id)),
	)
	defer span.End()

	start := time.Now()
	state, err := q.cb.Execute(func() (domain.PoolState, error) {
		return q.query(ctx, id)
	})
	q.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	q.metrics.queries.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	return state, err
}

// Forget drops cached metadata for id.
func (q *Query) Forget(ctx context.Context, id string) {
	q.meta.Delete(ctx, id)
}

// Close stops the metadata cache janitor.
func (q *Query) Close() {
	q.meta.Close()
}

func (q *Query) query(ctx context.Context, id string) (domain.PoolState, error) {
	meta, err := q.metadata(ctx, id)
	if err != nil {
		return domain.PoolState{}, err
	}

	accounts, err := q.reader.GetMultipleAccounts(ctx, []string{meta.VaultA, meta.VaultB, id})
	if err != nil {
		return domain.PoolState{}, err
	}
	if len(accounts) != 3 || accounts[0] == nil || accounts[1] == nil || accounts[2] == nil {
		return domain.PoolState{}, apperror.NotFound(apperror.CodeAccountNotFound, "vaults of pool "+id)
	}

	vaultA, err := DecodeTokenAccount(accounts[0].Data)
	if err != nil {
		return domain.PoolState{}, err
	}
	vaultB, err := DecodeTokenAccount(accounts[1].Data)
	if err != nil {
		return domain.PoolState{}, err
	}
	// fees can be changed by the pool admin, so they are re-read with the reserves
	swap, err := DecodeSwapAccount(accounts[2].Data)
	if err != nil {
		return domain.PoolState{}, err
	}

	return domain.PoolState{
		ID:          id,
		ProgramID:   meta.ProgramID,
		TokenA:      meta.MintA,
		TokenB:      meta.MintB,
		ReserveA:    ToUnits(vaultA.Amount, meta.DecimalsA),
		ReserveB:    ToUnits(vaultB.Amount, meta.DecimalsB),
		FeeRate:     swap.FeeRate(),
		RefreshedAt: time.Now(),
		Meta:        meta,
	}, nil
}

func (q *Query) metadata(ctx context.Context, id string) (domain.Metadata, error) {
	if m, ok := q.meta.Get(ctx, id); ok {
		return m, nil
	}

	swapKey, err := solana.ParsePublicKey(id)
	if err != nil {
		return domain.Metadata{}, err
	}

	accounts, err := q.reader.GetMultipleAccounts(ctx, []string{id})
	if err != nil {
		return domain.Metadata{}, err
	}
	if len(accounts) == 0 || accounts[0] == nil {
		return domain.Metadata{}, apperror.NotFound(apperror.CodeAccountNotFound, "pool "+id)
	}

	swap, err := DecodeSwapAccount(accounts[0].Data)
	if err != nil {
		return domain.Metadata{}, err
	}

	programID, err := solana.ParsePublicKey(accounts[0].Owner)
	if err != nil {
		return domain.Metadata{}, err
	}
	authority, err := swap.Authority(swapKey, programID)
	if err != nil {
		return domain.Metadata{}, apperror.New(apperror.CodeInvalidPoolLayout,
			apperror.WithCause(err),
			apperror.WithContext("pool authority of "+id))
	}

	mints, err := q.reader.GetMultipleAccounts(ctx, []string{swap.MintA.String(), swap.MintB.String()})
	if err != nil {
		return domain.Metadata{}, err
	}
	if len(mints) != 2 || mints[0] == nil || mints[1] == nil {
		return domain.Metadata{}, apperror.NotFound(apperror.CodeAccountNotFound, "mints of pool "+id)
	}
	decA, err := DecodeMintDecimals(mints[0].Data)
	if err != nil {
		return domain.Metadata{}, err
	}
	decB, err := DecodeMintDecimals(mints[1].Data)
	if err != nil {
		return domain.Metadata{}, err
	}

	meta := domain.Metadata{
		Address:      id,
		ProgramID:    accounts[0].Owner,
		Authority:    authority.String(),
		TokenProgram: swap.TokenProgram.String(),
		VaultA:       swap.VaultA.String(),
		VaultB:       swap.VaultB.String(),
		MintA:        swap.MintA.String(),
		MintB:        swap.MintB.String(),
		PoolMint:     swap.PoolMint.String(),
		FeeAccount:   swap.FeeAccount.String(),
		DecimalsA:    decA,
		DecimalsB:    decB,
		CurveType:    swap.CurveType,
	}
	q.meta.Set(ctx, id, meta, 0)

	q.logger.Debug(ctx, "pool metadata loaded",
		"pool", id, "mint_a", meta.MintA, "mint_b", meta.MintB, "program", meta.ProgramID)
	return meta, nil
}
