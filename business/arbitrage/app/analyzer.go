package app

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	listenerdomain "github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apm"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

const tracerName = "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"

// DefaultLadder is the fraction of the trade size bound tried per direction.
var DefaultLadder = []decimal.Decimal{
	decimal.RequireFromString("0.25"),
	decimal.RequireFromString("0.5"),
	decimal.NewFromInt(1),
}

// AnalyzerConfig holds the trading parameters of the analyzer.
type AnalyzerConfig struct {
	// MaxTradeSize bounds the input of one swap, valued in SOL.
	MaxTradeSize decimal.Decimal
	// Slippage is a fraction, 0.005 = 0.5%.
	Slippage       decimal.Decimal
	MinProfit      decimal.Decimal
	StalenessBound time.Duration
	Ladder         []decimal.Decimal
}

// Analyzer turns a ledger event into the profitable opportunities it opened.
type Analyzer struct {
	cfg     AnalyzerConfig
	pools   PoolSource
	curve   pooldomain.Curve
	fees    FeeEstimator
	valuer  Valuer
	metrics MetricsSink
	log     logger.LoggerInterface
	tracer  apm.Tracer
	now     func() time.Time
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(
	cfg AnalyzerConfig,
	pools PoolSource,
	curve pooldomain.Curve,
	fees FeeEstimator,
	valuer Valuer,
	metrics MetricsSink,
	log logger.LoggerInterface,
) *Analyzer {
	if len(cfg.Ladder) == 0 {
		cfg.Ladder = DefaultLadder
	}
	return &Analyzer{
		cfg:     cfg,
		pools:   pools,
		curve:   curve,
		fees:    fees,
		valuer:  valuer,
		metrics: metrics,
		log:     log,
		tracer:  apm.NewTracer(tracerName),
		now:     time.Now,
	}
}

// SetClock replaces the clock used for DiscoveredAt.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// Analyze evaluates every pool the event touched. Per-pool failures are
// logged and never abort the analysis. The result is sorted by Compare.
func (a *Analyzer) Analyze(ctx context.Context, ev listenerdomain.LedgerEvent) []domain.Opportunity {
	ctx, span := a.tracer.StartSpanFromContext(ctx, "analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("event.signature", ev.Signature),
			attribute.Int64("event.slot", int64(ev.Slot)),
		),
	)
	defer span.End()

	affected := a.affectedPools(ev)
	if len(affected) == 0 {
		a.log.Debug(ctx, "event touches no tracked pool", "signature", ev.Signature)
		return nil
	}

	fee := a.fees.GetRecentFeeEstimate(ctx)

	var found []domain.Opportunity
	for _, id := range affected {
		if ctx.Err() != nil {
			break
		}

		state, err := a.pools.Get(ctx, id, a.cfg.StalenessBound)
		if err != nil {
			a.log.Warn(ctx, "pool lookup failed, skipping", "pool", id, "error", err)
			continue
		}

		opp, ok := a.analyzePool(ctx, state, ev, fee)
		if ok {
			found = append(found, opp)
		}
	}

	domain.SortOpportunities(found)
	span.SetAttributes(
		attribute.Int("pools.affected", len(affected)),
		attribute.Int("opportunities", len(found)),
	)
	for _, opp := range found {
		a.metrics.OpportunityDiscovered(ctx)
		a.log.Info(ctx, "opportunity found",
			"id", opp.ID,
			"pool", opp.PoolID,
			"direction", opp.Direction,
			"input", opp.InputAmount.String(),
			"expected_output", opp.ExpectedOutput.String(),
			"profit_sol", opp.EstimatedProfit.String(),
		)
	}
	return found
}

// affectedPools returns the tracked pools named in the logs or, when none is
// named, every tracked pool of the event's programs.
func (a *Analyzer) affectedPools(ev listenerdomain.LedgerEvent) []string {
	tracked := a.pools.Tracked()

	var named []string
	for _, p := range tracked {
		for _, line := range ev.Logs {
			if strings.Contains(line, p.Address) {
				named = append(named, p.Address)
				break
			}
		}
	}
	if len(named) > 0 {
		return named
	}

	var byProgram []string
	for _, p := range tracked {
		if slices.Contains(ev.ProgramIDs, p.ProgramID) {
			byProgram = append(byProgram, p.Address)
		}
	}
	return byProgram
}

// analyzePool returns the best opportunity of the pool over both directions.
func (a *Analyzer) analyzePool(ctx context.Context, state pooldomain.PoolState, ev listenerdomain.LedgerEvent, fee decimal.Decimal) (domain.Opportunity, bool) {
	var best *domain.Opportunity
	for _, dir := range domain.Directions() {
		opp, ok := a.bestForDirection(ctx, state, dir, ev, fee)
		if !ok {
			continue
		}
		if best == nil || opp.EstimatedProfit.GreaterThan(best.EstimatedProfit) {
			best = &opp
		}
	}

	if best == nil {
		return domain.Opportunity{}, false
	}
	if !best.IsProfitable(a.cfg.MinProfit) {
		a.log.Debug(ctx, "opportunity discarded below threshold",
			"pool", best.PoolID,
			"direction", best.Direction,
			"profit_sol", best.EstimatedProfit.String(),
			"threshold", a.cfg.MinProfit.String(),
		)
		return domain.Opportunity{}, false
	}
	return *best, true
}

// bestForDirection walks the size ladder and keeps the most profitable size.
func (a *Analyzer) bestForDirection(ctx context.Context, state pooldomain.PoolState, dir domain.Direction, ev listenerdomain.LedgerEvent, fee decimal.Decimal) (domain.Opportunity, bool) {
	in, out := state.TokenA, state.TokenB
	if dir == domain.DirectionBToA {
		in, out = out, in
	}

	reserveIn, _, _ := state.Reserves(in)
	inDecimals, _ := state.Decimals(in)
	outDecimals, _ := state.Decimals(out)

	unitPrice, err := a.valuer.ValueInSOL(in, decimal.NewFromInt(1))
	if err != nil || !unitPrice.IsPositive() {
		a.log.Debug(ctx, "no reference price for input token", "pool", state.ID, "mint", in, "error", err)
		return domain.Opportunity{}, false
	}
	bound := a.cfg.MaxTradeSize.Div(unitPrice)

	keep := decimal.NewFromInt(1).Sub(a.cfg.Slippage)

	var best *domain.Opportunity
	for _, step := range a.cfg.Ladder {
		size := decimal.Min(bound.Mul(step), reserveIn).Truncate(int32(inDecimals))
		if !size.IsPositive() {
			continue
		}

		expected, err := a.curve.Quote(state, in, size)
		if err != nil {
			a.log.Debug(ctx, "quote rejected", "pool", state.ID, "direction", dir, "size", size.String(), "error", err)
			continue
		}

		inValue, err := a.valuer.ValueInSOL(in, size)
		if err != nil {
			continue
		}
		outValue, err := a.valuer.ValueInSOL(out, expected)
		if err != nil {
			a.log.Debug(ctx, "no reference price for output token", "pool", state.ID, "mint", out, "error", err)
			return domain.Opportunity{}, false
		}

		profit := outValue.Sub(inValue).Sub(fee)
		if best != nil && !profit.GreaterThan(best.EstimatedProfit) {
			continue
		}

		best = &domain.Opportunity{
			ID:              domain.NewOpportunityID(),
			PoolID:          state.ID,
			Direction:       dir,
			InputToken:      in,
			OutputToken:     out,
			InputAmount:     size,
			ExpectedOutput:  expected,
			MinOutput:       expected.Mul(keep).Truncate(int32(outDecimals)),
			EstimatedProfit: profit,
			FeeEstimate:     fee,
			Slot:            ev.Slot,
			EventSignature:  ev.Signature,
			DiscoveredAt:    a.now(),
			Pool:            state.Meta,
		}
	}

	if best == nil {
		return domain.Opportunity{}, false
	}
	return *best, true
}
