// Package rpc provides the Solana JSON-RPC and log stream adapters for the ledger gateway.
package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/orca-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/ratelimit"
)

// ClientConfig holds configuration for the JSON-RPC client.
type ClientConfig struct {
	Endpoint          string
	Commitment        string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:          endpoint,
		Commitment:        domain.CommitmentConfirmed,
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 20,
	}
}

// Client implements app.RPCClient over HTTP JSON-RPC 2.0. Every call passes
// through the rate limiter, then the circuit breaker, then the instrumented
// HTTP client.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	http      httpclient.Client
	limiter   *ratelimit.Limiter
	cb        *circuitbreaker.CircuitBreaker[json.RawMessage]
	requestID atomic.Uint64

	tracer  trace.Tracer
	metrics *ledgerMetrics
}

// NewClient creates a JSON-RPC client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("rpc endpoint is required"))
	}

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("solana-rpc"),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	m, err := newLedgerMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	c := &Client{
		config:  cfg,
		logger:  log,
		http:    hc,
		limiter: ratelimit.NewPerSecond(cfg.RequestsPerSecond),
		tracer:  otel.Tracer(tracerName),
		metrics: m,
	}
	c.initCircuitBreaker()

	return c, nil
}

// initCircuitBreaker trips on transport failures only; a node that answers
// with a JSON-RPC error is healthy.
func (c *Client) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("solana-rpc")
	cfg.IsSuccessful = func(err error) bool {
		var rpcErr *rpcError
		return err == nil || errors.As(err, &rpcErr)
	}
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[json.RawMessage](cfg)
}

// call performs one JSON-RPC request and decodes the result into result.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	ctx, span := c.tracer.Start(ctx, "rpc."+method,
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	start := time.Now()
	methodAttr := metric.WithAttributes(attribute.String("method", method))

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	c.metrics.requests.Add(ctx, 1, methodAttr)

	raw, err := c.cb.Execute(func() (json.RawMessage, error) {
		return c.roundTrip(ctx, method, params)
	})
	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), methodAttr)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return c.classify(ctx, method, err)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			span.RecordError(err)
			return apperror.New(apperror.CodeInvalidFormat,
				apperror.WithCause(err),
				apperror.WithContext("decode "+method+" result"))
		}
	}

	span.SetStatus(codes.Ok, "ok")
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	resp, err := c.http.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("method", method)),
	).SetBody(req).Post(ctx, c.config.Endpoint)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext(method))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(resp.Body(), 256))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// classify maps a failed call onto the gateway error taxonomy.
func (c *Client) classify(ctx context.Context, method string, err error) error {
	kind := "transport"
	var out error

	var rpcErr *rpcError
	switch {
	case errors.As(err, &rpcErr):
		kind = "rpc"
		detail := rpcErr.Message
		if len(rpcErr.Data) > 0 {
			detail += " " + truncate(rpcErr.Data, 512)
		}
		out = apperror.New(apperror.CodeRPCError,
			apperror.WithCause(err),
			apperror.WithContext(method+": "+detail))
	case circuitbreaker.IsOpen(err):
		kind = "circuit_open"
		out = apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext(method))
	case errors.Is(err, context.Canceled):
		return err
	case apperror.IsAppError(err):
		out = err
	default:
		out = apperror.New(apperror.CodeConnectionError, apperror.WithCause(err), apperror.WithContext(method))
	}

	c.metrics.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("kind", kind),
	))
	return out
}

func (c *Client) commitment() map[string]any {
	return map[string]any{"commitment": c.config.Commitment}
}

// GetBalance returns the lamport balance of account.
func (c *Client) GetBalance(ctx context.Context, account string) (uint64, error) {
	var res balanceResult
	if err := c.call(ctx, "getBalance", []any{account, c.commitment()}, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetSlot returns the current slot.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, "getSlot", []any{c.commitment()}, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// GetRecentPrioritizationFees returns per-slot fees in micro-lamports per compute unit.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]uint64, error) {
	var params []any
	if len(accounts) > 0 {
		params = []any{accounts}
	}

	var res []prioritizationFee
	if err := c.call(ctx, "getRecentPrioritizationFees", params, &res); err != nil {
		return nil, err
	}

	fees := make([]uint64, len(res))
	for i, f := range res {
		fees[i] = f.PrioritizationFee
	}
	return fees, nil
}

// GetLatestBlockhash returns a recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (domain.Blockhash, error) {
	var res blockhashResult
	if err := c.call(ctx, "getLatestBlockhash", []any{c.commitment()}, &res); err != nil {
		return domain.Blockhash{}, err
	}

	raw, err := base58.Decode(res.Value.Blockhash)
	if err != nil || len(raw) != 32 {
		return domain.Blockhash{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("blockhash "+res.Value.Blockhash))
	}

	var bh domain.Blockhash
	copy(bh.Hash[:], raw)
	bh.LastValidBlockHeight = res.Value.LastValidBlockHeight
	return bh, nil
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, raw []byte, skipPreflight bool) (string, error) {
	opts := map[string]any{
		"encoding":            "base64",
		"skipPreflight":       skipPreflight,
		"preflightCommitment": c.config.Commitment,
		"maxRetries":          0,
	}

	var sig string
	if err := c.call(ctx, "sendTransaction", []any{base64.StdEncoding.EncodeToString(raw), opts}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetSignatureStatuses returns one status per signature; unknown signatures are nil.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*domain.SignatureStatus, error) {
	var res signatureStatusesResult
	params := []any{signatures, map[string]any{"searchTransactionHistory": false}}
	if err := c.call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}

	out := make([]*domain.SignatureStatus, len(res.Value))
	for i, s := range res.Value {
		if s == nil {
			continue
		}
		out[i] = &domain.SignatureStatus{
			Slot:               s.Slot,
			Confirmations:      s.Confirmations,
			ConfirmationStatus: s.ConfirmationStatus,
			Err:                s.Err,
		}
	}
	return out, nil
}

// GetTransaction returns settlement metadata for signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*domain.TransactionMeta, error) {
	params := []any{signature, map[string]any{
		"encoding":                       "json",
		"commitment":                     domain.CommitmentConfirmed,
		"maxSupportedTransactionVersion": 0,
	}}

	var res *transactionResult
	if err := c.call(ctx, "getTransaction", params, &res); err != nil {
		return nil, err
	}
	if res == nil || res.Meta == nil {
		return nil, apperror.NotFound(apperror.CodeNotFound, "transaction "+signature)
	}

	meta := &domain.TransactionMeta{
		Slot:         res.Slot,
		Fee:          res.Meta.Fee,
		Err:          res.Meta.Err,
		AccountKeys:  res.Transaction.Message.AccountKeys,
		PreBalances:  res.Meta.PreBalances,
		PostBalances: res.Meta.PostBalances,
		LogMessages:  res.Meta.LogMessages,
	}

	var err error
	if meta.PreTokenBalances, err = convertTokenBalances(res.Meta.PreTokenBalances); err != nil {
		return nil, err
	}
	if meta.PostTokenBalances, err = convertTokenBalances(res.Meta.PostTokenBalances); err != nil {
		return nil, err
	}
	return meta, nil
}

func convertTokenBalances(in []tokenBalance) ([]domain.TokenBalance, error) {
	out := make([]domain.TokenBalance, 0, len(in))
	for _, b := range in {
		amount, err := strconv.ParseUint(b.UITokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidFormat,
				apperror.WithCause(err),
				apperror.WithContext("token amount "+b.UITokenAmount.Amount))
		}
		out = append(out, domain.TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       amount,
			Decimals:     b.UITokenAmount.Decimals,
		})
	}
	return out, nil
}

// GetMultipleAccounts returns raw account data in request order; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, accounts []string) ([]*domain.AccountInfo, error) {
	params := []any{accounts, map[string]any{
		"encoding":   "base64",
		"commitment": c.config.Commitment,
	}}

	var res multipleAccountsResult
	if err := c.call(ctx, "getMultipleAccounts", params, &res); err != nil {
		return nil, err
	}

	out := make([]*domain.AccountInfo, len(res.Value))
	for i, a := range res.Value {
		if a == nil {
			continue
		}
		if len(a.Data) == 0 {
			return nil, apperror.New(apperror.CodeInvalidFormat, apperror.WithContext("account "+accounts[i]+" has no data"))
		}
		data, err := base64.StdEncoding.DecodeString(a.Data[0])
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidFormat,
				apperror.WithCause(err),
				apperror.WithContext("account data "+accounts[i]))
		}
		out[i] = &domain.AccountInfo{Owner: a.Owner, Lamports: a.Lamports, Data: data}
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
