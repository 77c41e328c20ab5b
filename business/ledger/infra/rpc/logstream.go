package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/orca-arbitrage-bot/business/ledger/app"
	"github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/wsconn"
)

// StreamConfig holds configuration for the log stream.
type StreamConfig struct {
	Endpoint       string
	Commitment     string        // default when a filter carries none
	RequestTimeout time.Duration // subscribe/unsubscribe round trip
	PingInterval   time.Duration

	// Redial policy used by Subscribe when the socket dropped.
	ReconnectBackoff  time.Duration
	ReconnectAttempts int
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig(endpoint string) StreamConfig {
	return StreamConfig{
		Endpoint:          endpoint,
		Commitment:        domain.CommitmentConfirmed,
		RequestTimeout:    10 * time.Second,
		PingInterval:      30 * time.Second,
		ReconnectBackoff:  time.Second,
		ReconnectAttempts: 3,
	}
}

type wsReply struct {
	result json.RawMessage
	err    error
	sub    *domain.Subscription
}

type pendingRequest struct {
	reply chan wsReply
	// set for logsSubscribe so the read loop can register the subscription
	// before any notification for it is routed
	filter  *domain.LogFilter
	handler app.LogHandler
}

type activeSub struct {
	sub     *domain.Subscription
	handler app.LogHandler
}

// LogStream implements app.LogStream with logsSubscribe over a websocket.
// Notifications are dispatched from the socket's single read goroutine, so
// handlers observe batches in transport order.
type LogStream struct {
	config StreamConfig
	logger logger.LoggerInterface
	ws     *wsconn.Client

	requestID atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]*pendingRequest

	subsMu sync.RWMutex
	subs   map[domain.SubscriptionID]*activeSub

	tracer  trace.Tracer
	metrics *ledgerMetrics
}

// NewLogStream creates a log stream. Call Connect before subscribing.
func NewLogStream(cfg StreamConfig, log logger.LoggerInterface) (*LogStream, error) {
	wsCfg := wsconn.DefaultConfig(cfg.Endpoint, "solana-logs")
	wsCfg.PingInterval = cfg.PingInterval
	if cfg.ReconnectBackoff > 0 {
		wsCfg.InitialBackoff = cfg.ReconnectBackoff
	}
	if cfg.ReconnectAttempts > 0 {
		wsCfg.MaxReconnects = cfg.ReconnectAttempts
	}

	ws, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, err
	}

	m, err := newLedgerMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s := &LogStream{
		config:  cfg,
		logger:  log,
		ws:      ws,
		pending: make(map[uint64]*pendingRequest),
		subs:    make(map[domain.SubscriptionID]*activeSub),
		tracer:  otel.Tracer(tracerName),
		metrics: m,
	}

	ws.OnMessage(s.handleMessage)
	ws.OnStateChange(s.handleStateChange)

	return s, nil
}

// Connect dials the websocket endpoint. It is a no-op while connected.
func (s *LogStream) Connect(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "logs.connect",
		trace.WithAttributes(attribute.String("url", s.config.Endpoint)),
	)
	defer span.End()

	if err := s.ws.Connect(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return err
	}

	span.SetStatus(codes.Ok, "connected")
	return nil
}

// Subscribe opens a logsSubscribe subscription. A dropped socket is
// redialed first; a closed stream stays closed.
func (s *LogStream) Subscribe(ctx context.Context, filter domain.LogFilter, handler app.LogHandler) (*domain.Subscription, error) {
	ctx, span := s.tracer.Start(ctx, "logs.subscribe",
		trace.WithAttributes(
			attribute.Bool("all", filter.All),
			attribute.StringSlice("mentions", filter.Mentions),
		),
	)
	defer span.End()

	if !filter.All && len(filter.Mentions) != 1 {
		err := apperror.Validation(apperror.CodeInvalidInput, "mentions filter takes exactly one address")
		span.RecordError(err)
		return nil, err
	}

	if !s.ws.IsConnected() {
		if err := s.ws.ConnectWithRetry(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "redial failed")
			return nil, err
		}
		s.logger.Info(ctx, "log stream redialed", "url", s.config.Endpoint)
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = s.config.Commitment
	}

	var target any = "all"
	if !filter.All {
		target = map[string]any{"mentions": filter.Mentions}
	}

	reply, err := s.request(ctx, "logsSubscribe",
		[]any{target, map[string]string{"commitment": commitment}},
		&pendingRequest{filter: &filter, handler: handler},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("subscription", int64(reply.sub.ID)))
	span.SetStatus(codes.Ok, "subscribed")
	s.logger.Info(ctx, "log subscription opened", "subscription", reply.sub.ID, "all", filter.All, "mentions", filter.Mentions)

	return reply.sub, nil
}

// Unsubscribe cancels a subscription. Unknown ids are ignored.
func (s *LogStream) Unsubscribe(ctx context.Context, id domain.SubscriptionID) error {
	ctx, span := s.tracer.Start(ctx, "logs.unsubscribe",
		trace.WithAttributes(attribute.Int64("subscription", int64(id))),
	)
	defer span.End()

	s.subsMu.Lock()
	active, ok := s.subs[id]
	delete(s.subs, id)
	s.subsMu.Unlock()

	if !ok {
		return nil
	}
	defer active.sub.End(nil)

	if !s.ws.IsConnected() {
		return nil
	}

	if _, err := s.request(ctx, "logsUnsubscribe", []any{uint64(id)}, &pendingRequest{}); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "unsubscribed")
	return nil
}

// State maps the socket state onto the gateway's connection state.
func (s *LogStream) State() domain.ConnectionState {
	return mapState(s.ws.State())
}

// Close closes the socket. Open subscriptions end with a websocket closed error.
func (s *LogStream) Close() error {
	return s.ws.Close()
}

// request sends one JSON-RPC request and waits for its reply.
func (s *LogStream) request(ctx context.Context, method string, params []any, p *pendingRequest) (wsReply, error) {
	id := s.requestID.Add(1)
	p.reply = make(chan wsReply, 1)

	s.pendingMu.Lock()
	s.pending[id] = p
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	if err := s.ws.SendJSON(ctx, rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return wsReply{}, err
	}

	timeout := time.NewTimer(s.config.RequestTimeout)
	defer timeout.Stop()

	select {
	case r := <-p.reply:
		return r, r.err
	case <-ctx.Done():
		return wsReply{}, ctx.Err()
	case <-timeout.C:
		return wsReply{}, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithContext(fmt.Sprintf("%s: no reply within %s", method, s.config.RequestTimeout)))
	}
}

// handleMessage runs on the socket read goroutine.
func (s *LogStream) handleMessage(ctx context.Context, data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn(ctx, "undecodable websocket frame", "error", err)
		return
	}

	switch {
	case msg.ID != nil:
		s.handleReply(*msg.ID, msg)
	case msg.Method == "logsNotification":
		s.handleNotification(ctx, msg.Params)
	}
}

func (s *LogStream) handleReply(id uint64, msg wsMessage) {
	s.pendingMu.Lock()
	p, ok := s.pending[id]
	s.pendingMu.Unlock()
	if !ok {
		return
	}

	r := wsReply{result: msg.Result}
	switch {
	case msg.Error != nil:
		r.err = apperror.New(apperror.CodeRPCError, apperror.WithCause(msg.Error))
	case p.filter != nil:
		var subID uint64
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			r.err = apperror.New(apperror.CodeInvalidFormat, apperror.WithCause(err), apperror.WithContext("subscription id"))
			break
		}
		r.sub = domain.NewSubscription(domain.SubscriptionID(subID), *p.filter)

		s.subsMu.Lock()
		s.subs[r.sub.ID] = &activeSub{sub: r.sub, handler: p.handler}
		s.subsMu.Unlock()
	}

	p.reply <- r
}

func (s *LogStream) handleNotification(ctx context.Context, params json.RawMessage) {
	var n logsNotification
	if err := json.Unmarshal(params, &n); err != nil {
		s.logger.Warn(ctx, "undecodable logs notification", "error", err)
		return
	}

	s.subsMu.RLock()
	active, ok := s.subs[domain.SubscriptionID(n.Subscription)]
	s.subsMu.RUnlock()
	if !ok {
		return
	}

	v := n.Result.Value
	batch := domain.LogBatch{
		Signature: v.Signature,
		Slot:      n.Result.Context.Slot,
		Logs:      v.Logs,
	}
	if len(v.Err) > 0 && string(v.Err) != "null" {
		batch.Failed = true
		batch.Err = string(v.Err)
	}

	s.metrics.notifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("failed", batch.Failed)))

	active.handler(ctx, batch)
}

func (s *LogStream) handleStateChange(state wsconn.State, err error) {
	ctx := context.Background()
	s.metrics.connectionState.Record(ctx, mapState(state).Int())

	var cause error
	switch state {
	case wsconn.StateDisconnected:
		s.logger.Warn(ctx, "log stream disconnected", "error", err)
		cause = apperror.New(apperror.CodeSubscriptionError,
			apperror.WithCause(err),
			apperror.WithContext("log stream connection lost"))
	case wsconn.StateClosed:
		cause = apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext("log stream closed"))
	default:
		return
	}

	s.endAll(cause)

	s.pendingMu.Lock()
	for id, p := range s.pending {
		select {
		case p.reply <- wsReply{err: cause}:
		default:
		}
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()
}

func (s *LogStream) endAll(cause error) {
	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[domain.SubscriptionID]*activeSub)
	s.subsMu.Unlock()

	for _, a := range subs {
		a.sub.End(cause)
	}
}

func mapState(state wsconn.State) domain.ConnectionState {
	switch state {
	case wsconn.StateConnecting:
		return domain.StateConnecting
	case wsconn.StateConnected:
		return domain.StateConnected
	case wsconn.StateReconnecting:
		return domain.StateReconnecting
	default:
		return domain.StateDisconnected
	}
}
