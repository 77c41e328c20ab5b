// Package app contains the event listener and its bounded event queue.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// EventHandler receives matched events one at a time, in transport order.
type EventHandler func(ctx context.Context, ev domain.LedgerEvent)

// Config configures the listener.
type Config struct {
	Mode          domain.Mode
	ProgramIDs    []string
	Commitment    string
	IncludeFailed bool
	// UnsubscribeTimeout bounds each unsubscribe call during Stop.
	UnsubscribeTimeout time.Duration
}

// Listener turns log subscriptions into LedgerEvents for the watched programs.
// It holds at most one logical subscription; in mentions mode that is one
// transport subscription per program id.
type Listener struct {
	cfg    Config
	source LogSource
	log    logger.LoggerInterface
	now    func() time.Time

	mu      sync.Mutex
	state   domain.State
	subs    []*ledgerdomain.Subscription
	onEvent EventHandler
	// generation invalidates watchers of a previous Start.
	generation uint64

	// serializes onEvent across transport subscriptions
	deliverMu sync.Mutex

	errs chan error
}

// NewListener creates a stopped listener.
func NewListener(cfg Config, source LogSource, log logger.LoggerInterface) *Listener {
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeAll
	}
	if cfg.UnsubscribeTimeout <= 0 {
		cfg.UnsubscribeTimeout = 5 * time.Second
	}
	return &Listener{
		cfg:    cfg,
		source: source,
		log:    log,
		now:    time.Now,
		state:  domain.StateStopped,
		errs:   make(chan error, 8),
	}
}

// State returns the lifecycle state.
func (l *Listener) State() domain.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Errors delivers subscription losses. The listener is Stopped when one is sent.
func (l *Listener) Errors() <-chan error {
	return l.errs
}

// Start subscribes and moves Stopped -> Starting -> Listening. A failed
// subscribe returns a SubscriptionError and leaves the listener Stopped with
// no subscription held.
func (l *Listener) Start(ctx context.Context, onEvent EventHandler) error {
	l.mu.Lock()
	if l.state != domain.StateStopped {
		state := l.state
		l.mu.Unlock()
		return apperror.New(apperror.CodeListenerNotStopped, apperror.WithContext("listener is "+string(state)))
	}
	l.state = domain.StateStarting
	l.onEvent = onEvent
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	l.log.Info(ctx, "starting listener", "mode", l.cfg.Mode, "programs", l.cfg.ProgramIDs)

	subs, err := l.subscribe(ctx)
	if err != nil {
		l.mu.Lock()
		l.state = domain.StateStopped
		l.onEvent = nil
		l.mu.Unlock()

		l.log.Error(ctx, "listener subscribe failed", "error", err)
		if apperror.HasCode(err, apperror.CodeSubscriptionError) {
			return err
		}
		return apperror.New(apperror.CodeSubscriptionError, apperror.WithCause(err))
	}

	l.mu.Lock()
	if l.generation != gen {
		// Stop ran while subscribing
		l.mu.Unlock()
		l.unsubscribeAll(ctx, subs)
		return apperror.New(apperror.CodeSubscriptionError, apperror.WithContext("listener stopped during start"))
	}
	l.subs = subs
	l.state = domain.StateListening
	l.mu.Unlock()

	for _, s := range subs {
		go l.watch(gen, s)
	}

	l.log.Info(ctx, "listener started", "subscriptions", len(subs))
	return nil
}

// subscribe opens the subscriptions of the configured mode. In mentions mode
// a failure unsubscribes whatever was already established.
func (l *Listener) subscribe(ctx context.Context) ([]*ledgerdomain.Subscription, error) {
	if l.cfg.Mode == domain.ModeAll {
		sub, err := l.source.SubscribeToLogs(ctx, ledgerdomain.LogFilter{All: true, Commitment: l.cfg.Commitment}, l.handler(""))
		if err != nil {
			return nil, err
		}
		return []*ledgerdomain.Subscription{sub}, nil
	}

	subs := make([]*ledgerdomain.Subscription, 0, len(l.cfg.ProgramIDs))
	for _, program := range l.cfg.ProgramIDs {
		filter := ledgerdomain.LogFilter{Mentions: []string{program}, Commitment: l.cfg.Commitment}
		sub, err := l.source.SubscribeToLogs(ctx, filter, l.handler(program))
		if err != nil {
			l.unsubscribeAll(ctx, subs)
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// handler converts batches of one transport subscription. scoped is the
// program the subscription mentions, empty for an "all" subscription.
func (l *Listener) handler(scoped string) func(ctx context.Context, b ledgerdomain.LogBatch) {
	return func(ctx context.Context, b ledgerdomain.LogBatch) {
		l.mu.Lock()
		state, onEvent := l.state, l.onEvent
		l.mu.Unlock()

		if state != domain.StateListening || onEvent == nil {
			return
		}

		if b.Failed && !l.cfg.IncludeFailed {
			l.log.Debug(ctx, "skipping failed transaction", "signature", b.Signature, "error", b.Err)
			return
		}

		programs := l.matchPrograms(b.Logs, scoped)
		if len(programs) == 0 {
			return
		}

		ev := domain.LedgerEvent{
			Signature:  b.Signature,
			Slot:       b.Slot,
			Logs:       b.Logs,
			ProgramIDs: programs,
			Failed:     b.Failed,
			ReceivedAt: l.now(),
		}

		l.deliverMu.Lock()
		defer l.deliverMu.Unlock()
		onEvent(ctx, ev)
	}
}

// matchPrograms returns the watched programs referenced by logs. An
// address-scoped batch always matches its program, even when the program was
// invoked indirectly and never named in the logs.
func (l *Listener) matchPrograms(logs []string, scoped string) []string {
	var out []string
	if scoped != "" {
		out = append(out, scoped)
	}
	for _, program := range l.cfg.ProgramIDs {
		if program == scoped {
			continue
		}
		for _, line := range logs {
			if strings.Contains(line, program) {
				out = append(out, program)
				break
			}
		}
	}
	return out
}

// watch reports an unexpected end of sub as a subscription loss.
func (l *Listener) watch(gen uint64, sub *ledgerdomain.Subscription) {
	<-sub.Done()

	err := sub.Err()
	if err == nil {
		return
	}

	l.mu.Lock()
	if l.generation != gen || l.state != domain.StateListening {
		l.mu.Unlock()
		return
	}
	subs := l.subs
	l.subs = nil
	l.state = domain.StateStopping
	l.mu.Unlock()

	ctx := context.Background()
	l.log.Error(ctx, "log subscription lost", "subscription", sub.ID, "error", err)

	others := make([]*ledgerdomain.Subscription, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			others = append(others, s)
		}
	}
	l.unsubscribeAll(ctx, others)

	l.mu.Lock()
	l.state = domain.StateStopped
	l.onEvent = nil
	l.mu.Unlock()

	lost := apperror.New(apperror.CodeSubscriptionError,
		apperror.WithCause(err),
		apperror.WithContext("log subscription lost"))
	select {
	case l.errs <- lost:
	default:
		l.log.Warn(ctx, "listener error channel full", "error", lost)
	}
}

// Stop moves Listening -> Stopping -> Stopped and unsubscribes. It is a no-op
// when the listener is already stopped or stopping.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.state == domain.StateStopped || l.state == domain.StateStopping {
		l.mu.Unlock()
		return nil
	}
	l.state = domain.StateStopping
	subs := l.subs
	l.subs = nil
	l.generation++
	l.mu.Unlock()

	l.unsubscribeAll(ctx, subs)

	l.mu.Lock()
	l.state = domain.StateStopped
	l.onEvent = nil
	l.mu.Unlock()

	l.log.Info(ctx, "listener stopped")
	return nil
}

func (l *Listener) unsubscribeAll(ctx context.Context, subs []*ledgerdomain.Subscription) {
	for _, s := range subs {
		uctx, cancel := context.WithTimeout(ctx, l.cfg.UnsubscribeTimeout)
		if err := l.source.Unsubscribe(uctx, s.ID); err != nil {
			l.log.Warn(ctx, "unsubscribe failed", "subscription", s.ID, "error", err)
		}
		cancel()
	}
}
