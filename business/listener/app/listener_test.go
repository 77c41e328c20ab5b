package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerapp "github.com/fd1az/orca-arbitrage-bot/business/ledger/app"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

const (
	orcaV2 = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	orcaV1 = "DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1"
)

type fakeSource struct {
	mu           sync.Mutex
	nextID       ledgerdomain.SubscriptionID
	failAt       int // 1-based subscribe call that fails, 0 = never
	calls        int
	filters      []ledgerdomain.LogFilter
	handlers     map[ledgerdomain.SubscriptionID]ledgerapp.LogHandler
	subs         map[ledgerdomain.SubscriptionID]*ledgerdomain.Subscription
	unsubscribed []ledgerdomain.SubscriptionID
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		nextID:   100,
		handlers: make(map[ledgerdomain.SubscriptionID]ledgerapp.LogHandler),
		subs:     make(map[ledgerdomain.SubscriptionID]*ledgerdomain.Subscription),
	}
}

func (f *fakeSource) SubscribeToLogs(_ context.Context, filter ledgerdomain.LogFilter, h ledgerapp.LogHandler) (*ledgerdomain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt == f.calls {
		return nil, apperror.New(apperror.CodeSubscriptionError, apperror.WithContext("node refused"))
	}
	f.nextID++
	sub := ledgerdomain.NewSubscription(f.nextID, filter)
	f.filters = append(f.filters, filter)
	f.handlers[sub.ID] = h
	f.subs[sub.ID] = sub
	return sub, nil
}

func (f *fakeSource) Unsubscribe(_ context.Context, id ledgerdomain.SubscriptionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, id)
	if s, ok := f.subs[id]; ok {
		s.End(nil)
		delete(f.subs, id)
		delete(f.handlers, id)
	}
	return nil
}

func (f *fakeSource) deliver(id ledgerdomain.SubscriptionID, b ledgerdomain.LogBatch) {
	f.mu.Lock()
	h := f.handlers[id]
	f.mu.Unlock()
	if h != nil {
		h(context.Background(), b)
	}
}

func (f *fakeSource) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type eventSink struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (s *eventSink) handle(_ context.Context, ev domain.LedgerEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *eventSink) all() []domain.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LedgerEvent(nil), s.events...)
}

func newTestListener(src LogSource, mode domain.Mode, includeFailed bool) *Listener {
	return NewListener(Config{
		Mode:          mode,
		ProgramIDs:    []string{orcaV2, orcaV1},
		Commitment:    "processed",
		IncludeFailed: includeFailed,
	}, src, logger.NewNop())
}

func TestListener_StartAllMode(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeAll, false)
	sink := &eventSink{}

	require.NoError(t, l.Start(context.Background(), sink.handle))
	assert.Equal(t, domain.StateListening, l.State())
	require.Len(t, src.filters, 1)
	assert.True(t, src.filters[0].All)
	assert.Equal(t, "processed", src.filters[0].Commitment)

	src.deliver(101, ledgerdomain.LogBatch{Signature: "s1", Slot: 100, Logs: []string{"Program " + orcaV2 + " invoke [1]"}})
	src.deliver(101, ledgerdomain.LogBatch{Signature: "s2", Slot: 100, Logs: []string{"Program 11111111111111111111111111111111 invoke [1]"}})
	src.deliver(101, ledgerdomain.LogBatch{Signature: "s3", Slot: 101, Logs: []string{"Program " + orcaV1 + " invoke [1]", "Program " + orcaV2 + " invoke [2]"}})

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "s1", events[0].Signature)
	assert.Equal(t, []string{orcaV2}, events[0].ProgramIDs)
	assert.Equal(t, "s3", events[1].Signature)
	assert.ElementsMatch(t, []string{orcaV2, orcaV1}, events[1].ProgramIDs)
}

func TestListener_StartMentionsMode(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeMentions, false)
	sink := &eventSink{}

	require.NoError(t, l.Start(context.Background(), sink.handle))
	require.Len(t, src.filters, 2)
	assert.Equal(t, []string{orcaV2}, src.filters[0].Mentions)
	assert.Equal(t, []string{orcaV1}, src.filters[1].Mentions)

	// indirect invocation: the program is never named in the logs
	src.deliver(101, ledgerdomain.LogBatch{Signature: "cpi", Slot: 5, Logs: []string{"Program JUP6 invoke [1]"}})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, []string{orcaV2}, events[0].ProgramIDs)
}

func TestListener_MentionsRollbackOnFailure(t *testing.T) {
	src := newFakeSource()
	src.failAt = 2
	l := newTestListener(src, domain.ModeMentions, false)

	err := l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSubscriptionError))
	assert.Equal(t, domain.StateStopped, l.State())
	assert.Equal(t, []ledgerdomain.SubscriptionID{101}, src.unsubscribed)
	assert.Equal(t, 0, src.live())
}

func TestListener_StartFailureReturnsSubscriptionError(t *testing.T) {
	src := newFakeSource()
	src.failAt = 1
	l := newTestListener(src, domain.ModeAll, false)

	err := l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {})
	assert.True(t, apperror.HasCode(err, apperror.CodeSubscriptionError))
	assert.Equal(t, domain.StateStopped, l.State())

	// a later start may succeed
	require.NoError(t, l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {}))
	assert.Equal(t, domain.StateListening, l.State())
}

func TestListener_StartTwiceFails(t *testing.T) {
	l := newTestListener(newFakeSource(), domain.ModeAll, false)
	require.NoError(t, l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {}))

	err := l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {})
	assert.True(t, apperror.HasCode(err, apperror.CodeListenerNotStopped))
}

func TestListener_FailedBatches(t *testing.T) {
	tests := []struct {
		name          string
		includeFailed bool
		want          int
	}{
		{"skipped by default", false, 0},
		{"delivered when included", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			l := newTestListener(src, domain.ModeAll, tt.includeFailed)
			sink := &eventSink{}
			require.NoError(t, l.Start(context.Background(), sink.handle))

			src.deliver(101, ledgerdomain.LogBatch{Signature: "f", Failed: true, Err: `{"InstructionError":[0,{"Custom":1}]}`, Logs: []string{orcaV2}})

			assert.Len(t, sink.all(), tt.want)
		})
	}
}

func TestListener_StopIsIdempotent(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeMentions, false)
	ctx := context.Background()

	// stop before start is a no-op
	require.NoError(t, l.Stop(ctx))
	assert.Equal(t, domain.StateStopped, l.State())

	require.NoError(t, l.Start(ctx, func(context.Context, domain.LedgerEvent) {}))
	require.NoError(t, l.Stop(ctx))
	require.NoError(t, l.Stop(ctx))

	assert.Equal(t, domain.StateStopped, l.State())
	assert.Len(t, src.unsubscribed, 2)
	assert.Equal(t, 0, src.live())

	select {
	case err := <-l.Errors():
		t.Fatalf("clean stop reported %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListener_NoEventsAfterStop(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeAll, false)
	sink := &eventSink{}
	require.NoError(t, l.Start(context.Background(), sink.handle))

	// keep the handler around to simulate a late notification
	src.mu.Lock()
	h := src.handlers[101]
	src.mu.Unlock()

	require.NoError(t, l.Stop(context.Background()))
	h(context.Background(), ledgerdomain.LogBatch{Signature: "late", Logs: []string{orcaV2}})

	assert.Empty(t, sink.all())
}

func TestListener_SubscriptionLoss(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeMentions, false)
	require.NoError(t, l.Start(context.Background(), func(context.Context, domain.LedgerEvent) {}))

	src.mu.Lock()
	lost := src.subs[102]
	src.mu.Unlock()
	lost.End(errors.New("connection reset"))

	select {
	case err := <-l.Errors():
		assert.True(t, apperror.HasCode(err, apperror.CodeSubscriptionError))
	case <-time.After(time.Second):
		t.Fatal("subscription loss not reported")
	}

	require.Eventually(t, func() bool { return l.State() == domain.StateStopped }, time.Second, 5*time.Millisecond)
	// the surviving subscription is released
	assert.Contains(t, src.unsubscribed, ledgerdomain.SubscriptionID(101))
}

func TestListener_DeliveryIsSerialized(t *testing.T) {
	src := newFakeSource()
	l := newTestListener(src, domain.ModeMentions, false)

	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	handler := func(context.Context, domain.LedgerEvent) {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
	}
	require.NoError(t, l.Start(context.Background(), handler))

	var wg sync.WaitGroup
	for _, id := range []ledgerdomain.SubscriptionID{101, 102} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				src.deliver(id, ledgerdomain.LogBatch{Signature: "s", Logs: []string{"x"}})
			}
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
}
