package app

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

const meterName = "github.com/fd1az/orca-arbitrage-bot/business/listener/app"

// Backpressure policies of the event queue.
const (
	Block      = "block"
	DropOldest = "drop_oldest"
)

// queueMetrics holds OTEL metric instruments for the event queue.
type queueMetrics struct {
	enqueued metric.Int64Counter
	dropped  metric.Int64Counter
}

func newQueueMetrics() (*queueMetrics, error) {
	meter := otel.Meter(meterName)
	var err error

	m := &queueMetrics{}

	m.enqueued, err = meter.Int64Counter(
		"listener_events_total",
		metric.WithDescription("Total ledger events handed to the analyzer queue"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.dropped, err = meter.Int64Counter(
		"listener_events_dropped_total",
		metric.WithDescription("Total ledger events dropped by the drop_oldest policy"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// EventQueue is the bounded hand-off between the listener and the analyzer.
// With Block a full queue stalls the producer; with DropOldest the oldest
// queued event is discarded to make room.
type EventQueue struct {
	ch     chan domain.LedgerEvent
	policy string
	log    logger.LoggerInterface

	dropped atomic.Uint64
	metrics *queueMetrics

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventQueue creates a queue holding up to size events.
func NewEventQueue(size int, policy string, log logger.LoggerInterface) (*EventQueue, error) {
	if size <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "event queue size must be positive")
	}
	switch policy {
	case Block, DropOldest:
	default:
		return nil, apperror.Validation(apperror.CodeInvalidInput, "unknown backpressure policy "+policy)
	}

	m, err := newQueueMetrics()
	if err != nil {
		return nil, err
	}

	return &EventQueue{
		ch:      make(chan domain.LedgerEvent, size),
		policy:  policy,
		log:     log,
		metrics: m,
		done:    make(chan struct{}),
	}, nil
}

// Push enqueues ev. It returns an error once the queue is closed, or when ctx
// ends while blocked.
func (q *EventQueue) Push(ctx context.Context, ev domain.LedgerEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("event queue closed"))
	}

	if q.policy == Block {
		select {
		case q.ch <- ev:
			q.metrics.enqueued.Add(ctx, 1)
			return nil
		case <-q.done:
			return apperror.New(apperror.CodeInvalidState, apperror.WithContext("event queue closed"))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case q.ch <- ev:
			q.metrics.enqueued.Add(ctx, 1)
			return nil
		default:
		}

		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			q.metrics.dropped.Add(ctx, 1)
			q.log.Warn(ctx, "event queue full, dropped oldest event",
				"dropped_signature", old.Signature, "dropped_slot", old.Slot, "queued_signature", ev.Signature)
		default:
		}
	}
}

// Events is drained by the analyzer. It is closed by Close.
func (q *EventQueue) Events() <-chan domain.LedgerEvent {
	return q.ch
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *EventQueue) Cap() int {
	return cap(q.ch)
}

// Dropped returns how many events the drop_oldest policy discarded.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting events and closes Events once blocked producers have
// returned. Queued events remain readable.
func (q *EventQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}
