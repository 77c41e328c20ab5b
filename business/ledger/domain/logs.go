package domain

import (
	"sync"
)

// SubscriptionID identifies a live log subscription on the node.
type SubscriptionID uint64

// LogFilter selects which transactions a log subscription delivers.
// All subscribes to every transaction; otherwise Mentions must hold exactly
// one account, which is the node's limit for address-scoped subscriptions.
type LogFilter struct {
	All        bool
	Mentions   []string
	Commitment string
}

// LogBatch is one logsNotification: the log lines of a single transaction.
type LogBatch struct {
	Signature string
	Slot      uint64
	Logs      []string
	Failed    bool
	Err       string
}

// Subscription is a handle to one log subscription. Done is closed when the
// subscription ends; Err is nil after a clean unsubscribe.
type Subscription struct {
	ID     SubscriptionID
	Filter LogFilter

	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

// NewSubscription creates a live subscription handle.
func NewSubscription(id SubscriptionID, filter LogFilter) *Subscription {
	return &Subscription{
		ID:     id,
		Filter: filter,
		done:   make(chan struct{}),
	}
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the subscription ended, nil while live or after unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// End terminates the subscription. Only the first call has an effect.
func (s *Subscription) End(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
