// Package notify dispatches operator alerts to one or more channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

// Event types emitted by the pipeline.
const (
	EventExecutionSucceeded  = "execution_succeeded"
	EventExecutionFailed     = "execution_failed"
	EventConfirmationTimeout = "confirmation_timeout"
	EventListenerLost        = "listener_lost"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans a notification out to every sender whose event filter allows it.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	log     logger.LoggerInterface
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, log logger.LoggerInterface) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		log:     log,
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends the message when event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.log.Debug(ctx, "notification filtered", "event", event)
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.log.Error(ctx, "notification sender failed", "sender", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.log.Debug(ctx, "notification sent", "sender", s.Name(), "title", title)
	}

	return errors.Join(errs...)
}
