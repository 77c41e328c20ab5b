package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	arbdomain "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/notify"
)

// notifyTimeout bounds one delivery.
const notifyTimeout = 10 * time.Second

// NotifyReporter sends chat notifications for execution results and
// listener losses. Deliveries run in the background.
type NotifyReporter struct {
	notifier *notify.Notifier
	log      logger.LoggerInterface
	network  string
}

// NewNotifyReporter creates a reporter over notifier.
func NewNotifyReporter(notifier *notify.Notifier, network string, log logger.LoggerInterface) *NotifyReporter {
	return &NotifyReporter{
		notifier: notifier,
		log:      log,
		network:  network,
	}
}

// Start is a no-op.
func (r *NotifyReporter) Start(ctx context.Context) error {
	return nil
}

// ReportBundle is a no-op; only outcomes are notified.
func (r *NotifyReporter) ReportBundle(arbdomain.Bundle) {}

// ReportResult notifies the outcome of an execution.
func (r *NotifyReporter) ReportResult(res arbdomain.ExecutionResult) {
	var event, title string
	var body strings.Builder

	fmt.Fprintf(&body, "Bundle: %s\nSwaps: %d\nEstimated: %s SOL\n",
		res.BundleID, len(res.Opportunities), res.EstimatedProfit.StringFixed(6))

	switch {
	case res.Success:
		event = notify.EventExecutionSucceeded
		title = "Bundle confirmed"
		fmt.Fprintf(&body, "Realized: %s SOL\nSlot: %d\nSignature: %s",
			res.RealizedProfit.StringFixed(6), res.Slot, res.Signature)
	case res.ResultUnknown:
		event = notify.EventConfirmationTimeout
		title = "Bundle confirmation timed out"
		fmt.Fprintf(&body, "Submitted: %s\nThe transaction may still land.", res.SubmittedSignature)
	default:
		event = notify.EventExecutionFailed
		title = "Bundle failed"
		fmt.Fprintf(&body, "Code: %s\nError: %s", res.ErrorCode, res.Error)
	}

	r.deliver(event, title, body.String())
}

// UpdateConnectionStatus notifies listener losses only.
func (r *NotifyReporter) UpdateConnectionStatus(name string, connected bool, detail string) {
	if connected || name != "listener" {
		return
	}
	r.deliver(notify.EventListenerLost, "Listener disconnected", detail)
}

// Stop is a no-op.
func (r *NotifyReporter) Stop() error {
	return nil
}

func (r *NotifyReporter) deliver(event, title, message string) {
	if !r.notifier.Enabled() {
		return
	}
	if r.network != "" {
		title = fmt.Sprintf("[%s] %s", r.network, title)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := r.notifier.Notify(ctx, event, title, message); err != nil {
			r.log.Warn(ctx, "notification failed", "event", event, "error", err)
		}
	}()
}
