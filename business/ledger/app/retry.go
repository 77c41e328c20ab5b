package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier retries ledger reads with exponential backoff.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
	// Retryable decides whether err deserves another attempt.
	Retryable func(err error) bool
}

// NewRetrier creates a Retrier making up to maxAttempts attempts, waiting
// baseDelay, 2*baseDelay, 4*baseDelay... between them.
func NewRetrier(maxAttempts int, baseDelay time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Sleep:       sleepContext,
		Retryable:   IsRetryable,
	}
}

// Backoff returns the wait before attempt n+1, n counting from 1.
func (r *Retrier) Backoff(n int) time.Duration {
	return r.BaseDelay << (n - 1)
}

// Retry runs fn under r. When every attempt fails it returns exactly one
// ConnectionError layer around the last failure. Errors rejected by Retryable are
// returned unchanged.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !r.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == r.MaxAttempts {
			break
		}
		if err := r.Sleep(ctx, r.Backoff(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, apperror.New(apperror.CodeConnectionError,
		apperror.WithCause(unwrapConnectionError(lastErr)),
		apperror.WithContext(fmt.Sprintf("%s failed after %d attempts", op, r.MaxAttempts)))
}

// unwrapConnectionError strips an outer ConnectionError so wrapping err in
// a new one leaves a single layer.
func unwrapConnectionError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == apperror.CodeConnectionError && appErr.Unwrap() != nil {
		return appErr.Unwrap()
	}
	return err
}

// IsRetryable treats transport failures, per-request timeouts included, as
// transient. Node-side RPC errors and cancellation are final.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !apperror.HasCode(err, apperror.CodeRPCError)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
