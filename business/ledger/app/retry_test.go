package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestRetry_ExhaustsWithSingleConnectionError(t *testing.T) {
	rs := &recordedSleep{}
	r := NewRetrier(3, 2*time.Second)
	r.Sleep = rs.sleep

	calls := 0
	transport := errors.New("dial tcp: connection refused")

	_, err := Retry(context.Background(), r, "getBalance", func(context.Context) (uint64, error) {
		calls++
		return 0, transport
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, apperror.CodeConnectionError, apperror.GetCode(err))
	assert.ErrorIs(t, err, transport)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rs.waits)
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	rs := &recordedSleep{}
	r := NewRetrier(3, 2*time.Second)
	r.Sleep = rs.sleep

	calls := 0
	slot, err := Retry(context.Background(), r, "getSlot", func(context.Context) (uint64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("timeout")
		}
		return 100, nil
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(100), slot)
	assert.Equal(t, []time.Duration{2 * time.Second}, rs.waits)
}

func TestRetry_RPCErrorNotRetried(t *testing.T) {
	r := NewRetrier(3, time.Millisecond)
	rpcErr := apperror.New(apperror.CodeRPCError, apperror.WithContext("invalid param"))

	calls := 0
	_, err := Retry(context.Background(), r, "getBalance", func(context.Context) (uint64, error) {
		calls++
		return 0, rpcErr
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, apperror.CodeRPCError, apperror.GetCode(err))
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	r := NewRetrier(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, r, "getSlot", func(context.Context) (uint64, error) {
		return 0, errors.New("refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_RealBackoffSchedule(t *testing.T) {
	r := NewRetrier(3, 20*time.Millisecond)

	start := time.Now()
	_, err := Retry(context.Background(), r, "getSlot", func(context.Context) (uint64, error) {
		return 0, errors.New("refused")
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	// 20ms + 40ms
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestRetrier_Backoff(t *testing.T) {
	r := NewRetrier(4, 2*time.Second)
	assert.Equal(t, 2*time.Second, r.Backoff(1))
	assert.Equal(t, 4*time.Second, r.Backoff(2))
	assert.Equal(t, 8*time.Second, r.Backoff(3))
}
