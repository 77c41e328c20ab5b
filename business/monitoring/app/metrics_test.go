package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMetrics_SnapshotStartsAtZero(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newMetrics(clock.Now, nil)

	s := m.Snapshot()
	assert.Zero(t, s.BundlesAttempted)
	assert.True(t, s.CumulativeProfit.IsZero())
	assert.True(t, s.AverageProfitPerBundle.IsZero())
	assert.True(t, s.LastExecutionTime.IsZero())
	assert.True(t, s.SuccessRate().IsZero())
	assert.Equal(t, clock.now, s.StartedAt)
}

func TestMetrics_Snapshot(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newMetrics(clock.Now, nil)

	for i := 0; i < 7; i++ {
		m.OpportunityDiscovered(ctx)
	}
	m.BundleCreated(ctx, 5)
	m.BundleCreated(ctx, 2)

	clock.Advance(90 * time.Second)
	m.ExecutionAttempted(ctx)
	m.ExecutionSucceeded(ctx, decimal.RequireFromString("0.01"))
	m.ExecutionAttempted(ctx)
	m.ExecutionSucceeded(ctx, decimal.RequireFromString("0.02"))
	m.ExecutionAttempted(ctx)
	m.ExecutionFailed(ctx, apperror.CodeConfirmationTimeout)

	s := m.Snapshot()
	assert.Equal(t, uint64(3), s.BundlesAttempted)
	assert.Equal(t, uint64(2), s.BundlesSucceeded)
	assert.Equal(t, uint64(1), s.BundlesFailed)
	assert.Equal(t, uint64(7), s.OpportunitiesDiscovered)
	assert.Equal(t, uint64(2), s.BundlesCreated)
	assert.Equal(t, "3.5", s.AverageBundleSize.String())
	assert.Equal(t, "0.03", s.CumulativeProfit.String())
	assert.Equal(t, "0.015", s.AverageProfitPerBundle.String())
	assert.Equal(t, 90*time.Second, s.Uptime)
	assert.Equal(t, clock.Now().UnixNano(), s.LastExecutionTime.UnixNano())
	assert.Equal(t, map[string]uint64{string(apperror.CodeConfirmationTimeout): 1}, s.FailuresByCode)
	assert.Equal(t, s.BundlesAttempted, s.BundlesSucceeded+s.BundlesFailed)
}

func TestMetrics_ConcurrentProfitIsExact(t *testing.T) {
	ctx := context.Background()
	m := newMetrics(time.Now, nil)

	const workers, per = 8, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				m.ExecutionAttempted(ctx)
				m.ExecutionSucceeded(ctx, decimal.RequireFromString("0.000001"))
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	require.Equal(t, uint64(workers*per), s.BundlesSucceeded)
	assert.Equal(t, "0.002", s.CumulativeProfit.String())
}

func TestMetrics_NegativeRealizedProfit(t *testing.T) {
	ctx := context.Background()
	m := newMetrics(time.Now, nil)

	m.ExecutionSucceeded(ctx, decimal.RequireFromString("0.005"))
	m.ExecutionSucceeded(ctx, decimal.RequireFromString("-0.007"))

	s := m.Snapshot()
	assert.Equal(t, "-0.002", s.CumulativeProfit.String())
	assert.Equal(t, "-0.001", s.AverageProfitPerBundle.String())
}

func TestNewMetrics_RegistersInstruments(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.BundleCreated(context.Background(), 3)
	m.ExecutionFailed(context.Background(), apperror.CodeSubmissionError)
	assert.Equal(t, uint64(1), m.Snapshot().BundlesFailed)
}
