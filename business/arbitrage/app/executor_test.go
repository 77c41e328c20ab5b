package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

func newTestExecutor(ledger *fakeLedger, builder *fakeBuilder, metrics *fakeMetrics, policy string) *Executor {
	return NewExecutor(ExecutorConfig{
		ConfirmationTimeout:   60 * time.Millisecond,
		PollInterval:          5 * time.Millisecond,
		QueueSize:             1,
		BusyPolicy:            policy,
		PriorityFeeMultiplier: d("1.5"),
	}, ledger, builder, priceTable{mintA: d("1"), mintB: d("2.1")}, metrics, logger.NewNop())
}

func testBundle() domain.Bundle {
	return domain.NewBundle([]domain.Opportunity{
		opp("o1", "pool-1", domain.DirectionAToB, "0.394995"),
	}, t0)
}

func TestExecutor_Confirmed(t *testing.T) {
	ledger := &fakeLedger{
		priority: 1000,
		statuses: []*ledgerdomain.SignatureStatus{nil, processed(101), confirmed(101)},
		meta: &ledgerdomain.TransactionMeta{
			Slot:         101,
			Fee:          5000,
			AccountKeys:  []string{payer},
			PreBalances:  []uint64{2_000_000_000},
			PostBalances: []uint64{1_999_995_000},
			PreTokenBalances: []ledgerdomain.TokenBalance{
				{AccountIndex: 1, Mint: mintA, Owner: payer, Amount: 10_000_000_000, Decimals: 9},
				{AccountIndex: 2, Mint: mintB, Owner: payer, Amount: 0, Decimals: 6},
			},
			PostTokenBalances: []ledgerdomain.TokenBalance{
				{AccountIndex: 1, Mint: mintA, Owner: payer, Amount: 0, Decimals: 9},
				{AccountIndex: 2, Mint: mintB, Owner: payer, Amount: 4_950_000, Decimals: 6},
			},
		},
	}
	builder := &fakeBuilder{}
	metrics := &fakeMetrics{}
	e := newTestExecutor(ledger, builder, metrics, BusyDrop)

	bundle := testBundle()
	res := e.ExecuteBundle(context.Background(), bundle)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, bundle.ID, res.BundleID)
	assert.Equal(t, "sig-1", res.Signature)
	assert.Equal(t, uint64(101), res.Slot)
	assert.False(t, res.ResultUnknown)
	// -0.000005 fee + 4.95 B * 2.1 - 10 A
	assert.True(t, res.RealizedProfit.Equal(d("0.394995")), "realized %s", res.RealizedProfit)
	assert.True(t, res.EstimatedProfit.Equal(bundle.TotalEstimatedProfit))

	require.Len(t, builder.budgets, 1)
	assert.Equal(t, ComputeBudget{UnitLimit: 200_000, MicroLamports: 1500}, builder.budgets[0])

	attempted, succeeded, failed := metrics.counts()
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
}

func TestExecutor_ConfirmationTimeout(t *testing.T) {
	ledger := &fakeLedger{statuses: []*ledgerdomain.SignatureStatus{processed(101)}}
	metrics := &fakeMetrics{}
	e := newTestExecutor(ledger, &fakeBuilder{}, metrics, BusyDrop)

	res := e.ExecuteBundle(context.Background(), testBundle())

	assert.False(t, res.Success)
	assert.True(t, res.ResultUnknown)
	assert.Equal(t, apperror.CodeConfirmationTimeout, res.ErrorCode)
	assert.Empty(t, res.Signature)
	assert.Equal(t, "sig-1", res.SubmittedSignature)
	assert.True(t, res.RealizedProfit.IsZero())

	attempted, succeeded, failed := metrics.counts()
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []apperror.Code{apperror.CodeConfirmationTimeout}, metrics.failed)
}

func TestExecutor_ConfirmationTimeoutBoundsSlowPolls(t *testing.T) {
	ledger := &fakeLedger{statusHang: true}
	e := newTestExecutor(ledger, &fakeBuilder{}, &fakeMetrics{}, BusyDrop)

	start := time.Now()
	res := e.ExecuteBundle(context.Background(), testBundle())
	elapsed := time.Since(start)

	assert.Equal(t, apperror.CodeConfirmationTimeout, res.ErrorCode)
	assert.True(t, res.ResultUnknown)
	assert.Less(t, elapsed, 500*time.Millisecond, "a hanging status read must not outlive the 60ms timeout")
}

func TestExecutor_ConfirmationInterrupted(t *testing.T) {
	ledger := &fakeLedger{statusHang: true}
	e := newTestExecutor(ledger, &fakeBuilder{}, &fakeMetrics{}, BusyDrop)
	e.cfg.ConfirmationTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := e.awaitConfirmation(ctx, "sig-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeConfirmationTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name     string
		ledger   *fakeLedger
		builder  *fakeBuilder
		bundle   domain.Bundle
		wantCode apperror.Code
	}{
		{
			name:     "rejected on submit",
			ledger:   &fakeLedger{sendErr: apperror.New(apperror.CodeRPCError, apperror.WithContext("preflight failed"))},
			builder:  &fakeBuilder{},
			bundle:   testBundle(),
			wantCode: apperror.CodeSubmissionError,
		},
		{
			name:     "failed on chain",
			ledger:   &fakeLedger{statuses: []*ledgerdomain.SignatureStatus{failedOnChain(101)}},
			builder:  &fakeBuilder{},
			bundle:   testBundle(),
			wantCode: apperror.CodeSubmissionError,
		},
		{
			name:     "too large",
			ledger:   &fakeLedger{},
			builder:  &fakeBuilder{err: apperror.New(apperror.CodeTransactionTooLarge)},
			bundle:   testBundle(),
			wantCode: apperror.CodeTransactionTooLarge,
		},
		{
			name:     "empty bundle",
			ledger:   &fakeLedger{},
			builder:  &fakeBuilder{},
			bundle:   domain.Bundle{ID: "empty"},
			wantCode: apperror.CodeEmptyBundle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &fakeMetrics{}
			e := newTestExecutor(tt.ledger, tt.builder, metrics, BusyDrop)

			res := e.ExecuteBundle(context.Background(), tt.bundle)
			assert.False(t, res.Success)
			assert.False(t, res.ResultUnknown)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.NotEmpty(t, res.Error)

			attempted, succeeded, failed := metrics.counts()
			assert.Equal(t, 1, attempted)
			assert.Equal(t, 0, succeeded)
			assert.Equal(t, 1, failed)
		})
	}
}

func TestExecutor_RealizedProfitUnavailable(t *testing.T) {
	ledger := &fakeLedger{
		statuses: []*ledgerdomain.SignatureStatus{confirmed(7)},
		metaErr:  errors.New("not found"),
	}
	metrics := &fakeMetrics{}
	e := newTestExecutor(ledger, &fakeBuilder{}, metrics, BusyDrop)

	res := e.ExecuteBundle(context.Background(), testBundle())
	require.True(t, res.Success)
	assert.True(t, res.RealizedProfit.IsZero())
}

func TestExecutor_SingleFlight(t *testing.T) {
	ledger := &fakeLedger{statuses: []*ledgerdomain.SignatureStatus{confirmed(1)}, metaErr: errors.New("skip")}
	builder := &fakeBuilder{gate: make(chan struct{})}
	e := newTestExecutor(ledger, builder, &fakeMetrics{}, BusyDrop)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ExecuteBundle(context.Background(), testBundle())
		}()
	}

	for range 3 {
		builder.gate <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, int32(1), builder.maxSeen.Load())
	assert.Equal(t, 3, ledger.sentCount())
}

func TestExecutor_SubmitDropWhenFull(t *testing.T) {
	e := newTestExecutor(&fakeLedger{}, &fakeBuilder{}, &fakeMetrics{}, BusyDrop)

	require.NoError(t, e.Submit(context.Background(), testBundle()))
	err := e.Submit(context.Background(), testBundle())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeExecutorBusy))
	assert.Equal(t, 1, e.Pending())
}

func TestExecutor_SubmitQueueWaits(t *testing.T) {
	e := newTestExecutor(&fakeLedger{}, &fakeBuilder{}, &fakeMetrics{}, BusyQueue)
	require.NoError(t, e.Submit(context.Background(), testBundle()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Submit(ctx, testBundle())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_WorkerPublishesResults(t *testing.T) {
	ledger := &fakeLedger{statuses: []*ledgerdomain.SignatureStatus{confirmed(9)}, metaErr: errors.New("skip")}
	metrics := &fakeMetrics{}
	e := newTestExecutor(ledger, &fakeBuilder{}, metrics, BusyQueue)
	e.Start(context.Background())

	bundle := testBundle()
	require.NoError(t, e.Submit(context.Background(), bundle))

	select {
	case res := <-e.Results():
		assert.Equal(t, bundle.ID, res.BundleID)
		assert.True(t, res.Success)
	case <-time.After(time.Second):
		t.Fatal("no result published")
	}

	e.Stop(context.Background())
	_, open := <-e.Results()
	assert.False(t, open)

	err := e.Submit(context.Background(), bundle)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}
