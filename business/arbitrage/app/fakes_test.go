package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	ledgerdomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	listenerapp "github.com/fd1az/orca-arbitrage-bot/business/listener/app"
	listenerdomain "github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	pooldomain "github.com/fd1az/orca-arbitrage-bot/business/pool/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
)

const (
	orcaV2 = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	mintA  = "So11111111111111111111111111111111111111112"
	mintB  = "EPjFWdd5AufqSSqeM2qn4fiyr4UrmtE3n7zRYqMBmrx1"
	payer  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testPool is a 1000 A / 500 B pool with a 1% fee.
func testPool(id string) pooldomain.PoolState {
	return pooldomain.PoolState{
		ID:        id,
		ProgramID: orcaV2,
		TokenA:    mintA,
		TokenB:    mintB,
		ReserveA:  d("1000"),
		ReserveB:  d("500"),
		FeeRate:   d("0.01"),
		Meta: pooldomain.Metadata{
			Address:   id,
			ProgramID: orcaV2,
			MintA:     mintA,
			MintB:     mintB,
			DecimalsA: 9,
			DecimalsB: 6,
		},
	}
}

type fakePools struct {
	mu      sync.Mutex
	tracked []pooldomain.TrackedPool
	states  map[string]pooldomain.PoolState
	errs    map[string]error
	bounds  []time.Duration
}

func newFakePools(states ...pooldomain.PoolState) *fakePools {
	f := &fakePools{
		states: make(map[string]pooldomain.PoolState),
		errs:   make(map[string]error),
	}
	for _, s := range states {
		f.tracked = append(f.tracked, pooldomain.TrackedPool{Address: s.ID, ProgramID: s.ProgramID})
		f.states[s.ID] = s
	}
	return f
}

func (f *fakePools) Tracked() []pooldomain.TrackedPool {
	return f.tracked
}

func (f *fakePools) Get(_ context.Context, id string, bound time.Duration) (pooldomain.PoolState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bounds = append(f.bounds, bound)
	if err := f.errs[id]; err != nil {
		return pooldomain.PoolState{}, err
	}
	s, ok := f.states[id]
	if !ok {
		return pooldomain.PoolState{}, apperror.New(apperror.CodeLookupError, apperror.WithContext(id))
	}
	return s, nil
}

type fixedFee decimal.Decimal

func (f fixedFee) GetRecentFeeEstimate(context.Context) decimal.Decimal {
	return decimal.Decimal(f)
}

type priceTable map[string]decimal.Decimal

func (p priceTable) ValueInSOL(mint string, units decimal.Decimal) (decimal.Decimal, error) {
	price, ok := p[mint]
	if !ok {
		return decimal.Zero, fmt.Errorf("no reference price for %s", mint)
	}
	return units.Mul(price), nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	discovered int
	bundles    []int
	attempted  int
	succeeded  int
	failed     []apperror.Code
	realized   decimal.Decimal
}

func (m *fakeMetrics) OpportunityDiscovered(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discovered++
}

func (m *fakeMetrics) BundleCreated(_ context.Context, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles = append(m.bundles, size)
}

func (m *fakeMetrics) ExecutionAttempted(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempted++
}

func (m *fakeMetrics) ExecutionSucceeded(_ context.Context, realized decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded++
	m.realized = m.realized.Add(realized)
}

func (m *fakeMetrics) ExecutionFailed(_ context.Context, code apperror.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, code)
}

func (m *fakeMetrics) counts() (attempted, succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempted, m.succeeded, len(m.failed)
}

// fakeLedger answers statuses from a script; the last entry repeats.
type fakeLedger struct {
	mu       sync.Mutex
	sendErr  error
	statuses []*ledgerdomain.SignatureStatus
	polls    int
	sent     [][]byte
	meta     *ledgerdomain.TransactionMeta
	metaErr  error
	priority uint64

	// statusHang makes every status read block until its context ends
	statusHang bool
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (ledgerdomain.Blockhash, error) {
	return ledgerdomain.Blockhash{LastValidBlockHeight: 1}, nil
}

func (f *fakeLedger) SendTransaction(_ context.Context, raw []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, raw)
	return fmt.Sprintf("sig-%d", len(f.sent)), nil
}

func (f *fakeLedger) PollSignatureStatus(ctx context.Context, _ string) (*ledgerdomain.SignatureStatus, error) {
	f.mu.Lock()
	f.polls++
	hang := f.statusHang
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, nil
	}
	i := min(f.polls, len(f.statuses)) - 1
	return f.statuses[i], nil
}

func (f *fakeLedger) GetTransaction(context.Context, string) (*ledgerdomain.TransactionMeta, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeLedger) PriorityFeeMicroLamports(context.Context) uint64 {
	return f.priority
}

func (f *fakeLedger) ComputeUnitBudget() uint32 {
	return 200_000
}

func (f *fakeLedger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func confirmed(slot uint64) *ledgerdomain.SignatureStatus {
	return &ledgerdomain.SignatureStatus{Slot: slot, ConfirmationStatus: ledgerdomain.CommitmentConfirmed}
}

func processed(slot uint64) *ledgerdomain.SignatureStatus {
	return &ledgerdomain.SignatureStatus{Slot: slot, ConfirmationStatus: ledgerdomain.CommitmentProcessed}
}

func failedOnChain(slot uint64) *ledgerdomain.SignatureStatus {
	return &ledgerdomain.SignatureStatus{
		Slot:               slot,
		ConfirmationStatus: ledgerdomain.CommitmentProcessed,
		Err:                json.RawMessage(`{"InstructionError":[2,{"Custom":16}]}`),
	}
}

type fakeBuilder struct {
	err      error
	gate     chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu      sync.Mutex
	budgets []ComputeBudget
}

func (b *fakeBuilder) Payer() string {
	return payer
}

func (b *fakeBuilder) Build(_ context.Context, bundle domain.Bundle, _ ledgerdomain.Blockhash, budget ComputeBudget) (SignedTransaction, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		seen := b.maxSeen.Load()
		if n <= seen || b.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if b.gate != nil {
		<-b.gate
	}

	b.mu.Lock()
	b.budgets = append(b.budgets, budget)
	b.mu.Unlock()

	if b.err != nil {
		return SignedTransaction{}, b.err
	}
	return SignedTransaction{Raw: []byte(bundle.ID), Signature: "local-" + bundle.ID}, nil
}

// fakeListener records lifecycle calls into a shared journal.
type fakeListener struct {
	mu        sync.Mutex
	journal   *journal
	startErrs []error
	starts    int
	state     listenerdomain.State
	onEvent   listenerapp.EventHandler
	errs      chan error
}

func newFakeListener(j *journal) *fakeListener {
	return &fakeListener{journal: j, state: listenerdomain.StateStopped, errs: make(chan error, 1)}
}

func (l *fakeListener) Start(_ context.Context, onEvent listenerapp.EventHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
	l.journal.add("listener.start")
	if len(l.startErrs) > 0 {
		err := l.startErrs[0]
		l.startErrs = l.startErrs[1:]
		if err != nil {
			return err
		}
	}
	l.state = listenerdomain.StateListening
	l.onEvent = onEvent
	return nil
}

func (l *fakeListener) Stop(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal.add("listener.stop")
	l.state = listenerdomain.StateStopped
	l.onEvent = nil
	return nil
}

func (l *fakeListener) State() listenerdomain.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *fakeListener) Errors() <-chan error {
	return l.errs
}

func (l *fakeListener) emit(ev listenerdomain.LedgerEvent) {
	l.mu.Lock()
	h := l.onEvent
	l.mu.Unlock()
	if h != nil {
		h(context.Background(), ev)
	}
}

func (l *fakeListener) lose(err error) {
	l.mu.Lock()
	l.state = listenerdomain.StateStopped
	l.onEvent = nil
	l.mu.Unlock()
	l.errs <- err
}

func (l *fakeListener) startCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

type fakeConnector struct {
	mu          sync.Mutex
	journal     *journal
	connectErr  error
	connectErrs []error // consumed before connectErr
}

func (c *fakeConnector) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journal.add("gateway.connect")
	if len(c.connectErrs) > 0 {
		err := c.connectErrs[0]
		c.connectErrs = c.connectErrs[1:]
		return err
	}
	return c.connectErr
}

func (c *fakeConnector) Close() error {
	c.journal.add("gateway.close")
	return nil
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type recordingReporter struct {
	mu      sync.Mutex
	bundles []domain.Bundle
	results []domain.ExecutionResult
	status  []string
}

func (r *recordingReporter) Start(context.Context) error { return nil }

func (r *recordingReporter) ReportBundle(b domain.Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles = append(r.bundles, b)
}

func (r *recordingReporter) ReportResult(res domain.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) UpdateConnectionStatus(name string, connected bool, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = append(r.status, fmt.Sprintf("%s=%t", name, connected))
}

func (r *recordingReporter) Stop() error { return nil }

func (r *recordingReporter) counts() (bundles, results int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles), len(r.results)
}
