package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage/domain"
	listenerdomain "github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
)

type pipelineState int

const (
	pipelineIdle pipelineState = iota
	pipelineRunning
	pipelineStopping
	pipelineStopped
)

// PipelineConfig configures the event-to-execution loop.
type PipelineConfig struct {
	Workers int
	// ScanInterval is the accumulation window before bundling. Zero bundles
	// the opportunities of each event on their own.
	ScanInterval           time.Duration
	DrainTimeout           time.Duration
	ResubscribeBackoff     time.Duration
	MaxResubscribeAttempts int
	DryRun                 bool
	Wallet                 string
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running        bool
	ListenerState  listenerdomain.State
	QueueDepth     int
	DroppedEvents  uint64
	PendingBundles int
	Wallet         string
}

// Pipeline wires listener, analyzers, bundler and executor together and owns
// their lifecycle. It runs once: Start after Stop is rejected.
type Pipeline struct {
	cfg       PipelineConfig
	gateway   Connector
	listener  EventListener
	queue     EventQueue
	analyzer  *Analyzer
	bundler   *Bundler
	dedup     *Dedup
	executor  *Executor
	reporters []Reporter
	log       logger.LoggerInterface
	sleep     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	state  pipelineState
	failed bool
	fatal  chan error

	cancel          context.CancelFunc
	superviseCancel context.CancelFunc
	superviseDone   chan struct{}
	bundlerDone     chan struct{}
	resultsDone     chan struct{}
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	cfg PipelineConfig,
	gateway Connector,
	listener EventListener,
	queue EventQueue,
	analyzer *Analyzer,
	bundler *Bundler,
	dedup *Dedup,
	executor *Executor,
	log logger.LoggerInterface,
) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if cfg.ResubscribeBackoff <= 0 {
		cfg.ResubscribeBackoff = time.Second
	}
	return &Pipeline{
		cfg:      cfg,
		gateway:  gateway,
		listener: listener,
		queue:    queue,
		analyzer: analyzer,
		bundler:  bundler,
		dedup:    dedup,
		executor: executor,
		log:      log,
		sleep:    sleepCtx,
		fatal:    make(chan error, 1),
	}
}

// Fatal delivers the error that ended event intake for good, such as
// exhausted resubscribe attempts. The driver is expected to call Stop.
func (p *Pipeline) Fatal() <-chan error {
	return p.fatal
}

// AddReporter registers r for bundle and result announcements. It must be
// called before Start.
func (p *Pipeline) AddReporter(r Reporter) {
	p.reporters = append(p.reporters, r)
}

// Start connects the gateway, starts the listener and launches the workers.
// Only connection and subscription failures are returned.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != pipelineIdle {
		p.mu.Unlock()
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("pipeline already started"))
	}
	p.state = pipelineRunning
	p.mu.Unlock()

	if err := p.gateway.Connect(ctx); err != nil {
		p.setState(pipelineIdle)
		return err
	}
	p.announce("ledger", true, "")

	if err := p.listener.Start(ctx, p.onEvent); err != nil {
		if cerr := p.gateway.Close(); cerr != nil {
			p.log.Warn(ctx, "gateway close failed", "error", cerr)
		}
		p.setState(pipelineIdle)
		return err
	}
	p.announce("listener", true, string(listenerdomain.StateListening))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	superviseCtx, superviseCancel := context.WithCancel(runCtx)
	p.cancel = cancel
	p.superviseCancel = superviseCancel
	p.superviseDone = make(chan struct{})
	p.bundlerDone = make(chan struct{})
	p.resultsDone = make(chan struct{})

	p.executor.Start(runCtx)

	found := make(chan []domain.Opportunity, p.cfg.Workers)
	var wg sync.WaitGroup
	for range p.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.analyze(runCtx, found)
		}()
	}
	go func() {
		wg.Wait()
		close(found)
	}()

	go p.bundle(runCtx, found)
	go p.forwardResults()
	go p.supervise(superviseCtx)

	p.log.Info(ctx, "pipeline started",
		"workers", p.cfg.Workers,
		"scan_interval", p.cfg.ScanInterval,
		"dry_run", p.cfg.DryRun,
	)
	return nil
}

func (p *Pipeline) onEvent(ctx context.Context, ev listenerdomain.LedgerEvent) {
	if err := p.queue.Push(ctx, ev); err != nil {
		p.log.Debug(ctx, "event not queued", "signature", ev.Signature, "error", err)
	}
}

func (p *Pipeline) analyze(ctx context.Context, found chan<- []domain.Opportunity) {
	for ev := range p.queue.Events() {
		if ctx.Err() != nil {
			continue
		}
		opps := p.analyzer.Analyze(ctx, ev)
		if len(opps) == 0 {
			continue
		}
		select {
		case found <- opps:
		case <-ctx.Done():
		}
	}
}

// bundle accumulates opportunities for the scan interval and hands each
// resulting bundle to the executor.
func (p *Pipeline) bundle(ctx context.Context, found <-chan []domain.Opportunity) {
	defer close(p.bundlerDone)

	var pending []domain.Opportunity
	var window <-chan time.Time

	for {
		select {
		case opps, ok := <-found:
			if !ok {
				p.flush(ctx, pending)
				return
			}
			pending = append(pending, p.dedup.Filter(ctx, opps)...)
			if p.cfg.ScanInterval <= 0 {
				p.flush(ctx, pending)
				pending = nil
				continue
			}
			if window == nil {
				window = time.After(p.cfg.ScanInterval)
			}
		case <-window:
			window = nil
			p.flush(ctx, pending)
			pending = nil
		}
	}
}

func (p *Pipeline) flush(ctx context.Context, opps []domain.Opportunity) {
	if len(opps) == 0 {
		return
	}

	bundle, err := p.bundler.CreateBundle(ctx, opps)
	if err != nil {
		p.log.Warn(ctx, "bundle not created", "error", err)
		return
	}
	for _, r := range p.reporters {
		r.ReportBundle(bundle)
	}

	if p.cfg.DryRun {
		p.log.Info(ctx, "dry run, bundle not submitted", "bundle", bundle.ID, "size", bundle.Size())
		return
	}
	if err := p.executor.Submit(ctx, bundle); err != nil && !apperror.HasCode(err, apperror.CodeExecutorBusy) {
		p.log.Warn(ctx, "bundle not submitted", "bundle", bundle.ID, "error", err)
	}
}

func (p *Pipeline) forwardResults() {
	defer close(p.resultsDone)
	for res := range p.executor.Results() {
		for _, r := range p.reporters {
			r.ReportResult(res)
		}
	}
}

// supervise restarts the listener after a subscription loss. Once the
// resubscribe budget is spent the pipeline reports itself on Fatal.
func (p *Pipeline) supervise(ctx context.Context) {
	defer close(p.superviseDone)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-p.listener.Errors():
			p.log.Error(ctx, "listener lost", "error", err)
			p.announce("listener", false, err.Error())

			if p.resubscribe(ctx) {
				p.announce("listener", true, string(listenerdomain.StateListening))
				continue
			}
			if ctx.Err() != nil {
				return
			}

			p.log.Error(ctx, "listener resubscribe attempts exhausted",
				"attempts", p.cfg.MaxResubscribeAttempts)
			p.announce("listener", false, "resubscribe attempts exhausted")

			p.mu.Lock()
			p.failed = true
			p.mu.Unlock()
			p.fatal <- apperror.New(apperror.CodeSubscriptionError,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("resubscribe attempts exhausted after %d tries", p.cfg.MaxResubscribeAttempts)))
			return
		}
	}
}

// resubscribe redials the gateway and restarts the listener with
// exponential backoff.
func (p *Pipeline) resubscribe(ctx context.Context) bool {
	backoff := p.cfg.ResubscribeBackoff
	for attempt := 1; attempt <= p.cfg.MaxResubscribeAttempts; attempt++ {
		if err := p.sleep(ctx, backoff); err != nil {
			return false
		}

		err := p.gateway.Connect(ctx)
		if err == nil {
			err = p.listener.Start(ctx, p.onEvent)
		}
		if err == nil {
			p.log.Info(ctx, "listener resubscribed", "attempt", attempt)
			return true
		}
		p.log.Warn(ctx, "listener resubscribe failed",
			"attempt", attempt,
			"max_attempts", p.cfg.MaxResubscribeAttempts,
			"next_backoff", backoff*2,
			"error", err,
		)
		backoff *= 2
	}
	return false
}

// Stop shuts down in order: listener, then queued and in-flight work within
// the drain timeout, then the gateway. It is safe to call more than once.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != pipelineRunning {
		p.mu.Unlock()
		return nil
	}
	p.state = pipelineStopping
	p.mu.Unlock()

	p.log.Info(ctx, "stopping pipeline")

	p.superviseCancel()
	<-p.superviseDone

	if err := p.listener.Stop(ctx); err != nil {
		p.log.Warn(ctx, "listener stop failed", "error", err)
	}
	p.queue.Close()

	drainCtx, cancel := context.WithTimeout(ctx, p.cfg.DrainTimeout)
	defer cancel()

	select {
	case <-p.bundlerDone:
	case <-drainCtx.Done():
		p.log.Warn(ctx, "drain timeout reached, cancelling analysis")
		p.cancel()
		<-p.bundlerDone
	}

	p.executor.Stop(drainCtx)
	<-p.resultsDone
	p.cancel()
	p.dedup.Close()

	if err := p.gateway.Close(); err != nil {
		p.log.Warn(ctx, "gateway close failed", "error", err)
	}
	p.announce("ledger", false, "closed")

	p.setState(pipelineStopped)
	p.log.Info(ctx, "pipeline stopped")
	return nil
}

// Status returns the current pipeline status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	running := p.state == pipelineRunning && !p.failed
	p.mu.Unlock()

	return Status{
		Running:        running,
		ListenerState:  p.listener.State(),
		QueueDepth:     p.queue.Len(),
		DroppedEvents:  p.queue.Dropped(),
		PendingBundles: p.executor.Pending(),
		Wallet:         p.cfg.Wallet,
	}
}

func (p *Pipeline) setState(s pipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) announce(name string, connected bool, detail string) {
	for _, r := range p.reporters {
		r.UpdateConnectionStatus(name, connected, detail)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
