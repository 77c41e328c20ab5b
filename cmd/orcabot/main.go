// Package main is the entry point for the Orca arbitrage bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/orca-arbitrage-bot/business/arbitrage"
	arbitrageApp "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/orca-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/orca-arbitrage-bot/business/ledger"
	ledgerDI "github.com/fd1az/orca-arbitrage-bot/business/ledger/di"
	ledgerDomain "github.com/fd1az/orca-arbitrage-bot/business/ledger/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/listener"
	listenerDI "github.com/fd1az/orca-arbitrage-bot/business/listener/di"
	listenerDomain "github.com/fd1az/orca-arbitrage-bot/business/listener/domain"
	"github.com/fd1az/orca-arbitrage-bot/business/monitoring"
	monitoringDI "github.com/fd1az/orca-arbitrage-bot/business/monitoring/di"
	"github.com/fd1az/orca-arbitrage-bot/business/pool"
	poolDI "github.com/fd1az/orca-arbitrage-bot/business/pool/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/apm"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/health"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/metrics"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
	"github.com/fd1az/orca-arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	dryRun := flag.Bool("dry-run", false, "Analyze and bundle without submitting transactions")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("orcabot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	// The flag must be visible to config validation
	if *dryRun {
		os.Setenv("ORCA_DRY_RUN", "true")
	}

	// Run application
	if err := run(ctx, cancel, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode bool) error {
	// Load configuration (validated by Load)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.App.TUIMode = tuiMode

	// Setup logger (only log to stderr in CLI mode)
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting Orca arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"network", cfg.Solana.Network,
		"dry_run", cfg.Executor.DryRun,
	)

	// Initialize observability if enabled
	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&ledger.Module{},     // Must be first - provides the gateway
		&pool.Module{},       // Reads pools through the gateway
		&listener.Module{},   // Subscribes through the gateway
		&monitoring.Module{}, // Metrics sink and reporters
		&arbitrage.Module{},  // Depends on all of the above
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Start health check server
	healthServer := health.NewServer(cfg.Telemetry.HealthPort, version, log)
	registerHealthChecks(healthServer, mono.Services())
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthServer.Stop(shutdownCtx)
	}()

	startFunc := func() (*arbitrageApp.Pipeline, error) {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return nil, fmt.Errorf("failed to start modules: %w", err)
		}
		pipeline := arbitrageDI.GetPipeline(mono.Services())
		if err := pipeline.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start pipeline: %w", err)
		}
		return pipeline, nil
	}

	if tuiMode {
		return runTUI(ctx, cancel, cfg, mono.Services(), startFunc, log)
	}
	return runCLI(ctx, cfg, mono.Services(), startFunc, log)
}

// startTelemetry installs the trace and meter providers and serves /metrics.
func startTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	exporterCfg := apm.ExporterConfig{
		Endpoint: cfg.Telemetry.OTLPEndpoint,
		Headers:  cfg.Telemetry.OTLPHeaders,
	}
	provider := apm.Provider(cfg.Telemetry.TraceProvider)
	if cfg.Telemetry.TraceProvider == "honeycomb" {
		provider = apm.OTLPHTTPProvider
	}
	traceProvider := apm.NewTraceProvider(log,
		apm.WithServiceName(cfg.Telemetry.ServiceName),
		apm.WithProvider(provider, exporterCfg, log),
	)
	log.Info(ctx, "tracing initialized", "provider", provider, "endpoint", cfg.Telemetry.OTLPEndpoint)

	meterOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
	}
	if cfg.Telemetry.OTLPMetrics && cfg.Telemetry.OTLPEndpoint != "" {
		meterOpts = append(meterOpts, metrics.WithProviderConfig(metrics.NewOTLPConfig(
			cfg.Telemetry.OTLPEndpoint,
			apm.ParseHeaders(cfg.Telemetry.OTLPHeaders),
			cfg.Telemetry.OTLPInsecure,
		)))
	}
	meterProvider, err := metrics.NewMetricProvider(meterOpts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to create metric provider: %w", err)
	}

	promServer := metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	promServer.Start()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "failed to stop metrics server", "error", err)
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "failed to stop meter provider", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(shutdownCtx, "failed to stop trace provider", "error", err)
		}
	}, nil
}

// registerHealthChecks wires readiness to the gateway and the listener.
func registerHealthChecks(s *health.Server, sr di.ServiceRegistry) {
	s.RegisterCheck("ledger", func(ctx context.Context) (bool, string) {
		state := ledgerDI.GetGateway(sr).State()
		return state == ledgerDomain.StateConnected, string(state)
	})
	s.RegisterCheck("listener", func(ctx context.Context) (bool, string) {
		state := listenerDI.GetListener(sr).State()
		return state == listenerDomain.StateListening, string(state)
	})
}

func runCLI(
	ctx context.Context,
	cfg *config.Config,
	sr di.ServiceRegistry,
	startFunc func() (*arbitrageApp.Pipeline, error),
	log *logger.Logger,
) error {
	pipeline, err := startFunc()
	if err != nil {
		return err
	}
	log.Info(ctx, "all modules started, listening for swaps")

	console := monitoringDI.GetConsoleReporter(sr)
	store := monitoringDI.GetMetrics(sr)

	ticker := time.NewTicker(cfg.Pipeline.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(context.Background(), "shutting down")
			return stopPipeline(pipeline, cfg, log, console.Stop)
		case err := <-pipeline.Fatal():
			log.Error(context.Background(), "pipeline failed, shutting down", "error", err)
			return errors.Join(err, stopPipeline(pipeline, cfg, log, console.Stop))
		case <-ticker.C:
			status := pipeline.Status()
			console.PrintSnapshot(store.Snapshot(), status.QueueDepth, status.DroppedEvents)
		}
	}
}

func runTUI(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	sr di.ServiceRegistry,
	startFunc func() (*arbitrageApp.Pipeline, error),
	log *logger.Logger,
) error {
	// Channel to receive the welcome screen completion signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	// A shutdown signal closes the dashboard
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	// Run bot logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
		ui.Send(ui.StartupMsg{Step: "ledger", Status: "connecting"})
		ui.Send(ui.StartupMsg{Step: "pools", Status: "connecting"})
		ui.Send(ui.StartupMsg{Step: "listener", Status: "connecting"})

		pipeline, err := startFunc()
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			ui.Send(ui.StartupMsg{Step: "listener", Status: "failed"})
			errCh <- err
			return
		}

		tui := monitoringDI.GetTUIReporter(sr)
		store := monitoringDI.GetMetrics(sr)
		cache := poolDI.GetCache(sr)

		push := func() {
			status := pipeline.Status()
			tui.SendSnapshot(store.Snapshot(), status.QueueDepth, status.DroppedEvents)
			tui.SendPools(cache.Snapshot(), cache.StalenessBound())
		}
		push()

		ticker := time.NewTicker(cfg.Pipeline.StatusInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				errCh <- stopPipeline(pipeline, cfg, log, tui.Stop)
				return
			case err := <-pipeline.Fatal():
				ui.Send(ui.ErrorMsg{Error: err})
				log.Error(context.Background(), "pipeline failed, shutting down", "error", err)
				errCh <- errors.Join(err, stopPipeline(pipeline, cfg, log, tui.Stop))
				p.Quit()
				return
			case <-ticker.C:
				push()
			}
		}
	}()

	// Run TUI (blocking) - shows immediately with welcome screen
	_, runErr := p.Run()

	// Quitting the dashboard stops the bot
	cancel()

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(cfg.Pipeline.DrainTimeout + 5*time.Second):
		return errors.New("timed out waiting for shutdown")
	}
}

func stopPipeline(pipeline *arbitrageApp.Pipeline, cfg *config.Config, log *logger.Logger, stopReporter func() error) error {
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.DrainTimeout+5*time.Second)
	defer cancel()

	err := pipeline.Stop(stopCtx)
	if err != nil {
		log.Error(stopCtx, "error stopping pipeline", "error", err)
	}
	if rerr := stopReporter(); rerr != nil {
		log.Warn(stopCtx, "error stopping reporter", "error", rerr)
	}
	log.Info(stopCtx, "pipeline stopped")
	return err
}
