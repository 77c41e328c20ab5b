// Package ledger implements the ledger bounded context for Solana RPC and log streaming.
package ledger

import (
	"context"

	"github.com/fd1az/orca-arbitrage-bot/business/ledger/app"
	ledgerDI "github.com/fd1az/orca-arbitrage-bot/business/ledger/di"
	"github.com/fd1az/orca-arbitrage-bot/business/ledger/infra/rpc"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/monolith"
)

// Module implements the ledger bounded context.
type Module struct{}

// RegisterServices registers all ledger services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RPCClient (private - internal dependency)
	di.RegisterToken(c, ledgerDI.RPCClient, func(sr di.ServiceRegistry) app.RPCClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := rpc.DefaultClientConfig(cfg.Solana.RPCURL)
		clientCfg.Commitment = cfg.Solana.Commitment
		clientCfg.RequestTimeout = cfg.Solana.RequestTimeout
		clientCfg.RequestsPerSecond = cfg.Solana.RequestsPerSecond

		client, err := rpc.NewClient(clientCfg, log)
		if err != nil {
			panic("failed to create rpc client: " + err.Error())
		}
		return client
	})

	// Register LogStream (private - internal dependency)
	di.RegisterToken(c, ledgerDI.LogStream, func(sr di.ServiceRegistry) app.LogStream {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		streamCfg := rpc.DefaultStreamConfig(cfg.Solana.WSEndpoint)
		streamCfg.Commitment = cfg.Listener.Commitment
		streamCfg.RequestTimeout = cfg.Solana.RequestTimeout
		streamCfg.ReconnectBackoff = cfg.Solana.RetryBaseDelay
		streamCfg.ReconnectAttempts = cfg.Solana.MaxRetries

		stream, err := rpc.NewLogStream(streamCfg, log)
		if err != nil {
			panic("failed to create log stream: " + err.Error())
		}
		return stream
	})

	// Register Gateway (public - exposed to other modules)
	di.RegisterToken(c, ledgerDI.Gateway, func(sr di.ServiceRegistry) *app.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gwCfg := app.GatewayConfig{
			MaxRetries:        cfg.Solana.MaxRetries,
			RetryBaseDelay:    cfg.Solana.RetryBaseDelay,
			ComputeUnitBudget: cfg.Solana.ComputeUnitBudget,
			FeeCacheTTL:       cfg.Solana.FeeCacheTTL,
			SkipPreflight:     cfg.Solana.SkipPreflight,
			FeeAccounts:       trackedPoolAddresses(cfg),
		}
		return app.NewGateway(gwCfg, ledgerDI.GetRPCClient(sr), ledgerDI.GetLogStream(sr), log)
	})

	return nil
}

// Startup connects the gateway. A failed connect is logged; the pipeline
// surfaces it again when it starts.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	gw := ledgerDI.GetGateway(mono.Services())

	if err := gw.Connect(ctx); err != nil {
		log.Error(ctx, "failed to connect ledger gateway", "error", err)
		return nil
	}

	if signer := mono.Signer(); signer != nil {
		wallet := signer.PublicKey().String()
		if balance, err := gw.GetBalance(ctx, wallet); err != nil {
			log.Warn(ctx, "failed to fetch wallet balance", "wallet", wallet, "error", err)
		} else {
			log.Info(ctx, "wallet balance", "wallet", wallet, "sol", balance.String())
		}
	}

	log.Info(ctx, "ledger module started", "rpc", mono.Config().Solana.RPCURL, "network", mono.Config().Solana.Network)
	return nil
}

// trackedPoolAddresses scopes prioritization fee samples to the pools the bot trades.
func trackedPoolAddresses(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Pool.Tracked))
	for _, p := range cfg.Pool.Tracked {
		out = append(out, p.Address)
	}
	return out
}
