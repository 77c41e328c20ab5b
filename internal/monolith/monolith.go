// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/orca-arbitrage-bot/internal/apperror"
	"github.com/fd1az/orca-arbitrage-bot/internal/asset"
	"github.com/fd1az/orca-arbitrage-bot/internal/config"
	"github.com/fd1az/orca-arbitrage-bot/internal/di"
	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/fd1az/orca-arbitrage-bot/internal/solana"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	// Signer is nil in dry-run mode without a wallet.
	Signer() solana.Signer
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	signer        solana.Signer
	assetRegistry *asset.Registry
	container     di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	var signer solana.Signer
	if cfg.Wallet.PrivateKey != "" {
		kp, err := solana.ParseKeypair(cfg.Wallet.PrivateKey)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidKeypair, "wallet.private_key")
		}
		signer = kp
	}

	specs := make([]asset.TokenSpec, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		specs = append(specs, asset.TokenSpec{
			Mint:              t.Mint,
			Symbol:            t.Symbol,
			Decimals:          t.Decimals,
			ReferencePriceSOL: decimal.NewFromFloat(t.ReferencePriceSOL),
		})
	}
	assetRegistry, err := asset.NewRegistryFromSpecs(specs)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "tokens")
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("signer", signer)
	container.Register("assetRegistry", assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		signer:        signer,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Signer() solana.Signer {
	return a.signer
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
