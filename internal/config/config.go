// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// OrcaProgramID is the Orca token-swap v2 program on mainnet.
const OrcaProgramID = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"

// Supported networks.
const (
	NetworkMainnet = "mainnet-beta"
	NetworkTestnet = "testnet"
	NetworkDevnet  = "devnet"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Listener  ListenerConfig  `mapstructure:"listener"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// SolanaConfig holds ledger endpoint configuration.
type SolanaConfig struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	WSEndpoint        string        `mapstructure:"ws_endpoint"`
	Network           string        `mapstructure:"network"`
	Commitment        string        `mapstructure:"commitment"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	ComputeUnitBudget uint32        `mapstructure:"compute_unit_budget"`
	FeeCacheTTL       time.Duration `mapstructure:"fee_cache_ttl"`
	SkipPreflight     bool          `mapstructure:"skip_preflight"`
}

// WalletConfig holds the signing key.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"` // base58 encoded 64-byte keypair
}

// TradingConfig holds opportunity and bundle thresholds.
type TradingConfig struct {
	DefaultSlippage       float64 `mapstructure:"default_slippage"` // percent
	MaxSlippage           float64 `mapstructure:"max_slippage"`     // percent
	MinProfitThreshold    float64 `mapstructure:"min_profit_threshold"`
	MaxTradeSize          float64 `mapstructure:"max_trade_size"`
	PriorityFeeMultiplier float64 `mapstructure:"priority_fee_multiplier"`
	MaxBundleSize         int     `mapstructure:"max_bundle_size"`
	ScanIntervalMs        int     `mapstructure:"scan_interval"`
}

// SlippageFraction returns the default slippage as a fraction (0.5% -> 0.005).
func (c *TradingConfig) SlippageFraction() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultSlippage).Div(decimal.NewFromInt(100))
}

// MinProfitDecimal returns the minimum profit threshold as decimal.Decimal.
func (c *TradingConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitThreshold)
}

// MaxTradeSizeDecimal returns the maximum trade size as decimal.Decimal.
func (c *TradingConfig) MaxTradeSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeSize)
}

// PriorityFeeMultiplierDecimal returns the priority fee multiplier as decimal.Decimal.
func (c *TradingConfig) PriorityFeeMultiplierDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.PriorityFeeMultiplier)
}

// ScanInterval returns the bundle accumulation window.
func (c *TradingConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

// Busy policies for the executor queue.
const (
	BusyPolicyQueue = "queue"
	BusyPolicyDrop  = "drop"
)

// ExecutorConfig holds submission and confirmation settings.
type ExecutorConfig struct {
	ConfirmationTimeoutMs int           `mapstructure:"confirmation_timeout"`
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	QueueSize             int           `mapstructure:"queue_size"`
	BusyPolicy            string        `mapstructure:"busy_policy"`
	DryRun                bool          `mapstructure:"dry_run"`
}

// ConfirmationTimeout returns the confirmation deadline.
func (c *ExecutorConfig) ConfirmationTimeout() time.Duration {
	return time.Duration(c.ConfirmationTimeoutMs) * time.Millisecond
}

// Listener subscription modes.
const (
	ListenerModeAll      = "all"
	ListenerModeMentions = "mentions"
)

// ListenerConfig holds log subscription settings.
type ListenerConfig struct {
	Mode                   string        `mapstructure:"mode"`
	ProgramIDs             []string      `mapstructure:"program_ids"`
	Commitment             string        `mapstructure:"commitment"`
	IncludeFailed          bool          `mapstructure:"include_failed"`
	ResubscribeBackoff     time.Duration `mapstructure:"resubscribe_backoff"`
	MaxResubscribeAttempts int           `mapstructure:"max_resubscribe_attempts"`
}

// Backpressure policies for the event queue.
const (
	BackpressureBlock      = "block"
	BackpressureDropOldest = "drop_oldest"
)

// PipelineConfig holds stage wiring settings.
type PipelineConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	Backpressure    string        `mapstructure:"backpressure"`
	AnalyzerWorkers int           `mapstructure:"analyzer_workers"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout"`
	DedupTTL        time.Duration `mapstructure:"dedup_ttl"`
	StatusInterval  time.Duration `mapstructure:"status_interval"`
}

// Pool curves.
const (
	CurveConstantProduct = "constant_product"
	CurveSpot            = "spot"
)

// PoolConfig holds pool cache settings and the tracked pool set.
type PoolConfig struct {
	StalenessBound     time.Duration     `mapstructure:"staleness_bound"`
	Curve              string            `mapstructure:"curve"`
	RefreshConcurrency int               `mapstructure:"refresh_concurrency"`
	RedisURL           string            `mapstructure:"redis_url"`
	RedisTTL           time.Duration     `mapstructure:"redis_ttl"`
	Tracked            []TrackedPoolItem `mapstructure:"tracked"`
}

// TrackedPoolItem identifies one liquidity pool.
type TrackedPoolItem struct {
	Address   string `mapstructure:"address"`
	ProgramID string `mapstructure:"program_id"`
}

// TokenConfig describes a token mint and its valuation.
type TokenConfig struct {
	Mint              string  `mapstructure:"mint"`
	Symbol            string  `mapstructure:"symbol"`
	Decimals          uint8   `mapstructure:"decimals"`
	ReferencePriceSOL float64 `mapstructure:"reference_price_sol"`
}

// NotifyConfig holds third-party keys and notification targets.
type NotifyConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
	HeliusAPIKey     string `mapstructure:"helius_api_key"`
	BirdeyeAPIKey    string `mapstructure:"birdeye_api_key"`
}

// TelegramEnabled reports whether both telegram settings are present.
func (c *NotifyConfig) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	// OTLPMetrics also pushes metrics to OTLPEndpoint over gRPC.
	OTLPMetrics    bool   `mapstructure:"otlp_metrics"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ORCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ORCA_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ORCA_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ORCA_LOG_LEVEL", "LOG_LEVEL")

	// Solana
	v.BindEnv("solana.rpc_url", "ORCA_RPC_URL", "RPC_URL")
	v.BindEnv("solana.ws_endpoint", "ORCA_WS_ENDPOINT", "WS_ENDPOINT")
	v.BindEnv("solana.network", "ORCA_NETWORK", "NETWORK")

	// Wallet
	v.BindEnv("wallet.private_key", "ORCA_WALLET_PRIVATE_KEY", "WALLET_PRIVATE_KEY")

	// Trading
	v.BindEnv("trading.default_slippage", "ORCA_DEFAULT_SLIPPAGE", "DEFAULT_SLIPPAGE")
	v.BindEnv("trading.max_slippage", "ORCA_MAX_SLIPPAGE", "MAX_SLIPPAGE")
	v.BindEnv("trading.min_profit_threshold", "ORCA_MIN_PROFIT_THRESHOLD", "MIN_PROFIT_THRESHOLD")
	v.BindEnv("trading.max_trade_size", "ORCA_MAX_TRADE_SIZE", "MAX_TRADE_SIZE")
	v.BindEnv("trading.priority_fee_multiplier", "ORCA_PRIORITY_FEE_MULTIPLIER", "PRIORITY_FEE_MULTIPLIER")
	v.BindEnv("trading.max_bundle_size", "ORCA_MAX_BUNDLE_SIZE", "MAX_BUNDLE_SIZE")
	v.BindEnv("trading.scan_interval", "ORCA_SCAN_INTERVAL", "SCAN_INTERVAL")

	// Executor
	v.BindEnv("executor.confirmation_timeout", "ORCA_CONFIRMATION_TIMEOUT", "CONFIRMATION_TIMEOUT")
	v.BindEnv("executor.dry_run", "ORCA_DRY_RUN", "DRY_RUN")

	// Pool
	v.BindEnv("pool.redis_url", "ORCA_REDIS_URL", "REDIS_URL")

	// Notify
	v.BindEnv("notify.telegram_bot_token", "ORCA_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "ORCA_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("notify.helius_api_key", "ORCA_HELIUS_API_KEY", "HELIUS_API_KEY")
	v.BindEnv("notify.birdeye_api_key", "ORCA_BIRDEYE_API_KEY", "BIRDEYE_API_KEY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ORCA_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ORCA_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ORCA_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ORCA_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.otlp_metrics", "ORCA_OTEL_METRICS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "orca-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Solana defaults
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.network", NetworkMainnet)
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.max_retries", 3)
	v.SetDefault("solana.retry_base_delay", "2s")
	v.SetDefault("solana.request_timeout", "10s")
	v.SetDefault("solana.requests_per_second", 20)
	v.SetDefault("solana.compute_unit_budget", 200_000)
	v.SetDefault("solana.fee_cache_ttl", "400ms")
	v.SetDefault("solana.skip_preflight", false)

	// Trading defaults
	v.SetDefault("trading.default_slippage", 0.5)
	v.SetDefault("trading.max_slippage", 2.0)
	v.SetDefault("trading.min_profit_threshold", 0.001)
	v.SetDefault("trading.max_trade_size", 10)
	v.SetDefault("trading.priority_fee_multiplier", 1.5)
	v.SetDefault("trading.max_bundle_size", 5)
	v.SetDefault("trading.scan_interval", 5000)

	// Executor defaults
	v.SetDefault("executor.confirmation_timeout", 30000)
	v.SetDefault("executor.poll_interval", "500ms")
	v.SetDefault("executor.queue_size", 4)
	v.SetDefault("executor.busy_policy", BusyPolicyDrop)
	v.SetDefault("executor.dry_run", false)

	// Listener defaults
	v.SetDefault("listener.mode", ListenerModeAll)
	v.SetDefault("listener.program_ids", []string{OrcaProgramID})
	v.SetDefault("listener.commitment", "processed")
	v.SetDefault("listener.include_failed", false)
	v.SetDefault("listener.resubscribe_backoff", "1s")
	v.SetDefault("listener.max_resubscribe_attempts", 5)

	// Pipeline defaults
	v.SetDefault("pipeline.queue_size", 256)
	v.SetDefault("pipeline.backpressure", BackpressureDropOldest)
	v.SetDefault("pipeline.analyzer_workers", 1)
	v.SetDefault("pipeline.drain_timeout", "10s")
	v.SetDefault("pipeline.dedup_ttl", "30s")
	v.SetDefault("pipeline.status_interval", "1s")

	// Pool defaults (SOL/USDC on Orca v2)
	v.SetDefault("pool.staleness_bound", "2s")
	v.SetDefault("pool.curve", CurveConstantProduct)
	v.SetDefault("pool.refresh_concurrency", 4)
	v.SetDefault("pool.redis_ttl", "1m")
	v.SetDefault("pool.tracked", []map[string]any{
		{"address": "EGZ7tiLeH62TPV1gL8WwbXGzEPa9zmcpVnnkPKKnrE2U", "program_id": OrcaProgramID},
	})

	// Token defaults
	v.SetDefault("tokens", []map[string]any{
		{"mint": "So11111111111111111111111111111111111111112", "symbol": "SOL", "decimals": 9, "reference_price_sol": 1},
		{"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "symbol": "USDC", "decimals": 6, "reference_price_sol": 0.0066},
	})

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "orca-arbitrage-bot")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// applyDerived fills values computed from other settings.
func (c *Config) applyDerived() {
	if c.Solana.WSEndpoint == "" {
		c.Solana.WSEndpoint = DeriveWSEndpoint(c.Solana.RPCURL)
	}
}

// DeriveWSEndpoint maps an http(s) RPC url onto its ws(s) counterpart.
func DeriveWSEndpoint(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	default:
		return rpcURL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if c.Solana.WSEndpoint == "" {
		return fmt.Errorf("solana.ws_endpoint is required")
	}
	switch c.Solana.Network {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet:
	default:
		return fmt.Errorf("invalid solana.network: %s", c.Solana.Network)
	}
	if c.Solana.MaxRetries < 1 {
		return fmt.Errorf("solana.max_retries must be at least 1")
	}

	if c.Wallet.PrivateKey == "" && !c.Executor.DryRun {
		return fmt.Errorf("wallet.private_key is required unless executor.dry_run is set")
	}

	t := c.Trading
	if t.DefaultSlippage < 0 || t.DefaultSlippage > 10 {
		return fmt.Errorf("trading.default_slippage must be within [0, 10], got %v", t.DefaultSlippage)
	}
	if t.MaxSlippage < 0 || t.MaxSlippage > 20 {
		return fmt.Errorf("trading.max_slippage must be within [0, 20], got %v", t.MaxSlippage)
	}
	if t.DefaultSlippage > t.MaxSlippage {
		return fmt.Errorf("trading.default_slippage %v exceeds trading.max_slippage %v", t.DefaultSlippage, t.MaxSlippage)
	}
	if t.MinProfitThreshold < 0 {
		return fmt.Errorf("trading.min_profit_threshold must be non-negative")
	}
	if t.MaxTradeSize <= 0 {
		return fmt.Errorf("trading.max_trade_size must be positive")
	}
	if t.PriorityFeeMultiplier < 1 {
		return fmt.Errorf("trading.priority_fee_multiplier must be at least 1")
	}
	if t.MaxBundleSize < 1 || t.MaxBundleSize > 10 {
		return fmt.Errorf("trading.max_bundle_size must be within [1, 10], got %d", t.MaxBundleSize)
	}
	if t.ScanIntervalMs < 100 {
		return fmt.Errorf("trading.scan_interval must be at least 100ms")
	}

	if c.Executor.ConfirmationTimeoutMs < 1000 {
		return fmt.Errorf("executor.confirmation_timeout must be at least 1000ms")
	}
	switch c.Executor.BusyPolicy {
	case BusyPolicyQueue, BusyPolicyDrop:
	default:
		return fmt.Errorf("invalid executor.busy_policy: %s", c.Executor.BusyPolicy)
	}

	switch c.Listener.Mode {
	case ListenerModeAll, ListenerModeMentions:
	default:
		return fmt.Errorf("invalid listener.mode: %s", c.Listener.Mode)
	}
	if len(c.Listener.ProgramIDs) == 0 {
		return fmt.Errorf("listener.program_ids cannot be empty")
	}

	switch c.Pipeline.Backpressure {
	case BackpressureBlock, BackpressureDropOldest:
	default:
		return fmt.Errorf("invalid pipeline.backpressure: %s", c.Pipeline.Backpressure)
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be positive")
	}
	if c.Pipeline.StatusInterval <= 0 {
		return fmt.Errorf("pipeline.status_interval must be positive")
	}

	switch c.Pool.Curve {
	case CurveConstantProduct, CurveSpot:
	default:
		return fmt.Errorf("invalid pool.curve: %s", c.Pool.Curve)
	}
	if len(c.Pool.Tracked) == 0 {
		return fmt.Errorf("pool.tracked cannot be empty")
	}
	for i, p := range c.Pool.Tracked {
		if p.Address == "" || p.ProgramID == "" {
			return fmt.Errorf("pool.tracked[%d] needs address and program_id", i)
		}
	}
	for i, tk := range c.Tokens {
		if tk.Mint == "" || tk.Symbol == "" {
			return fmt.Errorf("tokens[%d] needs mint and symbol", i)
		}
	}

	return nil
}
