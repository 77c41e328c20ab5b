package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_DefaultsAndAliases(t *testing.T) {
	t.Setenv("RPC_URL", "https://rpc.example.org")
	t.Setenv("WALLET_PRIVATE_KEY", "placeholder")
	t.Setenv("MAX_BUNDLE_SIZE", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Solana.RPCURL != "https://rpc.example.org" {
		t.Errorf("RPCURL = %s", cfg.Solana.RPCURL)
	}
	if cfg.Solana.WSEndpoint != "wss://rpc.example.org" {
		t.Errorf("WSEndpoint = %s, want derived wss url", cfg.Solana.WSEndpoint)
	}
	if cfg.Trading.MaxBundleSize != 3 {
		t.Errorf("MaxBundleSize = %d, want 3", cfg.Trading.MaxBundleSize)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.App.LogLevel)
	}
	if cfg.Executor.ConfirmationTimeout() != 30*time.Second {
		t.Errorf("ConfirmationTimeout = %s", cfg.Executor.ConfirmationTimeout())
	}
	if cfg.Solana.MaxRetries != 3 || cfg.Solana.RetryBaseDelay != 2*time.Second {
		t.Errorf("retry defaults = %d/%s", cfg.Solana.MaxRetries, cfg.Solana.RetryBaseDelay)
	}
	if len(cfg.Listener.ProgramIDs) != 1 || cfg.Listener.ProgramIDs[0] != OrcaProgramID {
		t.Errorf("ProgramIDs = %v", cfg.Listener.ProgramIDs)
	}
	if len(cfg.Pool.Tracked) == 0 || len(cfg.Tokens) != 2 {
		t.Errorf("tracked pools = %d, tokens = %d", len(cfg.Pool.Tracked), len(cfg.Tokens))
	}
}

func TestDeriveWSEndpoint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.devnet.solana.com", "wss://api.devnet.solana.com"},
		{"http://127.0.0.1:8899", "ws://127.0.0.1:8899"},
		{"wss://already", "wss://already"},
	}
	for _, tt := range tests {
		if got := DeriveWSEndpoint(tt.in); got != tt.want {
			t.Errorf("DeriveWSEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func validConfig() Config {
	return Config{
		Solana: SolanaConfig{RPCURL: "https://x", WSEndpoint: "wss://x", Network: NetworkDevnet, MaxRetries: 3},
		Wallet: WalletConfig{PrivateKey: "k"},
		Trading: TradingConfig{
			DefaultSlippage: 0.5, MaxSlippage: 2, MinProfitThreshold: 0.001, MaxTradeSize: 10,
			PriorityFeeMultiplier: 1.5, MaxBundleSize: 5, ScanIntervalMs: 5000,
		},
		Executor: ExecutorConfig{ConfirmationTimeoutMs: 30000, BusyPolicy: BusyPolicyDrop},
		Listener: ListenerConfig{Mode: ListenerModeAll, ProgramIDs: []string{OrcaProgramID}},
		Pipeline: PipelineConfig{QueueSize: 8, Backpressure: BackpressureBlock},
		Pool:     PoolConfig{Curve: CurveSpot, Tracked: []TrackedPoolItem{{Address: "p", ProgramID: OrcaProgramID}}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad network", func(c *Config) { c.Solana.Network = "localnet" }, true},
		{"slippage above range", func(c *Config) { c.Trading.DefaultSlippage = 11 }, true},
		{"default above max", func(c *Config) { c.Trading.DefaultSlippage = 3 }, true},
		{"multiplier below one", func(c *Config) { c.Trading.PriorityFeeMultiplier = 0.9 }, true},
		{"bundle size zero", func(c *Config) { c.Trading.MaxBundleSize = 0 }, true},
		{"bundle size eleven", func(c *Config) { c.Trading.MaxBundleSize = 11 }, true},
		{"confirmation too short", func(c *Config) { c.Executor.ConfirmationTimeoutMs = 999 }, true},
		{"scan too short", func(c *Config) { c.Trading.ScanIntervalMs = 50 }, true},
		{"missing key", func(c *Config) { c.Wallet.PrivateKey = "" }, true},
		{"missing key dry run", func(c *Config) { c.Wallet.PrivateKey = ""; c.Executor.DryRun = true }, false},
		{"bad mode", func(c *Config) { c.Listener.Mode = "some" }, true},
		{"bad backpressure", func(c *Config) { c.Pipeline.Backpressure = "drop_newest" }, true},
		{"no pools", func(c *Config) { c.Pool.Tracked = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTradingConfig_Decimals(t *testing.T) {
	tc := TradingConfig{DefaultSlippage: 0.5, MinProfitThreshold: 0.001, MaxTradeSize: 10}

	if !tc.SlippageFraction().Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("SlippageFraction = %s", tc.SlippageFraction())
	}
	if !tc.MinProfitDecimal().Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("MinProfitDecimal = %s", tc.MinProfitDecimal())
	}
	if !tc.MaxTradeSizeDecimal().Equal(decimal.NewFromInt(10)) {
		t.Errorf("MaxTradeSizeDecimal = %s", tc.MaxTradeSizeDecimal())
	}
}
