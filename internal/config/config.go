// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/spf13/viper"
)

type Config struct {
	RPCURL        string `mapstructure:"rpc_url"`
	TokenMint     string `mapstructure:"token_mint"`
	TokenSymbol   string `mapstructure:"token_symbol"`
	TokenDecimals uint8  `mapstructure:"token_decimals"`
	BurnAddress   string `mapstructure:"burn_address"`

	PriceAPIURL    string `mapstructure:"price_api_url"`
	PriceRateLimit int    `mapstructure:"price_rate_limit"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`

	SignTimeoutMs   int `mapstructure:"sign_timeout_ms"`
	SettleTimeoutMs int `mapstructure:"settle_timeout_ms"`

	// Supplies and the advisory threshold are in whole tokens.
	LargeBurnThreshold uint64 `mapstructure:"large_burn_threshold"`
	TotalSupply        uint64 `mapstructure:"total_supply"`
	InitialSupply      uint64 `mapstructure:"initial_supply"`

	WalletKey       string `mapstructure:"wallet_key"`
	RequireApproval bool   `mapstructure:"require_approval"`
	ComputeUnits    uint32 `mapstructure:"compute_units"`
	PriorityFeeSol  string `mapstructure:"priority_fee_sol"`

	PostgresURL  string `mapstructure:"postgres_url"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	// MetricsAddr is the listen address of the /metrics endpoint; empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

const (
	DefaultRPCURL             = "https://api.mainnet-beta.solana.com"
	DefaultTokenSymbol        = "KITA"
	DefaultTokenDecimals      = 4
	DefaultBurnAddress        = "1nc1nerator11111111111111111111111111111111"
	DefaultPriceAPIURL        = "https://api.dexscreener.com/latest/dex"
	DefaultPriceRateLimit     = 300
	DefaultPollIntervalMs     = 5000
	DefaultSettleTimeoutMs    = 90000
	DefaultLargeBurnThreshold = 1_000_000_000_000
	DefaultTotalSupply        = 1_000_000_000_000_000
	DefaultLogFile            = "burn-portal.log"

	envPrefix = "BURN_PORTAL"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_url":              DefaultRPCURL,
		"token_symbol":         DefaultTokenSymbol,
		"token_decimals":       DefaultTokenDecimals,
		"burn_address":         DefaultBurnAddress,
		"price_api_url":        DefaultPriceAPIURL,
		"price_rate_limit":     DefaultPriceRateLimit,
		"poll_interval_ms":     DefaultPollIntervalMs,
		"sign_timeout_ms":      0,
		"settle_timeout_ms":    DefaultSettleTimeoutMs,
		"large_burn_threshold": DefaultLargeBurnThreshold,
		"total_supply":         DefaultTotalSupply,
		"require_approval":     true,
		"log_file":             DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)
	if cfg.InitialSupply == 0 {
		cfg.InitialSupply = cfg.TotalSupply
	}

	return &cfg, validateConfig(&cfg)
}

// PollInterval is the shared cadence of the price, balance and stats pollers.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SignTimeout is zero when signing waits indefinitely.
func (c *Config) SignTimeout() time.Duration {
	return time.Duration(c.SignTimeoutMs) * time.Millisecond
}

// SettleTimeout is negative when settlement waits indefinitely.
func (c *Config) SettleTimeout() time.Duration {
	if c.SettleTimeoutMs == 0 {
		return -1
	}
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if cfg.TokenMint == "" {
		return errors.New("missing token_mint in configuration")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.TokenMint); err != nil {
		return fmt.Errorf("invalid token_mint: %w", err)
	}
	if _, err := solana.PublicKeyFromBase58(cfg.BurnAddress); err != nil {
		return fmt.Errorf("invalid burn_address: %w", err)
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if err := validateURLWithCache(cfg.PriceAPIURL, "http"); err != nil {
		return errors.New("invalid price API URL protocol")
	}
	if cfg.PostgresURL != "" {
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("postgres_url must use the postgres scheme")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TokenDecimals > 30 {
		return errors.New("invalid token_decimals")
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.PriceRateLimit < 0 {
		return errors.New("invalid price_rate_limit")
	}
	if cfg.SignTimeoutMs < 0 {
		return errors.New("invalid sign_timeout_ms")
	}
	if cfg.SettleTimeoutMs < 0 {
		return errors.New("invalid settle_timeout_ms")
	}
	if cfg.TotalSupply == 0 {
		return errors.New("invalid total_supply")
	}
	if cfg.InitialSupply < cfg.TotalSupply {
		return errors.New("initial_supply must not be below total_supply")
	}
	// SPL mints count supply and transfers in u64 base units.
	for _, p := range []struct {
		key   string
		whole uint64
	}{
		{"initial_supply", cfg.InitialSupply},
		{"total_supply", cfg.TotalSupply},
		{"large_burn_threshold", cfg.LargeBurnThreshold},
	} {
		if _, ok := amount.Whole(p.whole, cfg.TokenDecimals).Uint64(); !ok {
			return fmt.Errorf("%s does not fit a token amount at %d decimals", p.key, cfg.TokenDecimals)
		}
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if key := v.GetString("WALLET_KEY"); key != "" {
		cfg.WalletKey = key
	}
	if rpcURL := strings.TrimSpace(v.GetString("RPC_URL")); rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if dsn := v.GetString("POSTGRES_URL"); dsn != "" {
		cfg.PostgresURL = dsn
	}
}
