package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	RouteAggregator = "aggregator" // Same-chain conversion through a DEX aggregator
	RouteIntents    = "intents"    // Cross-chain conversion through 1Click deposit addresses

	FamilyEVM    = "evm"
	FamilySolana = "solana"
)

// Config holds the application configuration
type Config struct {
	JWTToken    string           `mapstructure:"jwt_token"`
	BaseURL     string           `mapstructure:"base_url"`
	Route       string           `mapstructure:"route"`
	HistoryPath string           `mapstructure:"history_path"`
	Aggregator  AggregatorConfig `mapstructure:"aggregator"`
	Network     NetworkConfig    `mapstructure:"network"`
	Solana      SolanaConfig     `mapstructure:"solana"`
	Convert     ConvertConfig    `mapstructure:"convert"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// AggregatorConfig configures the same-chain aggregator API
type AggregatorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// NetworkConfig describes the chain the wallet is connected to
type NetworkConfig struct {
	Chain          string  `mapstructure:"chain"`  // 1Click blockchain name, e.g. "eth", "base", "sol"
	Family         string  `mapstructure:"family"` // "evm" or "solana"
	ChainID        int64   `mapstructure:"chain_id"`
	RPCUrl         string  `mapstructure:"rpc_url"`
	PrivateKey     string  `mapstructure:"private_key"`
	NativeSymbol   string  `mapstructure:"native_symbol"`
	NativeDecimals int32   `mapstructure:"native_decimals"`
	GasPrice       *int64  `mapstructure:"gas_price"` // Optional: override gas price in wei
	GasLimit       *uint64 `mapstructure:"gas_limit"` // Optional: override gas limit
}

// SolanaConfig holds Solana specific wallet options
type SolanaConfig struct {
	Commitment    string `mapstructure:"commitment"` // finalized, confirmed or processed
	SkipPreflight bool   `mapstructure:"skip_preflight"`
}

// ConvertConfig holds conversion defaults
type ConvertConfig struct {
	Slippage       float64  `mapstructure:"slippage"`     // Percent
	ProviderFee    float64  `mapstructure:"provider_fee"` // Fraction of the source amount
	PopularSymbols []string `mapstructure:"popular_symbols"`
}

// LoggingConfig controls the structured log file
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".token-convert")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Read config file (optional)
	_ = v.ReadInConfig()

	return load(v)
}

// load applies defaults and environment overrides to v and decodes the result
func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("TOKEN_CONVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.Route = strings.ToLower(cfg.Route)
	cfg.Network.Family = strings.ToLower(cfg.Network.Family)
	cfg.Network.Chain = strings.ToLower(cfg.Network.Chain)
	// Defaults describe Ethereum; a Solana network left on them gets SOL's
	if cfg.Network.Family == FamilySolana && cfg.Network.NativeSymbol == "ETH" {
		cfg.Network.NativeSymbol = "SOL"
		cfg.Network.NativeDecimals = 9
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://1click.chaindefuser.com")
	v.SetDefault("route", RouteAggregator)
	v.SetDefault("aggregator.base_url", "https://api.1inch.dev/swap/v6.0")
	v.SetDefault("network.chain", "eth")
	v.SetDefault("network.family", FamilyEVM)
	v.SetDefault("network.chain_id", 1)
	v.SetDefault("network.native_symbol", "ETH")
	v.SetDefault("network.native_decimals", 18)
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("convert.slippage", 0.5)
	v.SetDefault("convert.provider_fee", 0.0085)
	v.SetDefault("convert.popular_symbols", []string{"ETH", "USDC", "USDT", "DAI", "WBTC"})
	v.SetDefault("logging.level", "info")

	// Bind nested keys so AutomaticEnv can see them during Unmarshal
	for _, key := range []string{
		"jwt_token", "history_path", "aggregator.api_key",
		"network.rpc_url", "network.private_key", "network.gas_price", "network.gas_limit",
		"solana.skip_preflight", "logging.file",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate checks the configuration for the selected route and chain family
func (c *Config) Validate() error {
	switch c.Route {
	case RouteAggregator:
		if c.Network.Family != FamilyEVM {
			return fmt.Errorf("the aggregator route only supports EVM networks, got %q", c.Network.Family)
		}
		if c.Aggregator.BaseURL == "" {
			return fmt.Errorf("aggregator base URL not configured")
		}
	case RouteIntents:
		if c.JWTToken == "" {
			return fmt.Errorf("JWT token not found. Please set TOKEN_CONVERT_JWT_TOKEN environment variable or add jwt_token to .token-convert.yaml")
		}
	default:
		return fmt.Errorf("unknown route %q (expected %q or %q)", c.Route, RouteAggregator, RouteIntents)
	}

	if c.Network.Family != FamilyEVM && c.Network.Family != FamilySolana {
		return fmt.Errorf("unknown network family %q", c.Network.Family)
	}
	if c.Convert.Slippage < 0 || c.Convert.Slippage > 50 {
		return fmt.Errorf("slippage must be between 0 and 50 percent")
	}
	if c.Convert.ProviderFee < 0 || c.Convert.ProviderFee >= 1 {
		return fmt.Errorf("provider fee must be a fraction between 0 and 1")
	}
	return nil
}
