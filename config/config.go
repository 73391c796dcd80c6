package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	RPCURL         string
	JupiterBaseURL string

	MoralisBaseURL string
	MoralisAPIKey  string
	SolscanBaseURL string

	TokensFile string

	SlippageBps       int
	Debounce          time.Duration
	HTTPTimeout       time.Duration
	ConfirmTimeout    time.Duration
	PollInterval      time.Duration
	ComputeUnitPrice  uint64
	MaxRetries        uint
	SkipPreflight     bool
	Commitment        string
	MetadataCacheSize int

	PrivateKey  string
	KeypairPath string

	LogLevel  string
	LogFormat string
}

func defaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("jupiter_base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("moralis_base_url", "https://solana-gateway.moralis.io")
	v.SetDefault("solscan_base_url", "https://api.solscan.io")
	v.SetDefault("tokens_file", "")
	v.SetDefault("slippage_bps", 50)
	v.SetDefault("debounce_ms", 500)
	v.SetDefault("http_timeout_ms", 15000)
	v.SetDefault("confirm_timeout_ms", 60000)
	v.SetDefault("poll_interval_ms", 1000)
	v.SetDefault("compute_unit_price_micro_lamports", 10000)
	v.SetDefault("max_retries", 2)
	v.SetDefault("skip_preflight", true)
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("metadata_cache_size", 1024)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".sol-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	defaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SOL_SWAP")
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		RPCURL:            v.GetString("rpc_url"),
		JupiterBaseURL:    strings.TrimRight(v.GetString("jupiter_base_url"), "/"),
		MoralisBaseURL:    strings.TrimRight(v.GetString("moralis_base_url"), "/"),
		MoralisAPIKey:     v.GetString("moralis_api_key"),
		SolscanBaseURL:    strings.TrimRight(v.GetString("solscan_base_url"), "/"),
		TokensFile:        v.GetString("tokens_file"),
		SlippageBps:       v.GetInt("slippage_bps"),
		Debounce:          millis(v.GetInt64("debounce_ms")),
		HTTPTimeout:       millis(v.GetInt64("http_timeout_ms")),
		ConfirmTimeout:    millis(v.GetInt64("confirm_timeout_ms")),
		PollInterval:      millis(v.GetInt64("poll_interval_ms")),
		ComputeUnitPrice:  v.GetUint64("compute_unit_price_micro_lamports"),
		MaxRetries:        v.GetUint("max_retries"),
		SkipPreflight:     v.GetBool("skip_preflight"),
		Commitment:        v.GetString("commitment"),
		MetadataCacheSize: v.GetInt("metadata_cache_size"),
		PrivateKey:        v.GetString("private_key"),
		KeypairPath:       v.GetString("keypair_path"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}
}

// Validate checks value ranges. Signing keys are checked only by commands that sign.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL not set. Please set SOL_SWAP_RPC_URL or rpc_url in .sol-swap.yaml")
	}
	if c.JupiterBaseURL == "" {
		return fmt.Errorf("Jupiter base URL not set. Please set SOL_SWAP_JUPITER_BASE_URL")
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps must be between 0 and 10000, got %d", c.SlippageBps)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}
	if c.MetadataCacheSize <= 0 {
		return fmt.Errorf("metadata_cache_size must be positive, got %d", c.MetadataCacheSize)
	}
	switch strings.ToLower(c.Commitment) {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("commitment must be processed, confirmed or finalized, got %q", c.Commitment)
	}
	return nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
