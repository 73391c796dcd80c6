package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	defaults(v)
	cfg := FromViper(v)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://quote-api.jup.ag/v6", cfg.JupiterBaseURL)
	assert.Equal(t, 50, cfg.SlippageBps)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, uint(2), cfg.MaxRetries)
	assert.True(t, cfg.SkipPreflight)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, uint64(10000), cfg.ComputeUnitPrice)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SOL_SWAP_RPC_URL", "http://localhost:8899")
	t.Setenv("SOL_SWAP_SLIPPAGE_BPS", "100")
	t.Setenv("SOL_SWAP_DEBOUNCE_MS", "250")
	t.Setenv("SOL_SWAP_COMMITMENT", "finalized")
	t.Setenv("SOL_SWAP_JUPITER_BASE_URL", "http://localhost:9000/v6/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPCURL)
	assert.Equal(t, "http://localhost:9000/v6", cfg.JupiterBaseURL)
	assert.Equal(t, 100, cfg.SlippageBps)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "finalized", cfg.Commitment)
}

func TestLoadFromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { os.Chdir(wd) })

	yaml := "rpc_url: http://devnet.example\nmoralis_api_key: secret\nmax_retries: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".sol-swap.yaml"), []byte(yaml), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://devnet.example", cfg.RPCURL)
	assert.Equal(t, "secret", cfg.MoralisAPIKey)
	assert.Equal(t, uint(5), cfg.MaxRetries)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v := viper.New()
		defaults(v)
		return FromViper(v)
	}

	cfg := valid()
	cfg.SlippageBps = 10001
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Commitment = "recent"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RPCURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.MetadataCacheSize = 0
	assert.Error(t, cfg.Validate())
}
