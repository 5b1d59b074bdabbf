package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, RouteAggregator, cfg.Route)
	assert.Equal(t, "https://1click.chaindefuser.com", cfg.BaseURL)
	assert.Equal(t, FamilyEVM, cfg.Network.Family)
	assert.Equal(t, int64(1), cfg.Network.ChainID)
	assert.Equal(t, "ETH", cfg.Network.NativeSymbol)
	assert.Equal(t, int32(18), cfg.Network.NativeDecimals)
	assert.Equal(t, 0.5, cfg.Convert.Slippage)
	assert.Equal(t, 0.0085, cfg.Convert.ProviderFee)
	assert.Nil(t, cfg.Network.GasPrice)
	assert.Nil(t, cfg.Network.GasLimit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOKEN_CONVERT_ROUTE", "INTENTS")
	t.Setenv("TOKEN_CONVERT_JWT_TOKEN", "jwt")
	t.Setenv("TOKEN_CONVERT_NETWORK_RPC_URL", "http://localhost:8545")
	t.Setenv("TOKEN_CONVERT_NETWORK_GAS_LIMIT", "90000")
	t.Setenv("TOKEN_CONVERT_CONVERT_SLIPPAGE", "1.5")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, RouteIntents, cfg.Route)
	assert.Equal(t, "jwt", cfg.JWTToken)
	assert.Equal(t, "http://localhost:8545", cfg.Network.RPCUrl)
	require.NotNil(t, cfg.Network.GasLimit)
	assert.Equal(t, uint64(90000), *cfg.Network.GasLimit)
	assert.Equal(t, 1.5, cfg.Convert.Slippage)
}

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
route: intents
jwt_token: abc
network:
  chain: sol
  family: solana
solana:
  commitment: finalized
`)))

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "sol", cfg.Network.Chain)
	assert.Equal(t, "SOL", cfg.Network.NativeSymbol)
	assert.Equal(t, int32(9), cfg.Network.NativeDecimals)
	assert.Equal(t, "finalized", cfg.Solana.Commitment)
}

func TestLoadZeroProviderFee(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("convert:\n  provider_fee: 0")))

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.Convert.ProviderFee)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "intents without jwt", yaml: "route: intents", want: "JWT token not found"},
		{name: "aggregator on solana", yaml: "network:\n  family: solana", want: "only supports EVM"},
		{name: "unknown route", yaml: "route: bridge", want: "unknown route"},
		{name: "slippage too high", yaml: "convert:\n  slippage: 80", want: "slippage"},
		{name: "provider fee as percent", yaml: "convert:\n  provider_fee: 5", want: "provider fee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tt.yaml)))

			_, err := load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
