package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultPinningEndpoint, cfg.Pinning.Endpoint)
	assert.Equal(t, "none", cfg.Auth.Type)
	assert.Equal(t, 1000, cfg.Chain.ReceiptPollMillis)
	assert.Empty(t, cfg.Chain.Deployments)
	assert.False(t, cfg.Chain.HasProvider())
	assert.True(t, cfg.Server.Console)
	assert.Equal(t, 1, cfg.Security.MaxBodySizeMB)
	assert.Equal(t, 50, cfg.Security.MaxUploadSizeMB)
	assert.Equal(t, 10, cfg.RateLimit.WriteRequestsPerMin)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("WALLET_RPC_URL", "http://127.0.0.1:7545")
	t.Setenv("CONTRACT_ADDRESS", "  0x1234567890123456789012345678901234567890 ")
	t.Setenv("CONTRACT_DEPLOYMENTS", "5777=0x1111111111111111111111111111111111111111, 1337=0x2222222222222222222222222222222222222222")
	t.Setenv("PINATA_API_KEY", "key")
	t.Setenv("PINATA_SECRET_API_KEY", "secret")
	t.Setenv("API_KEY_HASHES", "abc,def")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Chain.HasProvider())
	assert.Equal(t, "0x1234567890123456789012345678901234567890", cfg.Chain.ContractAddress)
	assert.Equal(t, map[string]string{
		"5777": "0x1111111111111111111111111111111111111111",
		"1337": "0x2222222222222222222222222222222222222222",
	}, cfg.Chain.Deployments)
	assert.NoError(t, cfg.Chain.Validate())
	assert.NoError(t, cfg.Pinning.Validate())
	assert.Equal(t, "api-key", cfg.Auth.Type)
	assert.Equal(t, []string{"abc", "def"}, cfg.Auth.KeyHashes)
}

func TestLoad_InvalidDeployments(t *testing.T) {
	tests := []string{
		"5777",
		"=0x1111111111111111111111111111111111111111",
		"mainnet=0x1111111111111111111111111111111111111111",
	}
	for _, value := range tests {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CONTRACT_DEPLOYMENTS", value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_MissingValues(t *testing.T) {
	assert.ErrorIs(t, ChainConfig{}.Validate(), ErrMissingContractAddress)
	assert.ErrorIs(t, PinningConfig{APIKey: "only-one"}.Validate(), ErrMissingPinningKeys)
	assert.ErrorIs(t, PinningConfig{SecretAPIKey: "only-one"}.Validate(), ErrMissingPinningKeys)
}
