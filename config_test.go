package lighter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.lighter.xyz", cfg.BaseURL)
	assert.Equal(t, "wss://stream.lighter.xyz/ws", cfg.StreamURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.RetryMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 10*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, 5, cfg.ReconnectMaxAttempts)
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("LIGHTER_BASE_URL", "https://testnet.lighter.xyz/v2")
	t.Setenv("LIGHTER_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("LIGHTER_REQUEST_TIMEOUT", "5s")
	t.Setenv("LIGHTER_ACCOUNT_INDEX", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://testnet.lighter.xyz/v2", cfg.BaseURL)
	assert.Equal(t, 7, cfg.RetryMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, uint32(3), cfg.AccountIndex)
}

func TestConfig_RejectsBothIdentities(t *testing.T) {
	t.Setenv("LIGHTER_PRIVATE_KEY", "0xabc")
	t.Setenv("LIGHTER_MNEMONIC", "abandon abandon about")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfig_RejectsInvalidURL(t *testing.T) {
	cfg := Config{BaseURL: "not a url", StreamURL: "wss://stream.lighter.xyz/ws"}
	require.Error(t, cfg.Validate())
}

func TestConfig_RetryPolicy(t *testing.T) {
	cfg := Config{
		RetryMaxAttempts: 6,
		RetryBaseDelay:   50 * time.Millisecond,
		RetryMaxDelay:    2 * time.Second,
	}
	policy := cfg.retryPolicy()
	assert.Equal(t, 6, policy.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 2*time.Second, policy.MaxDelay)

	// Unset fields fall back to the venue defaults.
	defaults := Config{}.retryPolicy()
	assert.Equal(t, 4, defaults.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, defaults.BaseDelay)
}
