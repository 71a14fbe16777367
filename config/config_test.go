package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken    = "test-token"
	testMerchant = "MERCHANT123"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("CHECKOUT_CLOVER_TOKEN", testToken)
	t.Setenv("CHECKOUT_CLOVER_MERCHANTID", testMerchant)
}

func TestLoadFromYAMLDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := LoadFromYAML(nil)
	require.NoError(t, err)

	assert.Equal(t, "checkout-api", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, 20, cfg.App.Rate.Limit)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout.Read)
	assert.Equal(t, "/api", cfg.Server.Path.Base)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.Origins)

	assert.Equal(t, CloverSandbox, cfg.Clover.Environment)
	assert.Equal(t, FlowAuthorize, cfg.Clover.Flow)
	assert.Equal(t, "USD", cfg.Clover.Currency)
	assert.Equal(t, testToken, cfg.Clover.Token)
	assert.Equal(t, testMerchant, cfg.Clover.MerchantID)

	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, time.Second, cfg.Retry.MaxJitter)

	require.Len(t, cfg.Coupons, 3)
	assert.Equal(t, "SAVE10", cfg.Coupons[0].Code)
	assert.InDelta(t, 50, cfg.Coupons[2].Value, 0)
	assert.True(t, cfg.Coupons[1].Active)

	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, EndpointStdout, cfg.Observability.Endpoint)
}

func TestLoadFromYAMLOverrides(t *testing.T) {
	setCredentials(t)

	doc := []byte(`
app:
  env: production
server:
  port: 9090
clover:
  environment: production
  flow: checkouts
retry:
  maxretries: 2
  basedelay: 250ms
coupons:
  - code: WELCOME
    type: fixed
    value: 5
    active: true
`)

	cfg, err := LoadFromYAML(doc)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, CloverProduction, cfg.Clover.Environment)
	assert.Equal(t, FlowCheckouts, cfg.Clover.Flow)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	require.Len(t, cfg.Coupons, 1)
	assert.Equal(t, CouponFixed, cfg.Coupons[0].Type)
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	setCredentials(t)
	t.Setenv("CHECKOUT_SERVER_PORT", "7070")
	t.Setenv("CHECKOUT_RETRY_MAXRETRIES", "0")
	t.Setenv("CHECKOUT_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadFromYAML([]byte("server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORS.Origins)
}

func TestLegacyCloverVariables(t *testing.T) {
	t.Setenv("CLOVER_AUTH_TOKEN", "legacy-token")
	t.Setenv("CLOVER_MERCHANT_ID", "LEGACY")

	cfg, err := LoadFromYAML(nil)
	require.NoError(t, err)

	assert.Equal(t, "legacy-token", cfg.Clover.Token)
	assert.Equal(t, "LEGACY", cfg.Clover.MerchantID)
}

func TestMissingCredentialsFail(t *testing.T) {
	t.Setenv("CHECKOUT_CLOVER_TOKEN", "")
	t.Setenv("CLOVER_AUTH_TOKEN", "")
	t.Setenv("CLOVER_ACCESS_TOKEN", "")
	t.Setenv("CLOVER_API_KEY", "")

	_, err := LoadFromYAML(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clover.token")
	assert.Contains(t, err.Error(), "config_missing")
}

func TestInvalidYAML(t *testing.T) {
	_, err := LoadFromYAML([]byte("server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml")
}

func TestAccessors(t *testing.T) {
	setCredentials(t)

	cfg, err := LoadFromYAML([]byte("custom:\n  name: shop\n  retries: 3\n  wait: 2s\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Exists("custom.name"))
	assert.Equal(t, "shop", cfg.String("custom.name", "x"))
	assert.Equal(t, "fallback", cfg.String("custom.missing", "fallback"))
	assert.Equal(t, 3, cfg.Int("custom.retries", 0))
	assert.Equal(t, 9, cfg.Int("custom.none", 9))
	assert.Equal(t, 2*time.Second, cfg.Duration("custom.wait", 0))

	var retry RetryConfig
	require.NoError(t, cfg.Unmarshal("retry", &retry))
	assert.Equal(t, 5, retry.MaxRetries)
}

func TestAccessorsOnEmptyConfig(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.Exists("a"))
	assert.ErrorIs(t, cfg.Unmarshal("a", &struct{}{}), ErrNotConfigured)

	empty := &Config{}
	assert.Equal(t, "d", empty.String("a", "d"))
}
