package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("ftse-100", "marketwatch")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ftse-100", cfg.Name)
	assert.Equal(t, "marketwatch", cfg.Provider)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 15*time.Minute, cfg.Timeouts.Run)
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)
	assert.Equal(t, 2.0, cfg.Reliability.RetryMultiplier)
	assert.Equal(t, 30, cfg.Reliability.CallsPerMinute)
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"zero request timeout", func(c *Config) { c.Timeouts.Request = 0 }},
		{"zero run timeout", func(c *Config) { c.Timeouts.Run = 0 }},
		{"zero retry attempts", func(c *Config) { c.Reliability.RetryAttempts = 0 }},
		{"sub-1 multiplier", func(c *Config) { c.Reliability.RetryMultiplier = 0.5 }},
		{"negative rate limit", func(c *Config) { c.Reliability.CallsPerMinute = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig("test", "test")
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	r := ReliabilityConfig{CallsPerMinute: 30}
	assert.True(t, r.IsRateLimited())
	assert.Equal(t, 2*time.Second, r.MinInterval())

	assert.False(t, (&ReliabilityConfig{}).IsRateLimited())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeouts:
  request: 45s
reliability:
  calls_per_minute: 7
`), 0o644))

	cfg := NewConfig("test", "test")
	require.NoError(t, LoadFile(path, cfg))

	assert.Equal(t, 45*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, 7, cfg.Reliability.CallsPerMinute)
	// Untouched fields keep their defaults
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Timeouts.Run)
}

func TestLoadFileEnvWins(t *testing.T) {
	t.Setenv("HARVEST_RELIABILITY_RETRY_ATTEMPTS", "5")

	cfg := NewConfig("test", "test")
	require.NoError(t, LoadFile("", cfg))

	assert.Equal(t, 5, cfg.Reliability.RetryAttempts)
}

func TestLoadFileMissingFile(t *testing.T) {
	cfg := NewConfig("test", "test")
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), cfg))
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewConfig("test", "test")
	cfg.Reliability.CallsPerMinute = 12
	require.NoError(t, Save(path, cfg))

	loaded := NewConfig("test", "test")
	require.NoError(t, LoadFile(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("HARVEST_TEST_KEY", "secret")

	v, err := APIKey("HARVEST_TEST_KEY", true)
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	_, err = APIKey("HARVEST_ABSENT_KEY", true)
	assert.Error(t, err)

	v, err = APIKey("HARVEST_ABSENT_KEY", false)
	require.NoError(t, err)
	assert.Empty(t, v)
}
