package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Database.PoolMin)
	assert.Equal(t, 20, cfg.Database.PoolMax)
	assert.Equal(t, 50, cfg.Redis.PoolSize)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, 0.1, cfg.Pipeline.EMAAlpha)
	assert.Equal(t, 2.5, cfg.Pipeline.AlertThreshold)
	assert.Equal(t, 24, cfg.Pipeline.AlertCooldownHours)
	assert.True(t, cfg.Pipeline.FuzzyEnabled)
	assert.Equal(t, 0.85, cfg.Pipeline.FuzzyThreshold)
	assert.Equal(t, "log", cfg.Alerting.Sink)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
pipeline:
  ema_alpha: 0.2
  alert_threshold: 2.0
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 0.2, cfg.Pipeline.EMAAlpha)
	assert.Equal(t, 2.0, cfg.Pipeline.AlertThreshold)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  ema_alpha: 0.2\n"), 0o644))

	t.Setenv("EMA_ALPHA", "0.3")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Pipeline.EMAAlpha)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha too high", func(c *Config) { c.Pipeline.EMAAlpha = 1.5 }},
		{"alpha zero", func(c *Config) { c.Pipeline.EMAAlpha = 0 }},
		{"threshold out of range", func(c *Config) { c.Pipeline.AlertThreshold = 6 }},
		{"cooldown too long", func(c *Config) { c.Pipeline.AlertCooldownHours = 169 }},
		{"fuzzy threshold negative", func(c *Config) { c.Pipeline.FuzzyThreshold = -0.1 }},
		{"zero prefetch", func(c *Config) { c.RabbitMQ.PrefetchCount = 0 }},
		{"inverted pool bounds", func(c *Config) { c.Database.PoolMin = 30 }},
		{"unknown sink", func(c *Config) { c.Alerting.Sink = "carrier-pigeon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAlertCooldownSeconds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 86400, cfg.AlertCooldownSeconds())
}
