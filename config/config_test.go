package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 6*time.Hour, cfg.Hydration.StalenessWindow)
	assert.Equal(t, 4, cfg.Hydration.Concurrency)
	assert.Equal(t, 0, cfg.SailingAPI.MaxRetries)
	assert.Equal(t, 10000, cfg.Filter.HiddenMemoSize)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8088
storage:
  type: memory
hydration:
  staleness_window: 2h
  sweep_enabled: true
  sweep_interval: 5m
sailing_api:
  base_url: https://sailings.example.test
`)
	t.Setenv("OFFER_SERVICE_HYDRATION_CONCURRENCY", "8")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 2*time.Hour, cfg.Hydration.StalenessWindow)
	assert.True(t, cfg.Hydration.SweepEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Hydration.SweepInterval)
	assert.Equal(t, 8, cfg.Hydration.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "https://sailings.example.test", cfg.SailingAPI.BaseURL)

	rl := cfg.SailingAPI.RateLimitConfig()
	assert.Equal(t, 2.0, rl.RequestsPerSecond)
	assert.Equal(t, 100, rl.InitialBackoffMs)
}

func TestLoad_InvalidFileFails(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:     ServerConfig{Port: 3000},
			Storage:    StorageConfig{Type: "memory"},
			Hydration:  HydrationConfig{StalenessWindow: 6 * time.Hour, Concurrency: 4},
			SailingAPI: SailingAPIConfig{Timeout: time.Second, InitialBackoffMs: 100, MaxBackoffMs: 1000},
			Filter:     FilterConfig{HiddenMemoSize: 10},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown storage", func(c *Config) { c.Storage.Type = "s3" }, "storage.type"},
		{"postgres without url", func(c *Config) { c.Storage.Type = "postgres" }, "database.url"},
		{"badger without path", func(c *Config) { c.Storage.Type = "badger" }, "storage.badger_path"},
		{"zero staleness", func(c *Config) { c.Hydration.StalenessWindow = 0 }, "hydration.staleness_window"},
		{"zero concurrency", func(c *Config) { c.Hydration.Concurrency = 0 }, "hydration.concurrency"},
		{"sweep without interval", func(c *Config) { c.Hydration.SweepEnabled = true }, "hydration.sweep_interval"},
		{"negative retries", func(c *Config) { c.SailingAPI.MaxRetries = -1 }, "sailing_api.max_retries"},
		{"backoff inverted", func(c *Config) { c.SailingAPI.MaxBackoffMs = 10 }, "sailing_api.max_backoff_ms"},
		{"memo size", func(c *Config) { c.Filter.HiddenMemoSize = 0 }, "filter.hidden_memo_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var invalid ErrInvalidConfig
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}
