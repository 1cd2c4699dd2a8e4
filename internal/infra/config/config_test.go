package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Zero(t, cfg.Dashboard.StaleAfter)
	require.Equal(t, "preserve", cfg.Dashboard.PartialFailure)
	require.True(t, cfg.Backend.UnifiedFeed)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  baseUrl: https://points.example.com
  unifiedFeed: false
dashboard:
  staleAfter: 30s
  partialFailure: reset
  timezone: UTC
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DASHBOARD_FETCH_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://points.example.com", cfg.Backend.BaseURL)
	require.False(t, cfg.Backend.UnifiedFeed)
	require.Equal(t, 30*time.Second, cfg.Dashboard.StaleAfter)
	require.Equal(t, 3*time.Second, cfg.Dashboard.FetchTimeout)
	require.Equal(t, "reset", cfg.Dashboard.PartialFailure)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSOrigins)
	require.Equal(t, 10, cfg.Dashboard.RecentLimit)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"bad policy":        func(c *Config) { c.Dashboard.PartialFailure = "sometimes" },
		"negative stale":    func(c *Config) { c.Dashboard.StaleAfter = -time.Second },
		"missing backend":   func(c *Config) { c.Backend.BaseURL = " " },
		"unknown timezone":  func(c *Config) { c.Dashboard.Timezone = "Mars/Olympus" },
		"issuer no client":  func(c *Config) { c.Identity.Issuer = "https://issuer.example.com" },
		"valkey no address": func(c *Config) { c.Invalidation.Valkey.Enabled = true },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(cfg)
		require.Error(t, cfg.Validate(), name)
	}
}
