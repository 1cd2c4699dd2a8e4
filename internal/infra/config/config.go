package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Backend      BackendConfig      `yaml:"backend"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
	Identity     IdentityConfig     `yaml:"identity"`
	Categories   CategoriesConfig   `yaml:"categories"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent backend calls.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// BackendConfig points at the points backend.
type BackendConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	Timeout     time.Duration `yaml:"timeout"`
	UnifiedFeed bool          `yaml:"unifiedFeed"`
	RatePerSec  float64       `yaml:"ratePerSec"`
	Burst       int           `yaml:"burst"`
	Retry       RetryConfig   `yaml:"retry"`
}

// DashboardConfig tunes the aggregation cache.
type DashboardConfig struct {
	StaleAfter          time.Duration `yaml:"staleAfter"`
	FetchTimeout        time.Duration `yaml:"fetchTimeout"`
	FocusDebounce       time.Duration `yaml:"focusDebounce"`
	SessionIdleTTL      time.Duration `yaml:"sessionIdleTtl"`
	SweepInterval       time.Duration `yaml:"sweepInterval"`
	RecentLimit         int           `yaml:"recentLimit"`
	TimelineGranularity string        `yaml:"timelineGranularity"`
	TimelineDays        int           `yaml:"timelineDays"`
	StatsPeriod         string        `yaml:"statsPeriod"`
	PartialFailure      string        `yaml:"partialFailure"`
	Timezone            string        `yaml:"timezone"`
}

// IdentityConfig enables verified tokens when an issuer is set.
type IdentityConfig struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"clientId"`
}

// CategoriesConfig optionally loads keyword rules from Postgres.
type CategoriesConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// InvalidationConfig enables cross-replica invalidation.
type InvalidationConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the pub/sub channel.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = parsed
		}
	}
	if v := os.Getenv("BACKEND_UNIFIED_FEED"); v != "" {
		cfg.Backend.UnifiedFeed = parseBool(v)
	}
	if v := os.Getenv("BACKEND_RATE_PER_SEC"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.RatePerSec = parsed
		}
	}
	if v := os.Getenv("BACKEND_RETRY_ENABLED"); v != "" {
		cfg.Backend.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("BACKEND_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Backend.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_STALE_AFTER"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.StaleAfter = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_FETCH_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Dashboard.FetchTimeout = parsed
		}
	}
	if v := os.Getenv("DASHBOARD_PARTIAL_FAILURE"); v != "" {
		cfg.Dashboard.PartialFailure = v
	}
	if v := os.Getenv("DASHBOARD_TIMEZONE"); v != "" {
		cfg.Dashboard.Timezone = v
	}
	if v := os.Getenv("IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("IDENTITY_CLIENT_ID"); v != "" {
		cfg.Identity.ClientID = v
	}
	if v := os.Getenv("CATEGORIES_POSTGRES_DSN"); v != "" {
		cfg.Categories.Postgres.DSN = v
	}
	if v := os.Getenv("INVALIDATION_VALKEY_ENABLED"); v != "" {
		cfg.Invalidation.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("INVALIDATION_VALKEY_ADDR"); v != "" {
		cfg.Invalidation.Valkey.Addr = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:     ":8080",
			ReadTimeout: 5 * time.Second,
			// SSE streams stay open; handlers bound their own work.
			WriteTimeout: 0,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8000",
			Timeout:     10 * time.Second,
			UnifiedFeed: true,
			RatePerSec:  20,
			Burst:       10,
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
			},
		},
		Dashboard: DashboardConfig{
			StaleAfter:          0,
			FetchTimeout:        15 * time.Second,
			FocusDebounce:       100 * time.Millisecond,
			SessionIdleTTL:      30 * time.Minute,
			SweepInterval:       time.Minute,
			RecentLimit:         10,
			TimelineGranularity: "daily",
			TimelineDays:        30,
			StatsPeriod:         "month",
			PartialFailure:      "preserve",
			Timezone:            "Local",
		},
		Invalidation: InvalidationConfig{
			Valkey: ValkeyConfig{
				Channel: "points-dashboard:invalidate",
			},
		},
		Categories: CategoriesConfig{
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
	}
}

// Location resolves the dashboard timezone used for bare dates and day buckets.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Dashboard.Timezone)
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.baseUrl cannot be empty")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if c.Backend.RatePerSec < 0 {
		return errors.New("backend.ratePerSec cannot be negative")
	}
	if c.Backend.Retry.Enabled {
		if c.Backend.Retry.MaxAttempts <= 0 {
			return errors.New("backend.retry.maxAttempts must be positive")
		}
		if c.Backend.Retry.BaseBackoff <= 0 {
			return errors.New("backend.retry.baseBackoff must be positive")
		}
	}
	if c.Dashboard.StaleAfter < 0 {
		return errors.New("dashboard.staleAfter cannot be negative")
	}
	if c.Dashboard.FetchTimeout <= 0 {
		return errors.New("dashboard.fetchTimeout must be positive")
	}
	if c.Dashboard.RecentLimit <= 0 {
		return errors.New("dashboard.recentLimit must be positive")
	}
	if c.Dashboard.TimelineDays <= 0 {
		return errors.New("dashboard.timelineDays must be positive")
	}
	switch c.Dashboard.PartialFailure {
	case "preserve", "reset":
	default:
		return fmt.Errorf("dashboard.partialFailure must be preserve or reset, got %q", c.Dashboard.PartialFailure)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	if c.Identity.Issuer != "" && strings.TrimSpace(c.Identity.ClientID) == "" {
		return errors.New("identity.clientId cannot be empty when an issuer is set")
	}
	if c.Invalidation.Valkey.Enabled && strings.TrimSpace(c.Invalidation.Valkey.Addr) == "" {
		return errors.New("invalidation.valkey.addr cannot be empty when valkey is enabled")
	}
	return nil
}
