// Package config loads the pipeline builder configuration from environment
// variables (optionally seeded from a .env file by the caller) and validates it.
//
// Environment Variables:
//
// Backend:
//   - API_BASE_URL: base URL of the pipeline backend (default: http://localhost:8000)
//   - HTTP_TIMEOUT: per-request timeout (default: 30s)
//   - HTTP_MAX_RETRIES: attempts per request, including the first (default: 3)
//   - HTTP_RETRY_DELAY: initial backoff delay (default: 500ms)
//   - CIRCUIT_BREAKER_ENABLED: guard backend calls with a circuit breaker (default: true)
//   - RATE_LIMIT_ENABLED: throttle outgoing requests (default: false)
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST: throttle settings (default: 10 / 20)
//
// Caching:
//   - CACHE_TYPE: local, redis or two_tier (default: local)
//   - CACHE_TTL: function registry cache lifetime (default: 5m)
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB: Redis settings for redis caches
//
// Lifecycle:
//   - SAVE_REFRESH_DELAY: delay before the saved-graph list is refreshed after a save (default: 10s)
//   - POLL_INTERVAL: analysis status poll interval (default: 5s)
//   - ARTIFACT_PREVIEW_ROWS: rows fetched per artifact preview (default: 20)
//   - ARTIFACT_MAX_CELL_CHARS: preview cell truncation (default: 200)
//
// Drafts:
//   - DATABASE_TYPE: sqlite or postgres (default: sqlite)
//   - DATABASE_PATH: sqlite file (default: ./pipeline_drafts.db)
//   - DATABASE_URL: postgres connection string (required for postgres)
//
// Mock backend:
//   - MOCK_PORT: port for serve-mock (default: 8000)
//   - MOCK_AUTO_COMPLETE: delay before mock runs complete, 0 disables (default: 3s)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pipeline-builder/internal/common/validation"
)

// Config holds all configuration values. Load never fails; malformed values
// fall back to their defaults and are reported by Validate.
type Config struct {
	APIBaseURL            string `json:"api_base_url" validate:"base_url"`
	HTTPTimeout           time.Duration
	HTTPMaxRetries        int
	HTTPRetryDelay        time.Duration
	CircuitBreakerEnabled bool

	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	CacheType     string `json:"cache_type" validate:"oneof=local redis two_tier"`
	CacheTTL      time.Duration
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	SaveRefreshDelay     time.Duration
	PollInterval         time.Duration
	ArtifactPreviewRows  int
	ArtifactMaxCellChars int

	DatabaseType string `json:"database_type" validate:"oneof=sqlite postgres"`
	DatabasePath string
	DatabaseURL  string

	MockPort         string
	MockAutoComplete time.Duration

	LogLevel string

	invalid []string
}

// Load creates a Config from environment variables. Call Validate before use.
func Load() *Config {
	c := &Config{}

	c.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/")
	c.HTTPTimeout = c.getDurationEnv("HTTP_TIMEOUT", 30*time.Second)
	c.HTTPMaxRetries = c.getIntEnv("HTTP_MAX_RETRIES", 3)
	c.HTTPRetryDelay = c.getDurationEnv("HTTP_RETRY_DELAY", 500*time.Millisecond)
	c.CircuitBreakerEnabled = getBoolEnv("CIRCUIT_BREAKER_ENABLED", true)

	c.RateLimitEnabled = getBoolEnv("RATE_LIMIT_ENABLED", false)
	c.RateLimitRPS = c.getFloatEnv("RATE_LIMIT_RPS", 10)
	c.RateLimitBurst = c.getIntEnv("RATE_LIMIT_BURST", 20)

	c.CacheType = getEnv("CACHE_TYPE", "local")
	c.CacheTTL = c.getDurationEnv("CACHE_TTL", 5*time.Minute)
	c.RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)

	c.SaveRefreshDelay = c.getDurationEnv("SAVE_REFRESH_DELAY", 10*time.Second)
	c.PollInterval = c.getDurationEnv("POLL_INTERVAL", 5*time.Second)
	c.ArtifactPreviewRows = c.getIntEnv("ARTIFACT_PREVIEW_ROWS", 20)
	c.ArtifactMaxCellChars = c.getIntEnv("ARTIFACT_MAX_CELL_CHARS", 200)

	c.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	c.DatabasePath = getEnv("DATABASE_PATH", "./pipeline_drafts.db")
	c.DatabaseURL = getEnv("DATABASE_URL", "")

	c.MockPort = getEnv("MOCK_PORT", "8000")
	c.MockAutoComplete = c.getDurationEnv("MOCK_AUTO_COMPLETE", 3*time.Second)

	c.LogLevel = getEnv("LOG_LEVEL", "info")

	return c
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if len(c.invalid) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(c.invalid, ", "))
	}

	if err := validation.Default().Struct(c); err != nil {
		return err
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.HTTPMaxRetries < 1 {
		return fmt.Errorf("HTTP_MAX_RETRIES must be at least 1")
	}
	if c.SaveRefreshDelay < 0 {
		return fmt.Errorf("SAVE_REFRESH_DELAY must not be negative")
	}
	// cron schedules have one second resolution
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s")
	}
	if c.ArtifactPreviewRows < 1 {
		return fmt.Errorf("ARTIFACT_PREVIEW_ROWS must be positive")
	}
	if c.ArtifactMaxCellChars < 1 {
		return fmt.Errorf("ARTIFACT_MAX_CELL_CHARS must be positive")
	}

	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	if c.CacheType != "local" {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for CACHE_TYPE=%s", c.CacheType)
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when using sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when using postgres")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool spellings and falls back to defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.invalid = append(c.invalid, fmt.Sprintf("%s=%q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.invalid = append(c.invalid, fmt.Sprintf("%s=%q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.invalid = append(c.invalid, fmt.Sprintf("%s=%q", key, value))
		return defaultValue
	}
	return parsed
}
