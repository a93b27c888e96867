package ratelimit

import "fmt"

// Config represents client-side rate limiter configuration
type Config struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// Validate fills defaults and rejects negative values. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond < 0 || c.BurstSize < 0 {
		return fmt.Errorf("rate limit values must not be negative (rps=%v, burst=%d)", c.RequestsPerSecond, c.BurstSize)
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 10
	}
	if c.BurstSize == 0 {
		c.BurstSize = int(c.RequestsPerSecond)
		if c.BurstSize < 1 {
			c.BurstSize = 1
		}
	}
	return nil
}

// DefaultConfig returns a disabled limiter config with 10 rps / burst 20 when enabled
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}
