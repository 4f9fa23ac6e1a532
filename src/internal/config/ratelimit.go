// FILE: peerxlat/src/internal/config/ratelimit.go
package config

import "fmt"

// RateLimitConfig defines per-client token bucket limits.
type RateLimitConfig struct {
	// Enable rate limiting
	Enabled bool `toml:"enabled"`

	// Requests per second per client
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst size (token bucket)
	BurstSize int `toml:"burst_size"`

	// Response when rate limited (HTTP only)
	ResponseCode    int    `toml:"response_code"`    // Default: 429
	ResponseMessage string `toml:"response_message"` // Default: "Rate limit exceeded"
}

func validateRateLimit(section string, cfg *RateLimitConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("%s: requests_per_second must be positive", section)
	}

	if cfg.BurstSize < 1 {
		return fmt.Errorf("%s: burst_size must be at least 1", section)
	}

	if cfg.ResponseCode != 0 && (cfg.ResponseCode < 400 || cfg.ResponseCode > 599) {
		return fmt.Errorf("%s: response_code %d is not an HTTP error status", section, cfg.ResponseCode)
	}

	return nil
}
