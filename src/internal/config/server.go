// FILE: peerxlat/src/internal/config/server.go
package config

// AdminConfig configures the HTTP admin API.
type AdminConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Port       int64  `toml:"port"`
	StatusPath string `toml:"status_path"`

	// Authentication for everything except the status endpoint
	Auth *AuthConfig `toml:"auth"`

	// Per-client request limiting
	RateLimit *RateLimitConfig `toml:"rate_limit"`
}

// LookupConfig configures the binary TCP lookup server.
type LookupConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`

	// Per-client frame limiting
	RateLimit *RateLimitConfig `toml:"rate_limit"`

	// Maximum concurrent connections per client IP (0 = unlimited)
	MaxConnectionsPerIP int64 `toml:"max_connections_per_ip"`
}
