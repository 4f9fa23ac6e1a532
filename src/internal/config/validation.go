// FILE: peerxlat/src/internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

// ValidateConfig is the centralized validator for the entire configuration
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateRules(&cfg.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	if cfg.Reload.WatchIntervalMs < 0 {
		return fmt.Errorf("reload: watch_interval_ms cannot be negative")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	allPorts := make(map[int64]string)

	if cfg.Admin.Enabled {
		if err := validateListener("admin", cfg.Admin.Host, cfg.Admin.Port, allPorts); err != nil {
			return err
		}
		if !strings.HasPrefix(cfg.Admin.StatusPath, "/") {
			return fmt.Errorf("admin: status_path must start with '/': %s", cfg.Admin.StatusPath)
		}
		if err := validateAuth(cfg.Admin.Auth); err != nil {
			return fmt.Errorf("admin auth: %w", err)
		}
		if err := validateRateLimit("admin", cfg.Admin.RateLimit); err != nil {
			return err
		}
	}

	if cfg.Lookup.Enabled {
		if err := validateListener("lookup", cfg.Lookup.Host, cfg.Lookup.Port, allPorts); err != nil {
			return err
		}
		if cfg.Lookup.MaxConnectionsPerIP < 0 {
			return fmt.Errorf("lookup: max_connections_per_ip cannot be negative")
		}
		if err := validateRateLimit("lookup", cfg.Lookup.RateLimit); err != nil {
			return err
		}
	}

	return nil
}

func validateRules(r *RulesConfig) error {
	if err := lconfig.NonEmpty(r.File); err != nil {
		return fmt.Errorf("missing file")
	}
	if err := lconfig.NonEmpty(strings.TrimSpace(r.StopPhrase)); err != nil {
		return fmt.Errorf("stop_phrase cannot be blank")
	}
	if r.StopPhrase != strings.TrimSpace(r.StopPhrase) {
		return fmt.Errorf("stop_phrase cannot start or end with whitespace")
	}
	if r.MaxRules < 0 {
		return fmt.Errorf("max_rules cannot be negative")
	}
	return nil
}

func validateListener(section, host string, port int64, allPorts map[int64]string) error {
	if err := lconfig.Port(port); err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}

	if existing, exists := allPorts[port]; exists {
		return fmt.Errorf("%s: port %d already used by %s", section, port, existing)
	}
	allPorts[port] = section

	if host != "" {
		if err := lconfig.IPAddress(host); err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
	}

	return nil
}
