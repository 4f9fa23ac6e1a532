// FILE: peerxlat/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"

	"peerxlat/src/internal/ruleset"
)

const envPrefix = "PEERXLAT_"

func defaults() *Config {
	return &Config{
		Rules: RulesConfig{
			File:       "/etc/peerxlat/peers.rules",
			StopPhrase: ruleset.DefaultStopPhrase,
			MaxRules:   100000,
		},
		Reload: ReloadConfig{
			Signals:         true,
			WatchIntervalMs: 0,
		},
		Admin: AdminConfig{
			Enabled:    false,
			Host:       "127.0.0.1",
			Port:       8480,
			StatusPath: "/status",
			Auth:       &AuthConfig{Type: "none", Realm: "peerxlat"},
			RateLimit: &RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				BurstSize:         20,
				ResponseCode:      429,
				ResponseMessage:   "Rate limit exceeded",
			},
		},
		Lookup: LookupConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8481,
			RateLimit: &RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 10000,
				BurstSize:         20000,
			},
			MaxConnectionsPerIP: 16,
		},
		Logging: DefaultLogConfig(),
	}
}

// Load reads configuration from defaults, the config file, PEERXLAT_
// environment variables and CLI arguments, in increasing priority.
// A missing config file is not an error.
func Load(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan("", finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}
	finalConfig.ConfigFile = configPath

	return finalConfig, ValidateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config file location from the environment,
// falling back to ~/.config/peerxlat.toml.
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "peerxlat.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "peerxlat.toml")
	}

	return "peerxlat.toml"
}
