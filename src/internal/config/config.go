// FILE: peerxlat/src/internal/config/config.go
package config

import "time"

// Config is the complete peerxlat configuration.
type Config struct {
	// Set from the -config flag or environment, not from the file itself
	ConfigFile string `toml:"-"`
	Quiet      bool   `toml:"quiet"`

	Rules   RulesConfig  `toml:"rules"`
	Reload  ReloadConfig `toml:"reload"`
	Admin   AdminConfig  `toml:"admin"`
	Lookup  LookupConfig `toml:"lookup"`
	Logging *LogConfig   `toml:"logging"`
}

// RulesConfig locates and parses the translation rules file.
type RulesConfig struct {
	// Path of the rules file
	File string `toml:"file"`

	// Phrase that makes a "for" clause a stopper rule
	StopPhrase string `toml:"stop_phrase"`

	// Upper bound on rules per file (0 = unlimited)
	MaxRules int `toml:"max_rules"`
}

// ReloadConfig selects the reload event sources.
type ReloadConfig struct {
	// Reload on SIGHUP / SIGUSR1
	Signals bool `toml:"signals"`

	// Poll the rules file for changes (0 = disabled)
	WatchIntervalMs int64 `toml:"watch_interval_ms"`
}

// WatchInterval converts the polling interval to a duration.
func (r ReloadConfig) WatchInterval() time.Duration {
	if r.WatchIntervalMs <= 0 {
		return 0
	}
	return time.Duration(r.WatchIntervalMs) * time.Millisecond
}
