// FILE: peerxlat/src/internal/config/saver.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lconfig "github.com/lixenwraith/config"
)

// ErrFileExists is returned by SaveToFile when path exists and overwrite is off.
var ErrFileExists = errors.New("config file already exists")

// SaveToFile validates c and writes it as TOML, creating parent directories.
func (c *Config) SaveToFile(path string, overwrite bool) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}
	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	lcfg, err := lconfig.NewBuilder().
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Defaults returns a fresh copy of the built-in configuration.
func Defaults() *Config {
	return defaults()
}
