package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`

	// Plaintext rendering
	Output OutputConfig `json:"output" mapstructure:"output"`

	// Meter import
	Import ImportConfig `json:"import" mapstructure:"import"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	File   string `json:"file" mapstructure:"file"`     // Log file path (empty = stderr)
	Color  bool   `json:"color" mapstructure:"color"`   // Enable colored output
}

// OutputConfig controls how decrypted bytes are shown.
type OutputConfig struct {
	Encoding string `json:"encoding" mapstructure:"encoding"` // WHATWG/IANA encoding name
}

// ImportConfig for writing wmbusmeters meter files.
type ImportConfig struct {
	ConfigDir  string `json:"config_dir" mapstructure:"config_dir"` // Root of etc/wmbusmeters.d
	DryRun     bool   `json:"dry_run" mapstructure:"dry_run"`
	OnConflict string `json:"on_conflict" mapstructure:"on_conflict"` // overwrite, skip, error
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			File:   "",
			Color:  true,
		},
		Output: OutputConfig{
			Encoding: "utf-8",
		},
		Import: ImportConfig{
			ConfigDir:  ".",
			DryRun:     false,
			OnConflict: "overwrite",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Output.Encoding == "" {
		return errors.New("output.encoding is required")
	}

	if c.Import.ConfigDir == "" {
		return errors.New("import.config_dir is required")
	}

	validConflicts := map[string]bool{"overwrite": true, "skip": true, "error": true}
	if !validConflicts[c.Import.OnConflict] {
		return fmt.Errorf("invalid import.on_conflict: %s", c.Import.OnConflict)
	}

	return nil
}

// EnsureDirectories creates directories the configuration writes into.
func (c *Config) EnsureDirectories() error {
	if c.Log.File == "" {
		return nil
	}

	dir := filepath.Dir(c.Log.File)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	return nil
}
