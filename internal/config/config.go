// Package config provides configuration loading and management for the companion daemon.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables read via viper
const EnvPrefix = "MOBILERAKER"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Printers []PrinterConfig `yaml:"printers"`
}

// PrinterConfig defines a single printer to keep in sync
type PrinterConfig struct {
	// Name identifies this printer in logs and error messages.
	// Optional for a single-printer setup; the engine falls back to
	// its default label.
	Name string `yaml:"name,omitempty"`

	// Moonraker holds the connection settings for the printer's API server
	Moonraker MoonrakerConfig `yaml:"moonraker"`

	// Per-printer sync tuning
	Sync *SyncConfig `yaml:"sync,omitempty"`
}

// MoonrakerConfig defines how to reach a Moonraker instance
type MoonrakerConfig struct {
	// URL is the websocket endpoint, e.g. "ws://192.168.1.5:7125/websocket"
	URL string `yaml:"url"`
}

// SyncConfig defines per-printer synchronization settings
type SyncConfig struct {
	// Interval is how often the coordinator refreshes printer state (e.g., "30s", "1m")
	Interval string `yaml:"interval,omitempty"`

	// KlippyTimeout bounds how long a resync cycle waits for klippy to
	// report ready before giving up (e.g., "60s", "2m")
	KlippyTimeout string `yaml:"klippyTimeout,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetSyncInterval returns the parsed resync interval, or zero when not
// configured. Callers apply their own default.
func (p *PrinterConfig) GetSyncInterval() time.Duration {
	if p.Sync == nil || p.Sync.Interval == "" {
		return 0
	}
	// Parse errors are caught during validation
	interval, err := time.ParseDuration(p.Sync.Interval)
	if err != nil {
		return 0
	}
	return interval
}

// GetKlippyTimeout returns the parsed readiness gate bound, or zero when
// not configured. Callers apply their own default.
func (p *PrinterConfig) GetKlippyTimeout() time.Duration {
	if p.Sync == nil || p.Sync.KlippyTimeout == "" {
		return 0
	}
	// Parse errors are caught during validation
	timeout, err := time.ParseDuration(p.Sync.KlippyTimeout)
	if err != nil {
		return 0
	}
	return timeout
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Validate at least one printer is configured
	if len(c.Printers) == 0 {
		return fmt.Errorf("at least one printer must be configured")
	}

	// Validate each printer configuration
	printerNames := make(map[string]bool)
	for i, printer := range c.Printers {
		// Unnamed printers are only unambiguous in a single-printer setup
		if printer.Name == "" && len(c.Printers) > 1 {
			return fmt.Errorf("printer[%d]: name is required when multiple printers are configured", i)
		}

		// Check for duplicate printer names
		if printer.Name != "" {
			if printerNames[printer.Name] {
				return fmt.Errorf("printer[%d]: duplicate printer name '%s'", i, printer.Name)
			}
			printerNames[printer.Name] = true
		}

		if err := validatePrinterConfig(&printer, i); err != nil {
			return err
		}
	}

	return nil
}

// validatePrinterConfig validates a single printer configuration
func validatePrinterConfig(printer *PrinterConfig, index int) error {
	prefix := fmt.Sprintf("printer[%d]", index)
	if printer.Name != "" {
		prefix = fmt.Sprintf("printer[%d] (%s)", index, printer.Name)
	}

	if err := validateMoonrakerConfig(&printer.Moonraker, prefix); err != nil {
		return err
	}

	return validateSyncConfig(printer.Sync, prefix)
}

// validateMoonrakerConfig validates the Moonraker connection settings
func validateMoonrakerConfig(moonraker *MoonrakerConfig, prefix string) error {
	if moonraker.URL == "" {
		return fmt.Errorf("%s: moonraker.url is required", prefix)
	}

	parsed, err := url.Parse(moonraker.URL)
	if err != nil {
		return fmt.Errorf("%s: moonraker.url is not a valid URL: %w", prefix, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return fmt.Errorf("%s: moonraker.url must use the ws or wss scheme, got %q", prefix, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: moonraker.url must be an absolute URL with host", prefix)
	}

	return nil
}

// validateSyncConfig validates the sync settings
func validateSyncConfig(sync *SyncConfig, prefix string) error {
	if sync == nil {
		return nil
	}

	if sync.Interval != "" {
		if _, err := time.ParseDuration(sync.Interval); err != nil {
			return fmt.Errorf("%s: sync.interval must be a valid duration (e.g., '30s', '1m'): %w", prefix, err)
		}
	}

	if sync.KlippyTimeout != "" {
		if _, err := time.ParseDuration(sync.KlippyTimeout); err != nil {
			return fmt.Errorf("%s: sync.klippyTimeout must be a valid duration (e.g., '60s', '2m'): %w", prefix, err)
		}
	}

	return nil
}
