// Package config provides configuration management for usage-monitor.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Data dirs: %v\n", cfg.DataDirs)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - UpdateInterval must be > 0
// - DebounceInterval must be > 0
// - HistoryRetention must be > 0
// - WarningThreshold must be in (0, 1]
// - Plan must be a known plan name or empty (auto-detect)
// - CustomLimit must be > 0 when Plan is "custom".
type Config struct {
	// Extra usage log directories beyond the built-in defaults.
	// Each must resolve inside an allowed location.
	DataDirs []string `yaml:"data_dirs"`

	// Session settings
	Session SessionConfig `yaml:"session"`

	// Monitoring settings
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig contains session derivation settings.
type SessionConfig struct {
	// Plan name (pro, max5, max20, custom); empty means auto-detect
	// from observed volume
	Plan string `yaml:"plan"`

	// Token limit when Plan is "custom"
	CustomLimit int `yaml:"custom_limit"`
}

// MonitoringConfig contains monitoring-related settings.
type MonitoringConfig struct {
	// Polling/refresh interval for rescans
	UpdateInterval time.Duration `yaml:"update_interval"`

	// Coalescing window for file events
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// How long closed sessions are kept in history
	HistoryRetention time.Duration `yaml:"history_retention"`

	// Usage fraction at which warnings are shown
	WarningThreshold float64 `yaml:"warning_threshold"`

	// Fabricate entries instead of reading log files
	Mock bool `yaml:"mock"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default output mode (simple, table, json)
	DefaultMode string `yaml:"default_mode"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to the BoltDB history file
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Returns an error if any invariant is violated:
//   - Invalid time durations (must be > 0)
//   - Warning threshold outside (0, 1]
//   - Unknown plan name, or custom plan without a limit
//   - Invalid display mode
//   - Invalid log level or format
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Monitoring.UpdateInterval <= 0 {
		return ErrInvalidUpdateInterval
	}
	if c.Monitoring.DebounceInterval <= 0 {
		return ErrInvalidDebounceInterval
	}
	if c.Monitoring.HistoryRetention <= 0 {
		return ErrInvalidHistoryRetention
	}
	if c.Monitoring.WarningThreshold <= 0 || c.Monitoring.WarningThreshold > 1 {
		return ErrInvalidWarningThreshold
	}

	validPlans := map[string]bool{
		"":       true, // auto-detect
		"pro":    true,
		"max5":   true,
		"max20":  true,
		"custom": true,
	}
	if !validPlans[c.Session.Plan] {
		return ErrInvalidPlan
	}
	if c.Session.Plan == "custom" && c.Session.CustomLimit <= 0 {
		return ErrInvalidCustomLimit
	}

	validModes := map[string]bool{
		"simple": true,
		"table":  true,
		"json":   true,
	}
	if !validModes[c.Display.DefaultMode] {
		return ErrInvalidDisplayMode
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Plan: "", // auto-detect
		},
		Monitoring: MonitoringConfig{
			UpdateInterval:   3 * time.Second,
			DebounceInterval: 100 * time.Millisecond,
			HistoryRetention: 7 * 24 * time.Hour,
			WarningThreshold: 0.85,
		},
		Display: DisplayConfig{
			DefaultMode:  "simple",
			ColorEnabled: true,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
