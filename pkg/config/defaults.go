package config

import (
	"os"
	"path/filepath"
)

// defaultDBPath returns the default history database path.
//
// Returns: ~/.config/usage-monitor/history.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./history.db"
	}

	return filepath.Join(homeDir, ".config", "usage-monitor", "history.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/usage-monitor/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "usage-monitor", "config.yaml")
}
