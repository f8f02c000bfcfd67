package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify defaults are set
	if cfg.Monitoring.UpdateInterval <= 0 {
		t.Error("UpdateInterval not set")
	}

	if cfg.Monitoring.WarningThreshold != 0.85 {
		t.Errorf("WarningThreshold = %v, want 0.85", cfg.Monitoring.WarningThreshold)
	}

	if cfg.Session.Plan != "" {
		t.Errorf("Plan = %q, want auto-detect (empty)", cfg.Session.Plan)
	}

	if cfg.Display.DefaultMode == "" {
		t.Error("DefaultMode not set")
	}

	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}

	if cfg.Storage.DBPath == "" {
		t.Error("DBPath not set")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid default config",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "zero update interval",
			mutate:  func(c *Config) { c.Monitoring.UpdateInterval = 0 },
			wantErr: ErrInvalidUpdateInterval,
		},
		{
			name:    "zero debounce interval",
			mutate:  func(c *Config) { c.Monitoring.DebounceInterval = 0 },
			wantErr: ErrInvalidDebounceInterval,
		},
		{
			name:    "zero history retention",
			mutate:  func(c *Config) { c.Monitoring.HistoryRetention = 0 },
			wantErr: ErrInvalidHistoryRetention,
		},
		{
			name:    "warning threshold above one",
			mutate:  func(c *Config) { c.Monitoring.WarningThreshold = 1.5 },
			wantErr: ErrInvalidWarningThreshold,
		},
		{
			name:    "unknown plan",
			mutate:  func(c *Config) { c.Session.Plan = "enterprise" },
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "custom plan without limit",
			mutate:  func(c *Config) { c.Session.Plan = "custom" },
			wantErr: ErrInvalidCustomLimit,
		},
		{
			name: "custom plan with limit",
			mutate: func(c *Config) {
				c.Session.Plan = "custom"
				c.Session.CustomLimit = 75000
			},
			wantErr: nil,
		},
		{
			name:    "invalid display mode",
			mutate:  func(c *Config) { c.Display.DefaultMode = "live" },
			wantErr: ErrInvalidDisplayMode,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid config file",
			content: `
data_dirs:
  - /opt/claude/projects
session:
  plan: max20
monitoring:
  update_interval: 2s
  debounce_interval: 200ms
  history_retention: 48h
  warning_threshold: 0.9
display:
  default_mode: table
  color_enabled: false
storage:
  db_path: /tmp/test.db
logging:
  level: debug
  output: stdout
  format: json
`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.DataDirs) != 1 {
					t.Errorf("got %d data dirs, want 1", len(cfg.DataDirs))
				}
				if cfg.Session.Plan != "max20" {
					t.Errorf("Plan = %s, want max20", cfg.Session.Plan)
				}
				if cfg.Monitoring.UpdateInterval != 2*time.Second {
					t.Errorf("UpdateInterval = %v, want 2s", cfg.Monitoring.UpdateInterval)
				}
				if cfg.Monitoring.WarningThreshold != 0.9 {
					t.Errorf("WarningThreshold = %v, want 0.9", cfg.Monitoring.WarningThreshold)
				}
				if cfg.Display.DefaultMode != "table" {
					t.Errorf("DefaultMode = %s, want table", cfg.Display.DefaultMode)
				}
				if cfg.Display.ColorEnabled {
					t.Error("ColorEnabled = true, want false")
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
				}
			},
		},
		{
			name: "partial config keeps defaults",
			content: `
logging:
  level: warn
`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "warn" {
					t.Errorf("LogLevel = %s, want warn", cfg.Logging.Level)
				}
				if cfg.Monitoring.UpdateInterval != Default().Monitoring.UpdateInterval {
					t.Errorf("UpdateInterval = %v, want default", cfg.Monitoring.UpdateInterval)
				}
				if cfg.Monitoring.WarningThreshold != 0.85 {
					t.Errorf("WarningThreshold = %v, want default 0.85", cfg.Monitoring.WarningThreshold)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: `invalid: yaml: content: [`,
			wantErr: true,
		},
		{
			name:    "non-existent file",
			content: "", // Will not create file
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filePath string

			if tt.name != "non-existent file" {
				filePath = filepath.Join(tmpDir, tt.name+".yaml")
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			} else {
				filePath = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			loader := NewLoader(filePath)
			cfg, err := loader.Load()

			if tt.wantErr {
				if err == nil {
					t.Error("Load() error = nil, wantErr = true")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() error = %v, wantErr = false", err)
				return
			}

			if cfg == nil {
				t.Error("Load() returned nil config")
				return
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Test default loading (no config file)
	cfg, err := Load()
	if err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil")
	}

	if cfg.Monitoring.UpdateInterval <= 0 {
		t.Error("Load() returned config without defaults applied")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"

	// Save config
	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Config file not created: %v", err)
	}

	// Load it back and verify
	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loadedCfg.Logging.Level != "debug" {
		t.Errorf("Loaded config LogLevel = %s, want debug", loadedCfg.Logging.Level)
	}
}

func TestSaveInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Monitoring.UpdateInterval = 0

	err := Save(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	if err == nil {
		t.Error("Save() with invalid config succeeded, want error")
	}
}

func TestEnvVarOverrides(t *testing.T) {
	t.Setenv("USAGE_MONITOR_PLAN", "MAX20")
	t.Setenv("USAGE_MONITOR_CUSTOM_LIMIT", "75000")
	t.Setenv("USAGE_MONITOR_DB", "/env/db.db")
	t.Setenv("USAGE_MONITOR_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.Plan != "max20" {
		t.Errorf("Plan = %s, want max20", cfg.Session.Plan)
	}

	if cfg.Session.CustomLimit != 75000 {
		t.Errorf("CustomLimit = %d, want 75000", cfg.Session.CustomLimit)
	}

	if cfg.Storage.DBPath != "/env/db.db" {
		t.Errorf("DBPath = %s, want /env/db.db", cfg.Storage.DBPath)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}
}

// Benchmark config loading.
func BenchmarkLoad(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Load()
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
