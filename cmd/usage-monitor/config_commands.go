package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/usage-monitor/pkg/config"
)

// configCommand handles configuration management subcommands.
type configCommand struct {
	configPath string
}

// Execute runs the config command with given arguments.
func (c *configCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "show":
		return c.runShow(subargs)
	case "path":
		return c.runPath()
	case "set":
		return c.runSet(subargs)
	case "init":
		return c.runInit(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown config subcommand: %s", subcommand)
	}
}

// runShow displays the effective configuration.
func (c *configCommand) runShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	format := fs.String("format", "yaml", "output format (yaml, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		return c.showJSON(cfg)
	default:
		return c.showYAML(cfg)
	}
}

// showYAML displays configuration in YAML format.
func (c *configCommand) showYAML(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Current Configuration")
	fmt.Println("# Source: ", c.getConfigSource())
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

// showJSON displays configuration in JSON format.
func (c *configCommand) showJSON(cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

// searchPaths returns the config file locations in precedence order.
func (c *configCommand) searchPaths() []string {
	if c.configPath != "" {
		return []string{c.configPath}
	}

	return []string{
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "usage-monitor", "config.yaml"),
	}
}

// runPath shows the configuration file path.
func (c *configCommand) runPath() error {
	fmt.Println("Configuration file search paths (in order of precedence):")
	fmt.Println()

	for i, p := range c.searchPaths() {
		exists := "not found"
		if _, err := os.Stat(p); err == nil {
			exists = "found"
		}
		fmt.Printf("  %d. %s [%s]\n", i+1, p, exists)
	}

	fmt.Println()
	fmt.Println("Active configuration:", c.getConfigSource())
	return nil
}

// runSet updates one configuration key and writes the file back.
func (c *configCommand) runSet(args []string) error {
	fs := flag.NewFlagSet("config set", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: usage-monitor config set <key> <value>")
	}

	key := fs.Arg(0)
	value := fs.Arg(1)

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	if err := applySetting(cfg, key, value); err != nil {
		return err
	}

	outputPath := c.configPath
	if outputPath == "" {
		outputPath = c.getConfigSource()
		if _, statErr := os.Stat(outputPath); statErr != nil {
			outputPath = filepath.Join(os.Getenv("HOME"), ".config", "usage-monitor", "config.yaml")
		}
	}

	if err := config.Save(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, outputPath)
	return nil
}

// applySetting mutates a single configuration field.
func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "session.plan":
		cfg.Session.Plan = strings.ToLower(value)
	case "session.custom_limit":
		limit, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid custom limit %q: %w", value, err)
		}
		cfg.Session.CustomLimit = limit
	case "monitoring.update_interval":
		interval, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid update interval %q: %w", value, err)
		}
		cfg.Monitoring.UpdateInterval = interval
	case "monitoring.warning_threshold":
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid warning threshold %q: %w", value, err)
		}
		cfg.Monitoring.WarningThreshold = threshold
	case "display.default_mode":
		cfg.Display.DefaultMode = strings.ToLower(value)
	case "display.color_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid color setting %q: %w", value, err)
		}
		cfg.Display.ColorEnabled = enabled
	case "storage.db_path":
		cfg.Storage.DBPath = value
	case "logging.level":
		cfg.Logging.Level = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return nil
}

// runInit writes a default configuration file.
func (c *configCommand) runInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "skip confirmation prompt")
	output := fs.String("output", "", "output path for config file (default: ~/.config/usage-monitor/config.yaml)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Determine output path.
	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(os.Getenv("HOME"), ".config", "usage-monitor", "config.yaml")
	}

	// Check if file exists.
	if _, err := os.Stat(outputPath); err == nil && !*force {
		fmt.Printf("Configuration file already exists at: %s\n", outputPath)
		fmt.Print("Overwrite? [y/N]: ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			// If Scanln fails, treat as "no".
			fmt.Println("\nInit cancelled.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))

		if response != "y" && response != "yes" {
			fmt.Println("Init cancelled.")
			return nil
		}
	}

	if err := config.Save(config.Default(), outputPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Wrote default configuration to: %s\n", outputPath)
	return nil
}

// getConfigSource returns the path of the active configuration file.
func (c *configCommand) getConfigSource() string {
	for _, p := range c.searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return "defaults (no config file found)"
}

// showHelp displays help for config command.
func (c *configCommand) showHelp() error {
	help := `Config - Configuration management

Usage:
  usage-monitor config <subcommand> [flags]

Subcommands:
  show      Display effective configuration
  path      Show configuration file paths
  set       Update one configuration key
  init      Write a default configuration file

Show Flags:
  -format   Output format (yaml, json) (default: yaml)

Set Keys:
  session.plan                  Plan name (pro, max5, max20, custom)
  session.custom_limit          Token limit for the custom plan
  monitoring.update_interval    Rescan interval (e.g. 3s)
  monitoring.warning_threshold  Usage fraction that triggers warnings
  display.default_mode          Output mode (simple, table, json)
  display.color_enabled         Colored output (true, false)
  storage.db_path               History database path
  logging.level                 Log level (debug, info, warn, error)

Init Flags:
  -force    Skip confirmation prompt
  -output   Output path for config file

Examples:
  # Show effective configuration
  usage-monitor config show

  # Show configuration in JSON format
  usage-monitor config show -format json

  # Show configuration file paths
  usage-monitor config path

  # Pin the plan to max20
  usage-monitor config set session.plan max20

  # Raise the warning threshold
  usage-monitor config set monitoring.warning_threshold 0.9

  # Write the default configuration file
  usage-monitor config init

  # Overwrite without confirmation
  usage-monitor config init -force
`
	fmt.Print(help)
	return nil
}
