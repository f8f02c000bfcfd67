// Package main provides the usage-monitor CLI application.
//
// Usage Monitor is a passive observation tool for Claude Code token
// usage. It reads the JSONL usage logs the CLI already writes, derives
// the current 5-hour session and its burn-rate metrics, and keeps a
// local history of past sessions.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("usage-monitor %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	switch command {
	case "status":
		return runStatusCommand(*configPath, args[1:])
	case "watch":
		return runWatchCommand(*configPath, args[1:])
	case "models":
		return runModelsCommand(*configPath, args[1:])
	case "sessions":
		return runSessionsCommand(*configPath, args[1:])
	case "config":
		return runConfigCommand(*configPath, args[1:])
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runStatusCommand runs the status command.
func runStatusCommand(configPath string, args []string) error {
	// Define status-specific flags.
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	format := fs.String("format", "", "output format (simple, table, json)")
	compact := fs.Bool("compact", false, "compact output")
	mock := fs.Bool("mock", false, "fabricate usage entries instead of reading log files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &statusCommand{
		format:     *format,
		compact:    *compact,
		mock:       *mock,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	// Define watch-specific flags.
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	refresh := fs.Duration("refresh", 0, "display refresh interval (default: config update_interval)")
	format := fs.String("format", "", "output format (simple, table)")
	mock := fs.Bool("mock", false, "fabricate usage entries instead of reading log files")
	history := fs.Bool("history", false, "keep history of updates (append mode)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := &watchCommand{
		refresh:     *refresh,
		format:      *format,
		mock:        *mock,
		clearScreen: !*history, // clear screen unless history mode
		configPath:  configPath,
	}

	return cmd.Execute()
}

// runModelsCommand runs the models command.
func runModelsCommand(configPath string, args []string) error {
	// Define models-specific flags.
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	groupBy := fs.String("group-by", "model", "group by dimensions (comma-separated: model,date,hour)")
	topN := fs.Int("top", 0, "show top N models by token usage (0 = all)")
	window := fs.Bool("window", false, "restrict to the current session window")
	format := fs.String("format", "", "output format (simple, table, json)")
	compact := fs.Bool("compact", false, "compact output")
	mock := fs.Bool("mock", false, "fabricate usage entries instead of reading log files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Parse group-by dimensions.
	var dimensions []string
	if *groupBy != "" {
		dimensions = strings.Split(*groupBy, ",")
		for i, dim := range dimensions {
			dimensions[i] = strings.TrimSpace(dim)
		}
	}

	cmd := &modelsCommand{
		groupBy:    dimensions,
		topN:       *topN,
		window:     *window,
		format:     *format,
		compact:    *compact,
		mock:       *mock,
		configPath: configPath,
	}

	return cmd.Execute()
}

// runSessionsCommand runs the sessions command.
func runSessionsCommand(configPath string, args []string) error {
	cmd := &sessionsCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// runConfigCommand runs the config command.
func runConfigCommand(configPath string, args []string) error {
	cmd := &configCommand{
		configPath: configPath,
	}
	return cmd.Execute(args)
}

// showUsage displays usage information.
func showUsage() error {
	usage := `Usage Monitor - passive Claude Code token usage observation

Usage:
  usage-monitor [flags] <command> [command flags]

Commands:
  status      Show the current session and its metrics once
  watch       Live monitoring of the current session
  models      Token usage statistics grouped by model
  sessions    Session history (list, export, import, prune)
  config      Configuration management (show, path, init)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Status Command Flags:
  -format     Output format (simple, table, json)
  -compact    Compact output
  -mock       Fabricate usage entries instead of reading log files

Watch Command Flags:
  -refresh    Display refresh interval (default: config update_interval)
  -format     Output format (simple, table)
  -history    Keep history of updates (append mode, default: false)
  -mock       Fabricate usage entries instead of reading log files

Models Command Flags:
  -group-by   Group by dimensions (comma-separated: model,date,hour)
  -top        Show top N models by token usage (0 = all)
  -window     Restrict to the current session window
  -format     Output format (simple, table, json)
  -compact    Compact output

Examples:
  # Show current session status
  usage-monitor status

  # Status as JSON
  usage-monitor status -format json

  # Live monitoring
  usage-monitor watch

  # Live monitoring with custom refresh
  usage-monitor watch -refresh 1s

  # Usage by model
  usage-monitor models

  # Top 3 models inside the current window
  usage-monitor models -top 3 -window

  # Session history
  usage-monitor sessions
  usage-monitor sessions export -output history.json
  usage-monitor sessions import history.json
  usage-monitor sessions prune

  # Configuration
  usage-monitor config show
  usage-monitor config init

Environment:
  CLAUDE_DATA_PATHS           Colon-separated extra log directories
  USAGE_MONITOR_PLAN          Plan override (pro, max5, max20, custom)
  USAGE_MONITOR_CUSTOM_LIMIT  Token limit for the custom plan
  USAGE_MONITOR_DB            History database path
  USAGE_MONITOR_LOG_LEVEL     Log level (debug, info, warn, error)

Version: %s
`

	fmt.Printf(usage, version)
	return nil
}
