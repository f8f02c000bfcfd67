package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/config"
	"github.com/0xmhha/usage-monitor/pkg/logger"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// sessionsCommand handles session history subcommands.
type sessionsCommand struct {
	configPath string
}

// Execute runs the sessions command.
func (c *sessionsCommand) Execute(args []string) error {
	if len(args) == 0 {
		return c.runList(nil)
	}

	subcommand := args[0]
	subargs := args[1:]

	switch subcommand {
	case "list":
		return c.runList(subargs)
	case "export":
		return c.runExport(subargs)
	case "import":
		return c.runImport(subargs)
	case "prune":
		return c.runPrune(subargs)
	case "help":
		return c.showHelp()
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", subcommand)
	}
}

// openStore sets up common sessions command dependencies.
func (c *sessionsCommand) openStore() (*config.Config, logger.Logger, *session.Store, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	log := newLogger(cfg, "")

	store, err := session.OpenStore(cfg.Storage.DBPath, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}

	return cfg, log, store, nil
}

// runList lists recorded sessions.
func (c *sessionsCommand) runList(args []string) error {
	fs := flag.NewFlagSet("sessions list", flag.ExitOnError)
	format := fs.String("format", "", "output format (simple, table, json)")
	closedOnly := fs.Bool("closed", false, "show only finalized sessions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, store, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close history store", "error", closeErr)
		}
	}()

	var sessions []session.ObservedSession
	if *closedOnly {
		sessions, err = store.Closed()
	} else {
		sessions, err = store.List()
	}
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	formatter := newFormatter(cfg, *format, false)
	return formatter.FormatSessions(os.Stdout, sessions)
}

// runExport exports session history to JSON or CSV.
func (c *sessionsCommand) runExport(args []string) error {
	fs := flag.NewFlagSet("sessions export", flag.ExitOnError)
	format := fs.String("format", "json", "output format: json, csv")
	output := fs.String("output", "", "output file path (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	*format = strings.ToLower(*format)
	if *format != "json" && *format != "csv" {
		return fmt.Errorf("invalid format '%s': must be 'json' or 'csv'", *format)
	}

	_, log, store, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close history store", "error", closeErr)
		}
	}()

	writer := os.Stdout
	if *output != "" {
		dir := filepath.Dir(*output)
		if mkdirErr := os.MkdirAll(dir, 0750); mkdirErr != nil {
			return fmt.Errorf("failed to create output directory: %w", mkdirErr)
		}

		// #nosec G304: output path comes from user CLI argument
		writer, err = os.Create(*output) //nolint:gosec
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if closeErr := writer.Close(); closeErr != nil {
				log.Error("failed to close output file", "error", closeErr)
			}
		}()
	}

	var count int
	switch *format {
	case "json":
		data, exportErr := store.ExportJSON()
		if exportErr != nil {
			return fmt.Errorf("failed to export sessions: %w", exportErr)
		}
		if _, writeErr := writer.Write(data); writeErr != nil {
			return fmt.Errorf("failed to write JSON: %w", writeErr)
		}
		sessions, listErr := store.List()
		if listErr == nil {
			count = len(sessions)
		}
	case "csv":
		sessions, listErr := store.List()
		if listErr != nil {
			return fmt.Errorf("failed to list sessions: %w", listErr)
		}
		if csvErr := writeSessionsCSV(writer, sessions); csvErr != nil {
			return fmt.Errorf("failed to write CSV: %w", csvErr)
		}
		count = len(sessions)
	}

	if *output != "" {
		fmt.Printf("Exported %d session(s) to %s\n", count, *output)
	}

	return nil
}

// writeSessionsCSV writes session history as CSV.
func writeSessionsCSV(w *os.File, sessions []session.ObservedSession) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"id",
		"plan_type",
		"tokens_used",
		"tokens_limit",
		"start_time",
		"reset_time",
		"end_time",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sess := range sessions {
		endTime := ""
		if sess.EndTime != nil {
			endTime = sess.EndTime.Format(time.RFC3339)
		}

		row := []string{
			sess.ID,
			string(sess.PlanType),
			strconv.Itoa(sess.TokensUsed),
			strconv.Itoa(sess.TokensLimit),
			sess.StartTime.Format(time.RFC3339),
			sess.ResetTime.Format(time.RFC3339),
			endTime,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

// runImport merges sessions from a previously exported JSON file.
func (c *sessionsCommand) runImport(args []string) error {
	fs := flag.NewFlagSet("sessions import", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: usage-monitor sessions import <file>")
	}

	// #nosec G304: input path comes from user CLI argument
	data, err := os.ReadFile(fs.Arg(0)) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	_, log, store, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close history store", "error", closeErr)
		}
	}()

	if err := store.ImportJSON(data); err != nil {
		return fmt.Errorf("failed to import sessions: %w", err)
	}

	fmt.Printf("Imported sessions from %s\n", fs.Arg(0))
	return nil
}

// runPrune removes closed sessions older than the retention window.
func (c *sessionsCommand) runPrune(args []string) error {
	fs := flag.NewFlagSet("sessions prune", flag.ExitOnError)
	retention := fs.Duration("retention", 0, "retention window (default: config history_retention)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, store, err := c.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("failed to close history store", "error", closeErr)
		}
	}()

	window := *retention
	if window <= 0 {
		window = cfg.Monitoring.HistoryRetention
	}

	before, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if err := store.Prune(time.Now().UTC(), window); err != nil {
		return fmt.Errorf("failed to prune sessions: %w", err)
	}

	after, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Printf("Pruned %d session(s) older than %s\n", len(before)-len(after), window)
	return nil
}

// showHelp displays sessions command help.
func (c *sessionsCommand) showHelp() error {
	help := `Session History Commands

Usage:
  usage-monitor sessions [subcommand] [flags]

Subcommands:
  list [flags]          List recorded sessions (default)
  export [flags]        Export session history to JSON or CSV
  import <file>         Merge sessions from an exported JSON file
  prune [flags]         Remove closed sessions older than the retention window
  help                  Show this help message

List Flags:
  -format     Output format (simple, table, json)
  -closed     Show only finalized sessions

Export Flags:
  -format     Output format: json, csv (default: json)
  -output     Output file path (default: stdout)

Prune Flags:
  -retention  Retention window (default: config history_retention)

Examples:
  # List all recorded sessions
  usage-monitor sessions

  # List finalized sessions as a table
  usage-monitor sessions list -closed -format table

  # Export history to a JSON file
  usage-monitor sessions export -output history.json

  # Export history as CSV
  usage-monitor sessions export -format csv -output history.csv

  # Merge a previous export back in
  usage-monitor sessions import history.json

  # Drop closed sessions older than 3 days
  usage-monitor sessions prune -retention 72h
`
	fmt.Print(help)
	return nil
}
