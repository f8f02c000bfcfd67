package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/0xmhha/usage-monitor/pkg/aggregator"
	"github.com/0xmhha/usage-monitor/pkg/config"
	"github.com/0xmhha/usage-monitor/pkg/discovery"
	"github.com/0xmhha/usage-monitor/pkg/display"
	"github.com/0xmhha/usage-monitor/pkg/logger"
	"github.com/0xmhha/usage-monitor/pkg/metrics"
	"github.com/0xmhha/usage-monitor/pkg/monitor"
	"github.com/0xmhha/usage-monitor/pkg/parser"
	"github.com/0xmhha/usage-monitor/pkg/session"
	"github.com/0xmhha/usage-monitor/pkg/source"
	"github.com/0xmhha/usage-monitor/pkg/watcher"
)

// loadConfig loads configuration, honoring an explicit file path.
func loadConfig(configPath string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// newLogger builds a logger from configuration. A non-empty level
// overrides the configured one.
func newLogger(cfg *config.Config, level string) logger.Logger {
	if level == "" {
		level = cfg.Logging.Level
	}

	return logger.New(logger.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// newSource builds the entry source. The returned discoverer is nil
// for the mock source.
func newSource(cfg *config.Config, log logger.Logger, mock bool) (source.Source, discovery.Discoverer) {
	if mock || cfg.Monitoring.Mock {
		return source.NewMockSource(time.Now().Unix(), 0), nil
	}

	disc := discovery.New(discovery.Config{ExtraRoots: cfg.DataDirs}, log)
	return source.NewFileSource(disc, parser.New(log), log), disc
}

// newEngine builds the session derivation engine from configuration.
func newEngine(cfg *config.Config, log logger.Logger) *session.Engine {
	return session.NewEngine(session.Config{
		PlanHint:    session.PlanType(cfg.Session.Plan),
		CustomLimit: cfg.Session.CustomLimit,
	}, log)
}

// newFormatter builds the output formatter. A non-empty format
// overrides the configured default mode.
func newFormatter(cfg *config.Config, format string, compact bool) display.Formatter {
	mode := format
	if mode == "" {
		mode = cfg.Display.DefaultMode
	}

	var f display.Format
	switch mode {
	case "json":
		f = display.FormatJSON
	case "table":
		f = display.FormatTable
	default:
		f = display.FormatSimple
	}

	// Colors only make sense on a terminal.
	colorEnabled := cfg.Display.ColorEnabled && term.IsTerminal(int(os.Stdout.Fd()))

	return display.New(display.Config{
		Format:           f,
		WarningThreshold: cfg.Monitoring.WarningThreshold,
		ColorEnabled:     colorEnabled,
		Compact:          compact,
	})
}

// statusCommand shows the current session once.
type statusCommand struct {
	format     string
	compact    bool
	mock       bool
	configPath string
}

// Execute runs the status command.
func (c *statusCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg, "")
	src, _ := newSource(cfg, log, c.mock)
	engine := newEngine(cfg, log)
	formatter := newFormatter(cfg, c.format, c.compact)

	entries, err := src.Entries(context.Background())
	if err != nil {
		if errors.Is(err, session.ErrNoData) {
			return formatter.FormatInactive(os.Stdout)
		}
		return fmt.Errorf("failed to collect entries: %w", err)
	}

	now := time.Now().UTC()
	sess, windowEntries := engine.Derive(entries, now)
	if sess == nil {
		return formatter.FormatInactive(os.Stdout)
	}

	snap := monitor.Snapshot{
		Session: *sess,
		Metrics: metrics.Calculate(*sess, windowEntries, now),
		Entries: windowEntries,
		Taken:   now,
	}

	return formatter.FormatStatus(os.Stdout, snap)
}

// watchCommand provides live session monitoring.
type watchCommand struct {
	refresh     time.Duration
	format      string
	mock        bool
	clearScreen bool
	configPath  string
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	// Quiet logging during live monitoring.
	log := newLogger(cfg, "error")

	src, disc := newSource(cfg, log, c.mock)
	engine := newEngine(cfg, log)
	formatter := newFormatter(cfg, c.format, false)

	// History is optional; a locked or unwritable database degrades
	// to monitoring without persistence.
	store, err := session.OpenStore(cfg.Storage.DBPath, log)
	if err != nil {
		log.Warn("history unavailable", "path", cfg.Storage.DBPath, "error", err)
		store = nil
	} else {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Error("failed to close history store", "error", closeErr)
			}
		}()
	}

	// The watcher only applies to real log files.
	var w watcher.Watcher
	var watchPaths []string
	if disc != nil {
		if roots, rootsErr := disc.Roots(); rootsErr == nil {
			watchPaths = roots
		}

		w, err = watcher.New(watcher.Config{
			DebounceInterval: cfg.Monitoring.DebounceInterval,
		}, log)
		if err != nil {
			log.Warn("file watching unavailable, falling back to polling", "error", err)
			w = nil
		}
	}

	mon := monitor.New(monitor.Config{
		UpdateInterval:   cfg.Monitoring.UpdateInterval,
		WatchPaths:       watchPaths,
		HistoryRetention: cfg.Monitoring.HistoryRetention,
	}, src, engine, store, w, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	defer func() {
		if closeErr := mon.Close(); closeErr != nil {
			log.Error("failed to close monitor", "error", closeErr)
		}
	}()

	refresh := c.refresh
	if refresh <= 0 {
		refresh = cfg.Monitoring.UpdateInterval
	}

	// Clear screen and display initial header.
	if c.clearScreen {
		fmt.Print("\033[2J\033[H")
	}
	fmt.Println("Usage Monitor - Press Ctrl+C to stop")
	fmt.Printf("Refresh: %s\n", refresh)
	fmt.Println()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	c.render(formatter, mon)
	for {
		select {
		case <-ctx.Done():
			fmt.Print("\n")
			fmt.Println("Stopping monitor...")
			return nil

		case <-ticker.C:
			c.render(formatter, mon)
		}
	}
}

// render draws the latest snapshot.
func (c *watchCommand) render(formatter display.Formatter, mon monitor.Monitor) {
	// Move cursor below the header and clear from there.
	if c.clearScreen {
		fmt.Print("\033[4;1H\033[J")
	}

	snap, ok := mon.Snapshot()
	if !ok {
		_ = formatter.FormatInactive(os.Stdout)
		return
	}

	_ = formatter.FormatStatus(os.Stdout, snap)
}

// modelsCommand displays per-model usage statistics.
type modelsCommand struct {
	groupBy    []string
	topN       int
	window     bool
	format     string
	compact    bool
	mock       bool
	configPath string
}

// Execute runs the models command.
func (c *modelsCommand) Execute() error {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg, "")
	src, _ := newSource(cfg, log, c.mock)
	formatter := newFormatter(cfg, c.format, c.compact)

	dimensions, err := c.parseDimensions()
	if err != nil {
		return err
	}

	entries, err := src.Entries(context.Background())
	if err != nil {
		if errors.Is(err, session.ErrNoData) {
			return formatter.FormatInactive(os.Stdout)
		}
		return fmt.Errorf("failed to collect entries: %w", err)
	}

	if c.window {
		engine := newEngine(cfg, log)
		sess, windowEntries := engine.Derive(entries, time.Now().UTC())
		if sess == nil {
			return formatter.FormatInactive(os.Stdout)
		}
		entries = windowEntries
	}

	agg := aggregator.New(aggregator.Config{
		GroupBy:          dimensions,
		TrackPercentiles: true,
	})
	agg.AddAll(entries)

	return formatter.FormatModels(os.Stdout, agg.TopModels(c.topN))
}

// parseDimensions converts dimension strings to types. The model
// dimension is required for per-model ranking.
func (c *modelsCommand) parseDimensions() ([]aggregator.Dimension, error) {
	var dimensions []aggregator.Dimension
	hasModel := false

	for _, dim := range c.groupBy {
		switch dim {
		case "model":
			dimensions = append(dimensions, aggregator.DimModel)
			hasModel = true
		case "date":
			dimensions = append(dimensions, aggregator.DimDate)
		case "hour":
			dimensions = append(dimensions, aggregator.DimHour)
		default:
			return nil, fmt.Errorf("invalid dimension: %s", dim)
		}
	}

	if !hasModel {
		return nil, fmt.Errorf("group-by must include the model dimension")
	}

	return dimensions, nil
}
