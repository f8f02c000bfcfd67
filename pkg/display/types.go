// Package display provides output formatting for session status,
// history and model breakdowns.
//
// It supports multiple output formats (table, JSON, simple text).
package display

import (
	"io"

	"github.com/0xmhha/usage-monitor/pkg/aggregator"
	"github.com/0xmhha/usage-monitor/pkg/monitor"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays output in formatted tables.
	FormatTable Format = "table"

	// FormatJSON displays output as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays output in simple text format.
	FormatSimple Format = "simple"
)

// Formatter formats monitoring output.
type Formatter interface {
	// FormatStatus formats the current session snapshot.
	//
	// Parameters:
	//   - w: Output writer
	//   - snap: Snapshot to format
	//
	// Returns error if formatting fails.
	FormatStatus(w io.Writer, snap monitor.Snapshot) error

	// FormatInactive reports that no session could be derived.
	FormatInactive(w io.Writer) error

	// FormatSessions formats the session history, oldest first.
	//
	// Parameters:
	//   - w: Output writer
	//   - sessions: Sessions to format
	//
	// Returns error if formatting fails.
	FormatSessions(w io.Writer, sessions []session.ObservedSession) error

	// FormatModels formats the per-model breakdown.
	//
	// Parameters:
	//   - w: Output writer
	//   - models: Model statistics, highest usage first
	//
	// Returns error if formatting fails.
	FormatModels(w io.Writer, models []aggregator.ModelStats) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatSimple.
	Format Format

	// WarningThreshold is the usage fraction at which the status view
	// warns. Default: 0.85.
	WarningThreshold float64

	// ColorEnabled enables ANSI colors in text output.
	// Default: false.
	ColorEnabled bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool

	// BarWidth overrides the progress bar width. Zero means derive it
	// from the terminal, falling back to 40 columns.
	BarWidth int
}
