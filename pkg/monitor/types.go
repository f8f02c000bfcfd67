// Package monitor runs the long-lived ingestion loop. One loop per
// process rescans the log files on watcher events, ticker ticks or
// explicit Rescan calls, derives the current session and its metrics,
// and publishes them as an atomically replaced snapshot that readers
// consume without blocking the loop.
package monitor

import (
	"context"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/metrics"
	"github.com/0xmhha/usage-monitor/pkg/parser"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// DefaultSeriesPoints is the capacity of the sampled usage series.
const DefaultSeriesPoints = 50

// Config holds the configuration for the monitor.
type Config struct {
	// UpdateInterval is the polling interval; a rescan runs at least
	// this often even without file events. Default: 3s.
	UpdateInterval time.Duration

	// WatchPaths are the validated root directories handed to the
	// watcher. Ignored when no watcher is attached.
	WatchPaths []string

	// SeriesPoints caps the sampled usage series.
	// Default: DefaultSeriesPoints.
	SeriesPoints int

	// HistoryRetention is how long closed sessions stay in history.
	// Zero uses the store default.
	HistoryRetention time.Duration
}

// Snapshot is one complete, internally consistent view of the current
// session. Readers always see a whole snapshot, never a partial update.
type Snapshot struct {
	// Session is the derived current session.
	Session session.ObservedSession

	// Metrics are the derived figures for the session at snapshot time.
	Metrics metrics.Metrics

	// Entries are the deduplicated entries inside the session window.
	Entries []parser.UsageEntry

	// Taken is when this snapshot was computed.
	Taken time.Time
}

// UsagePoint is one sampled cumulative usage observation.
type UsagePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Tokens    int       `json:"tokens"`
}

// Monitor owns the ingestion loop and the latest snapshot.
type Monitor interface {
	// Start runs an initial scan and launches the background loop.
	//
	// Parameters:
	//   - ctx: Cancelling the context stops the loop
	//
	// Returns error if the monitor is closed or already running. A
	// watcher that fails to start is logged and the monitor degrades
	// to polling; it is not an error.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the loop.
	Stop() error

	// Snapshot returns the latest snapshot. The second return value is
	// false while no session has been derived yet (Inactive state).
	Snapshot() (Snapshot, bool)

	// History returns past sessions ordered by start time.
	History() ([]session.ObservedSession, error)

	// Series returns the sampled cumulative usage points, oldest first.
	Series() []UsagePoint

	// Rescan requests an immediate ingestion pass. Safe to call from
	// any goroutine; concurrent requests coalesce into one pass.
	Rescan()

	// Close stops the loop and releases the watcher.
	Close() error
}
