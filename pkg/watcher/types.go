// Package watcher provides file system monitoring for usage log
// directories.
//
// It uses fsnotify to watch the discovered data roots for JSONL
// changes and debounces rapid appends so a file being streamed to
// triggers one rescan, not one per line. When the platform watch
// primitive is unavailable, New returns ErrWatchInitFailed and the
// caller falls back to periodic polling.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 100 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    // Non-fatal: poll on a ticker instead.
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, roots); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("File %s: %s\n", event.Path, event.Op)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted or moved away
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event represents a debounced file system event.
type Event struct {
	// Path is the absolute path to the file that triggered the event.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start begins watching the specified directories.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - paths: Directories to watch recursively
	//
	// Returns error if watching cannot be started.
	Start(ctx context.Context, paths []string) error

	// Stop gracefully shuts down the watcher.
	//
	// Returns error if shutdown fails.
	Stop() error

	// Events returns the channel for receiving file system events.
	//
	// Events are debounced based on the configured interval.
	// The channel is closed when the watcher closes.
	Events() <-chan Event

	// Errors returns the channel for receiving non-fatal watcher
	// errors. The channel is closed when the watcher closes.
	Errors() <-chan error

	// Close closes the watcher and releases the OS watch resource.
	//
	// Returns error if resources cannot be released cleanly.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events for the same file within this interval are coalesced.
	// Default: 100ms.
	DebounceInterval time.Duration
}
