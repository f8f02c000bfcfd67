package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrWatchInitFailed is returned when the platform watch primitive
	// cannot be created. It is non-fatal: callers fall back to polling.
	ErrWatchInitFailed = errors.New("failed to initialize file watcher")

	// ErrWatcherClosed is returned when attempting to use a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")

	// ErrInvalidPath is returned when no watch path is usable.
	ErrInvalidPath = errors.New("invalid watch path")
)
