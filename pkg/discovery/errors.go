package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrInvalidPath is returned when a candidate path fails validation.
	// The path is never opened; the remaining roots are still scanned.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNoRoots is returned when no valid data directories exist.
	ErrNoRoots = errors.New("no data directories found")
)
