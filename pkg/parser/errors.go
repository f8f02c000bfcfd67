package parser

import (
	"errors"
	"fmt"
)

// Common errors returned by the parser package.
var (
	// ErrMalformedRecord is returned when a JSONL line cannot be parsed
	// into a usage record. The line is skipped, never fatal to the file.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrLineTooLong is returned when a line exceeds MaxLineSize.
	ErrLineTooLong = errors.New("line exceeds maximum size")

	// ErrDepthExceeded is returned when a JSON document nests deeper
	// than MaxDepth levels.
	ErrDepthExceeded = errors.New("JSON nesting exceeds maximum depth")

	// ErrFileTooLarge is returned when a file exceeds MaxFileSize.
	// The file is skipped before any line is read.
	ErrFileTooLarge = errors.New("file size exceeds maximum limit")

	// ErrInvalidTimestamp is returned when a usage record has a missing
	// or zero timestamp.
	ErrInvalidTimestamp = errors.New("invalid timestamp: must not be zero")

	// ErrNegativeTokenCount is returned when any token count is negative.
	ErrNegativeTokenCount = errors.New("invalid token count: must be non-negative")
)

// ParseError provides context about a parsing failure.
type ParseError struct {
	Path string // File the line came from
	Line int    // Line number where the error occurred (1-indexed)
	Err  error  // Underlying error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
