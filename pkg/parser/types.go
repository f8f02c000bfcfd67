// Package parser extracts token usage records from Claude Code JSONL
// log files. One JSON object per line; objects without a usage payload
// are not usage events and are skipped silently.
//
// The source files are written by a separate, trusted-but-not-verified
// process, so the parser enforces hard limits on file size, line size,
// and nesting depth, and never fails a whole file because of one bad
// line.
//
// Example usage:
//
//	p := parser.New(logger.Default())
//	entries, err := p.ParseFile("/path/to/session.jsonl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, entry := range entries {
//	    fmt.Printf("Tokens: %d\n", entry.TotalTokens())
//	}
package parser

import (
	"time"
)

// UsageEntry is one parsed usage record. Immutable once constructed;
// handed between pipeline stages by value.
//
// Invariant: Timestamp is never the zero value.
// Invariant: All token counts are non-negative.
type UsageEntry struct {
	// Timestamp is the UTC instant the usage was recorded.
	Timestamp time.Time

	// Model is the model identifier, or empty if absent.
	Model string

	// Token counts for a single API call.
	InputTokens         int
	OutputTokens        int
	CacheCreationTokens int
	CacheReadTokens     int

	// MessageID and RequestID identify a single logical usage event
	// possibly recorded more than once. Either may be empty.
	MessageID string
	RequestID string

	// SourceFile is the path of the file the record came from.
	SourceFile string
}

// TotalTokens returns the sum of all four token fields.
func (e UsageEntry) TotalTokens() int {
	return e.InputTokens + e.OutputTokens +
		e.CacheCreationTokens + e.CacheReadTokens
}

// Validate checks if the entry satisfies all invariants.
//
// Returns an error if:
//   - Timestamp is zero value
//   - Any token count is negative
func (e UsageEntry) Validate() error {
	if e.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}

	if e.InputTokens < 0 || e.OutputTokens < 0 ||
		e.CacheCreationTokens < 0 || e.CacheReadTokens < 0 {
		return ErrNegativeTokenCount
	}

	return nil
}

// rawRecord mirrors the Claude Code JSONL wire format. Usage data is
// nested inside message.usage for assistant responses; the top-level
// fallbacks cover the flat variant of the format.
type rawRecord struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Message   *rawMessage `json:"message"`
	RequestID string      `json:"requestId"`

	// Flat-format fallbacks.
	Usage        *rawUsage `json:"usage"`
	Model        string    `json:"model"`
	AltMessageID string    `json:"message_id"`
	AltRequestID string    `json:"request_id"`
}

type rawMessage struct {
	ID    string    `json:"id"`
	Model string    `json:"model"`
	Usage *rawUsage `json:"usage"`
}

type rawUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
}
