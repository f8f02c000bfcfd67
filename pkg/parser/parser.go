package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xmhha/usage-monitor/pkg/logger"
)

const (
	// MaxFileSize is the maximum allowed JSONL file size (50MB).
	// Larger files are skipped entirely, before any line is read.
	MaxFileSize = 50 * 1024 * 1024

	// MaxLineSize is the maximum allowed line length (1MB).
	// Longer lines are skipped; the rest of the file is still parsed.
	MaxLineSize = 1024 * 1024

	// MaxDepth is the maximum allowed JSON nesting depth.
	MaxDepth = 32
)

// Parser provides methods for parsing Claude Code JSONL files.
type Parser interface {
	// ParseFile reads a JSONL file and returns the usage records it
	// contains.
	//
	// Parameters:
	//   - path: Path to the JSONL file (validated by the caller)
	//
	// Returns:
	//   - Slice of successfully parsed entries, in line order
	//   - Error if the file cannot be read or exceeds MaxFileSize
	//
	// Malformed lines are logged and skipped rather than causing
	// failure. Lines without a usage payload are skipped silently.
	//
	// Thread-safety: safe to call concurrently with different files.
	ParseFile(path string) ([]UsageEntry, error)

	// ParseLine parses a single JSONL line.
	//
	// Parameters:
	//   - line: One line of JSONL (without newline character)
	//   - source: Path of the originating file, recorded on the entry
	//
	// Returns:
	//   - Parsed entry, or nil if the line is not a usage event
	//   - Error if the line is malformed or exceeds limits
	//
	// Thread-safety: this method is thread-safe.
	ParseLine(line []byte, source string) (*UsageEntry, error)
}

// jsonlParser implements the Parser interface.
type jsonlParser struct {
	logger logger.Logger
}

// New creates a new Parser instance.
func New(log logger.Logger) Parser {
	return &jsonlParser{logger: log}
}

// ParseFile implements Parser.ParseFile.
func (p *jsonlParser) ParseFile(path string) ([]UsageEntry, error) {
	// Check file size before opening.
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: size=%d, max=%d",
			ErrFileTooLarge, info.Size(), MaxFileSize)
	}

	// #nosec G304: path is validated by caller
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			p.logger.Warn("failed to close file", "path", path, "error", closeErr)
		}
	}()

	entries := make([]UsageEntry, 0, 100)
	r := bufio.NewReaderSize(f, 64*1024)
	lineNum := 0

	for {
		line, tooLong, readErr := readLine(r)
		if readErr != nil && readErr != io.EOF {
			return entries, &ParseError{Path: path, Line: lineNum + 1, Err: readErr}
		}
		if len(line) == 0 && readErr == io.EOF {
			break
		}
		lineNum++

		if tooLong {
			p.logger.Warn("skipping oversized line",
				"error", &ParseError{Path: path, Line: lineNum, Err: ErrLineTooLong})
			continue
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		entry, parseErr := p.ParseLine(line, path)
		if parseErr != nil {
			p.logger.Warn("skipping malformed line",
				"error", &ParseError{Path: path, Line: lineNum, Err: parseErr})
			continue
		}
		if entry == nil {
			// Not a usage event.
			continue
		}

		entries = append(entries, *entry)

		if readErr == io.EOF {
			break
		}
	}

	return entries, nil
}

// ParseLine implements Parser.ParseLine.
func (p *jsonlParser) ParseLine(line []byte, source string) (*UsageEntry, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedRecord)
	}

	if len(line) > MaxLineSize {
		return nil, fmt.Errorf("%w: size=%d, max=%d",
			ErrLineTooLong, len(line), MaxLineSize)
	}

	// Bound nesting before handing the document to encoding/json so an
	// adversarial deeply-nested line cannot exhaust the stack.
	if err := checkDepth(line); err != nil {
		return nil, err
	}

	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	// Summary records carry no usage data.
	if raw.Type == "summary" {
		return nil, nil
	}

	usage := raw.Usage
	if raw.Message != nil && raw.Message.Usage != nil {
		usage = raw.Message.Usage
	}
	if usage == nil {
		// Not a usage event (user message, tool result, etc.).
		return nil, nil
	}

	entry := UsageEntry{
		Timestamp:           raw.Timestamp.UTC(),
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: usage.CacheCreationTokens,
		CacheReadTokens:     usage.CacheReadTokens,
		Model:               raw.Model,
		MessageID:           raw.AltMessageID,
		RequestID:           raw.RequestID,
		SourceFile:          source,
	}

	if raw.Message != nil {
		if raw.Message.Model != "" {
			entry.Model = raw.Message.Model
		}
		if raw.Message.ID != "" {
			entry.MessageID = raw.Message.ID
		}
	}
	if entry.RequestID == "" {
		entry.RequestID = raw.AltRequestID
	}

	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return &entry, nil
}

// readLine reads one newline-terminated line from r, accumulating at
// most MaxLineSize+1 bytes. When a line is longer, the remainder is
// drained and tooLong reports true so the caller can skip the line and
// keep parsing the file.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')

		if !tooLong {
			line = append(line, chunk...)
			if len(line) > MaxLineSize+1 {
				tooLong = true
				line = nil
			}
		}

		if readErr == bufio.ErrBufferFull {
			continue
		}

		line = bytes.TrimSuffix(line, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		return line, tooLong, readErr
	}
}

// checkDepth scans the raw bytes and rejects documents nested deeper
// than MaxDepth. Braces and brackets inside string literals are not
// structural and do not count.
func checkDepth(line []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range line {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > MaxDepth {
				return fmt.Errorf("%w: depth=%d, max=%d",
					ErrDepthExceeded, depth, MaxDepth)
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}

	return nil
}

// IsSkippable reports whether err is a per-line condition that should
// skip the line rather than the whole file.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrLineTooLong) ||
		errors.Is(err, ErrDepthExceeded)
}
