package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xmhha/usage-monitor/pkg/logger"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
		skip    bool // expect (nil, nil): not a usage event
		check   func(t *testing.T, entry *UsageEntry)
	}{
		{
			name: "valid entry with all fields",
			line: `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"msg_123","model":"claude-sonnet-4","usage":{"input_tokens":100,"output_tokens":50,"cache_creation_input_tokens":20,"cache_read_input_tokens":10}},"requestId":"req_123"}`,
			check: func(t *testing.T, entry *UsageEntry) {
				if entry.MessageID != "msg_123" {
					t.Errorf("MessageID = %s, want msg_123", entry.MessageID)
				}
				if entry.RequestID != "req_123" {
					t.Errorf("RequestID = %s, want req_123", entry.RequestID)
				}
				if entry.Model != "claude-sonnet-4" {
					t.Errorf("Model = %s, want claude-sonnet-4", entry.Model)
				}
				if entry.TotalTokens() != 180 {
					t.Errorf("TotalTokens = %d, want 180", entry.TotalTokens())
				}
			},
		},
		{
			name: "valid entry minimal usage",
			line: `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"msg_1","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":5}}}`,
			check: func(t *testing.T, entry *UsageEntry) {
				if entry.TotalTokens() != 15 {
					t.Errorf("TotalTokens = %d, want 15", entry.TotalTokens())
				}
				if entry.RequestID != "" {
					t.Errorf("RequestID = %s, want empty", entry.RequestID)
				}
			},
		},
		{
			name: "flat format fallback",
			line: `{"timestamp":"2024-01-15T10:30:00Z","model":"claude-opus-4","usage":{"input_tokens":7,"output_tokens":3},"message_id":"m1","request_id":"r1"}`,
			check: func(t *testing.T, entry *UsageEntry) {
				if entry.Model != "claude-opus-4" {
					t.Errorf("Model = %s, want claude-opus-4", entry.Model)
				}
				if entry.MessageID != "m1" || entry.RequestID != "r1" {
					t.Errorf("IDs = (%s,%s), want (m1,r1)", entry.MessageID, entry.RequestID)
				}
			},
		},
		{
			name: "missing usage is not an event",
			line: `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"msg_1","model":"claude-sonnet-4"}}`,
			skip: true,
		},
		{
			name: "summary record is not an event",
			line: `{"type":"summary","summary":"conversation summary","leafUuid":"abc"}`,
			skip: true,
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "invalid json",
			line:    `{"invalid json`,
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "missing timestamp",
			line:    `{"message":{"id":"msg_1","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":5}}}`,
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "negative input tokens",
			line:    `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":-10,"output_tokens":5}}}`,
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "negative cache tokens",
			line:    `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":5,"cache_read_input_tokens":-1}}}`,
			wantErr: ErrMalformedRecord,
		},
	}

	p := New(logger.Noop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := p.ParseLine([]byte(tt.line), "test.jsonl")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseLine() error = %v", err)
			}

			if tt.skip {
				if entry != nil {
					t.Errorf("ParseLine() = %+v, want nil (not a usage event)", entry)
				}
				return
			}

			if entry == nil {
				t.Fatal("ParseLine() returned nil entry")
			}

			if entry.SourceFile != "test.jsonl" {
				t.Errorf("SourceFile = %s, want test.jsonl", entry.SourceFile)
			}

			if tt.check != nil {
				tt.check(t, entry)
			}
		})
	}
}

func TestParseLineTimestampUTC(t *testing.T) {
	p := New(logger.Noop())

	line := `{"timestamp":"2024-01-15T12:30:00+02:00","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":1,"output_tokens":1}}}`
	entry, err := p.ParseLine([]byte(line), "f.jsonl")
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}

	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if !entry.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", entry.Timestamp, want)
	}
	if entry.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp location = %v, want UTC", entry.Timestamp.Location())
	}
}

func TestDepthLimit(t *testing.T) {
	p := New(logger.Noop())

	// buildNested wraps a usage record in n extra object levels.
	buildNested := func(n int) string {
		var sb strings.Builder
		sb.WriteString(`{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":1,"output_tokens":1}},"extra":`)
		for i := 0; i < n; i++ {
			sb.WriteString(`{"a":`)
		}
		sb.WriteString("1")
		for i := 0; i < n; i++ {
			sb.WriteString("}")
		}
		sb.WriteString("}")
		return sb.String()
	}

	// Root object is level 1; 30 extra levels under "extra" = 31 total.
	if _, err := p.ParseLine([]byte(buildNested(30)), "f.jsonl"); err != nil {
		t.Errorf("depth 31 should parse, got error: %v", err)
	}

	// 32 extra levels under "extra" = 33 total.
	if _, err := p.ParseLine([]byte(buildNested(32)), "f.jsonl"); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("depth 33 error = %v, want ErrDepthExceeded", err)
	}
}

func TestDepthIgnoresBracesInStrings(t *testing.T) {
	p := New(logger.Noop())

	// 40 open braces inside a string literal are not structural.
	line := `{"timestamp":"2024-01-15T10:30:00Z","note":"` + strings.Repeat("{", 40) + `","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":1,"output_tokens":1}}}`
	if _, err := p.ParseLine([]byte(line), "f.jsonl"); err != nil {
		t.Errorf("braces in string counted as nesting: %v", err)
	}
}

func TestLineSizeLimit(t *testing.T) {
	p := New(logger.Noop())

	pad := strings.Repeat("x", MaxLineSize)
	line := `{"timestamp":"2024-01-15T10:30:00Z","pad":"` + pad + `"}`

	if _, err := p.ParseLine([]byte(line), "f.jsonl"); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("oversized line error = %v, want ErrLineTooLong", err)
	}
}

func TestParseFile(t *testing.T) {
	tmpDir := t.TempDir()

	content := strings.Join([]string{
		`{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"msg_1","model":"claude-sonnet-4","usage":{"input_tokens":100,"output_tokens":50}},"requestId":"req_1"}`,
		``,
		`not json at all`,
		`{"type":"summary","summary":"s"}`,
		`{"timestamp":"2024-01-15T10:31:00Z","message":{"id":"msg_2","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":5}},"requestId":"req_2"}`,
	}, "\n") + "\n"

	path := filepath.Join(tmpDir, "session.jsonl")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := New(logger.Noop())
	entries, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("ParseFile() returned %d entries, want 2", len(entries))
	}
	if entries[0].MessageID != "msg_1" || entries[1].MessageID != "msg_2" {
		t.Errorf("entries out of order: %s, %s", entries[0].MessageID, entries[1].MessageID)
	}
	if entries[0].SourceFile != path {
		t.Errorf("SourceFile = %s, want %s", entries[0].SourceFile, path)
	}
}

func TestParseFileOversizedLineSkipsOnlyThatLine(t *testing.T) {
	tmpDir := t.TempDir()

	big := `{"pad":"` + strings.Repeat("x", MaxLineSize) + `"}`
	content := big + "\n" +
		`{"timestamp":"2024-01-15T10:31:00Z","message":{"id":"msg_2","model":"claude-sonnet-4","usage":{"input_tokens":10,"output_tokens":5}}}` + "\n"

	path := filepath.Join(tmpDir, "session.jsonl")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := New(logger.Noop())
	entries, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("ParseFile() returned %d entries, want 1", len(entries))
	}
	if entries[0].MessageID != "msg_2" {
		t.Errorf("MessageID = %s, want msg_2", entries[0].MessageID)
	}
}

func TestParseFileTooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "huge.jsonl")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Sparse file: size check happens before any read.
	if err := f.Truncate(MaxFileSize + 1); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	p := New(logger.Noop())
	if _, err := p.ParseFile(path); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ParseFile() error = %v, want ErrFileTooLarge", err)
	}
}

func TestParseError(t *testing.T) {
	perr := &ParseError{Path: "logs/a.jsonl", Line: 7, Err: ErrMalformedRecord}

	want := "parse error at logs/a.jsonl:7: malformed record"
	if got := perr.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(perr, ErrMalformedRecord) {
		t.Error("errors.Is() should reach the wrapped sentinel")
	}

	var target *ParseError
	if !errors.As(error(perr), &target) {
		t.Error("errors.As() failed to match *ParseError")
	}
}

func TestParseFileMissing(t *testing.T) {
	p := New(logger.Noop())
	if _, err := p.ParseFile(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Error("ParseFile() on missing file should error")
	}
}

func TestParseFileNoTrailingNewline(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "session.jsonl")

	content := `{"timestamp":"2024-01-15T10:30:00Z","message":{"id":"m","model":"claude-sonnet-4","usage":{"input_tokens":1,"output_tokens":1}}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := New(logger.Noop())
	entries, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ParseFile() returned %d entries, want 1", len(entries))
	}
}
