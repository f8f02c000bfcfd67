// Package source supplies the usage entry stream consumed by the
// monitoring loop. Two implementations exist: FileSource reads the real
// log files, MockSource fabricates plausible traffic for offline use.
// The variant is picked once at startup.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xmhha/usage-monitor/pkg/dedup"
	"github.com/0xmhha/usage-monitor/pkg/discovery"
	"github.com/0xmhha/usage-monitor/pkg/logger"
	"github.com/0xmhha/usage-monitor/pkg/parser"
	"github.com/0xmhha/usage-monitor/pkg/session"
)

// Source produces the deduplicated, time-ordered entry stream for one
// ingestion pass.
type Source interface {
	// Entries returns all currently known usage entries in ascending
	// timestamp order with duplicates removed.
	Entries(ctx context.Context) ([]parser.UsageEntry, error)
}

// FileSource reads entries from discovered JSONL log files.
type FileSource struct {
	discoverer discovery.Discoverer
	parser     parser.Parser
	logger     logger.Logger
}

// NewFileSource creates a file-backed source.
//
// Parameters:
//   - d: Root discovery for log files
//   - p: JSONL parser
//   - log: Logger instance
//
// Returns:
//   - Configured FileSource
func NewFileSource(d discovery.Discoverer, p parser.Parser, log logger.Logger) *FileSource {
	return &FileSource{
		discoverer: d,
		parser:     p,
		logger:     log,
	}
}

// Entries discovers, parses and merges all log files. A file that fails
// to parse is skipped with a warning; remaining files still contribute.
// When no entry exists across any root the pass reports
// session.ErrNoData, which callers treat as the Inactive state rather
// than a failure.
func (s *FileSource) Entries(ctx context.Context) ([]parser.UsageEntry, error) {
	files, err := s.discoverer.Discover()
	if err != nil {
		if errors.Is(err, discovery.ErrNoRoots) {
			s.logger.Warn("no data roots available")
			return nil, session.ErrNoData
		}
		return nil, fmt.Errorf("failed to discover log files: %w", err)
	}

	all := make([]parser.UsageEntry, 0, len(files)*16)

	for _, file := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		entries, parseErr := s.parser.ParseFile(file.Path)
		if parseErr != nil {
			s.logger.Warn("skipping unreadable log file",
				"path", file.Path,
				"error", parseErr)
			continue
		}

		all = append(all, entries...)
	}

	s.logger.Debug("ingestion pass complete",
		"files", len(files),
		"entries", len(all))

	if len(all) == 0 {
		return nil, session.ErrNoData
	}

	return dedup.Merge(all), nil
}
