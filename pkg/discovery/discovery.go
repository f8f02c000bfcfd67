// Package discovery locates Claude Code JSONL usage logs on the local
// filesystem and validates every candidate path before it is opened.
//
// Data directories come from fixed default locations under the user's
// home, a colon-separated CLAUDE_DATA_PATHS list, and a single-path
// CLAUDE_DATA_PATH variable. Invalid entries are logged and skipped;
// the remaining roots are still scanned.
//
// Example usage:
//
//	d := discovery.New(discovery.Config{}, logger.Default())
//	files, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    fmt.Println(f.Path)
//	}
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xmhha/usage-monitor/pkg/logger"
)

// Environment variables consumed for custom data locations.
const (
	// EnvDataPaths is a colon-separated list of data directories.
	EnvDataPaths = "CLAUDE_DATA_PATHS"

	// EnvDataPath is a single additional data directory.
	EnvDataPath = "CLAUDE_DATA_PATH"
)

// LogFile is a discovered JSONL usage log.
type LogFile struct {
	// Path is the absolute, validated path to the file.
	Path string

	// Root is the data directory the file was found under.
	Root string

	// Size is the file size in bytes.
	Size int64
}

// Discoverer finds JSONL usage logs under the validated data roots.
type Discoverer interface {
	// Roots returns the validated data directories, in scan order.
	//
	// Directories that do not exist or fail validation are skipped.
	// Returns ErrNoRoots when none remain.
	Roots() ([]string, error)

	// Discover walks the validated roots and returns every .jsonl
	// file found, in stable discovery order (sorted walk per root).
	//
	// Unreadable entries are logged and skipped. An empty result is
	// not an error.
	Discover() ([]LogFile, error)
}

// Config contains discoverer configuration.
type Config struct {
	// ExtraRoots are explicitly configured data directories, allowed
	// even outside the user's home subtree.
	ExtraRoots []string

	// DisableEnv ignores the CLAUDE_DATA_PATHS / CLAUDE_DATA_PATH
	// environment variables. Used by tests.
	DisableEnv bool
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	config Config
	logger logger.Logger
}

// New creates a new Discoverer instance.
func New(cfg Config, log logger.Logger) Discoverer {
	return &discoverer{
		config: cfg,
		logger: log,
	}
}

// Roots implements Discoverer.Roots.
func (d *discoverer) Roots() ([]string, error) {
	var candidates []string

	if !d.config.DisableEnv {
		if list := os.Getenv(EnvDataPaths); list != "" {
			candidates = append(candidates, strings.Split(list, ":")...)
		}
		if single := os.Getenv(EnvDataPath); single != "" {
			candidates = append(candidates, single)
		}
	}

	candidates = append(candidates, d.config.ExtraRoots...)
	candidates = append(candidates, defaultRoots()...)

	extraRoots := d.canonicalExtraRoots()

	roots := make([]string, 0, len(candidates))
	seen := make(map[string]bool)

	for _, candidate := range candidates {
		validated, err := ValidatePath(candidate, extraRoots)
		if err != nil {
			d.logger.Warn("skipping data directory",
				"path", candidate,
				"reason", err)
			continue
		}

		info, err := os.Stat(validated)
		if err != nil || !info.IsDir() {
			d.logger.Debug("data directory not usable", "path", validated)
			continue
		}

		if !seen[validated] {
			seen[validated] = true
			roots = append(roots, validated)
		}
	}

	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	return roots, nil
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]LogFile, error) {
	roots, err := d.Roots()
	if err != nil {
		return nil, err
	}

	var files []LogFile

	for _, root := range roots {
		found, err := d.scanRoot(root)
		if err != nil {
			d.logger.Warn("failed to scan data directory",
				"path", root,
				"error", err)
			continue
		}
		files = append(files, found...)
	}

	d.logger.Info("discovery complete",
		"roots", len(roots),
		"files", len(files))

	return files, nil
}

// scanRoot walks one data directory collecting .jsonl files. WalkDir
// visits entries in lexical order, which keeps discovery order stable
// across runs.
func (d *discoverer) scanRoot(root string) ([]LogFile, error) {
	files := make([]LogFile, 0, 10)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			d.logger.Warn("error walking path",
				"path", path,
				"error", walkErr)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("failed to get file info",
				"path", path,
				"error", err)
			return nil
		}

		files = append(files, LogFile{
			Path: path,
			Root: root,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	d.logger.Debug("scanned data directory",
		"path", root,
		"files_found", len(files))

	return files, nil
}

// canonicalExtraRoots resolves the explicitly configured roots so the
// validator can allow-list them even outside the home subtree.
func (d *discoverer) canonicalExtraRoots() []string {
	roots := make([]string, 0, len(d.config.ExtraRoots))

	for _, root := range d.config.ExtraRoots {
		abs, err := filepath.Abs(expandHome(strings.TrimSpace(root)))
		if err != nil {
			continue
		}
		if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
			abs = resolved
		}
		roots = append(roots, abs)
	}

	return roots
}

// defaultRoots returns the standard Claude Code data directories.
func defaultRoots() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	return []string{
		filepath.Join(homeDir, ".claude", "projects"),
		filepath.Join(homeDir, ".config", "claude", "projects"),
	}
}
