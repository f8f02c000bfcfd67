package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxPathLength is the maximum accepted length for a candidate path.
const MaxPathLength = 4096

// systemRoots are directories outside the user's home that are still
// acceptable locations for usage data.
var systemRoots = []string{
	"/opt/claude",
	"/usr/local/share/claude",
	"/var/lib/claude",
}

// ValidatePath canonicalizes a candidate path and bounds it to the
// allowed roots. Pure validation, performed before every open.
//
// Parameters:
//   - path: Candidate path from configuration or environment
//   - extraRoots: Additional allowed root directories (already canonical)
//
// Returns:
//   - Absolute, symlink-resolved path
//   - ErrInvalidPath if the path is empty, contains null bytes, is too
//     long, contains a traversal segment before canonicalization, does
//     not resolve, or resolves outside the allowed roots
func ValidatePath(path string, extraRoots []string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	if strings.ContainsRune(trimmed, 0) {
		return "", fmt.Errorf("%w: path contains null bytes", ErrInvalidPath)
	}

	if len(trimmed) > MaxPathLength {
		return "", fmt.Errorf("%w: path too long (max %d characters)",
			ErrInvalidPath, MaxPathLength)
	}

	// Reject traversal segments before canonicalization so a crafted
	// path is never resolved at all.
	for _, seg := range strings.Split(filepath.ToSlash(trimmed), "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path traversal not allowed", ErrInvalidPath)
		}
	}

	abs, err := filepath.Abs(expandHome(trimmed))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: failed to canonicalize %s: %v",
			ErrInvalidPath, trimmed, err)
	}

	if !withinAllowedRoots(canonical, extraRoots) {
		return "", fmt.Errorf("%w: path outside of allowed directories: %s",
			ErrInvalidPath, canonical)
	}

	return canonical, nil
}

// withinAllowedRoots checks the canonical path against the user home
// subtree, the fixed system roots, and any explicitly configured roots.
func withinAllowedRoots(canonical string, extraRoots []string) bool {
	if homeDir, err := os.UserHomeDir(); err == nil {
		if resolved, rerr := filepath.EvalSymlinks(homeDir); rerr == nil {
			homeDir = resolved
		}
		if isUnder(canonical, homeDir) {
			return true
		}
	}

	for _, root := range systemRoots {
		if isUnder(canonical, root) {
			return true
		}
	}

	for _, root := range extraRoots {
		if root != "" && isUnder(canonical, root) {
			return true
		}
	}

	return false
}

// isUnder reports whether path is root or a descendant of root.
func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
