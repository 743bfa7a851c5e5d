package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validation errors for path checks.
var (
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidPath indicates a path that cannot name a regular file.
	ErrInvalidPath = errors.New("invalid path")
)

// ValidatePath checks an export or import destination and returns the
// cleaned absolute path.
//
// Export and import accept arbitrary caller-supplied locations, so only
// structurally unusable paths are rejected: empty input, embedded NUL bytes,
// and paths that resolve to a directory root.
func ValidatePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	base := filepath.Base(absPath)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q has no file name", ErrInvalidPath, path)
	}

	return absPath, nil
}

// LockPath returns the companion lock file for a data file: the data path
// with its extension replaced by ".lock". A path that already ends in ".lock"
// gets a second suffix so the lock never names the data file itself.
func LockPath(path string) string {
	if filepath.Ext(path) == ".lock" {
		return path + ".lock"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".lock"
}
