package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"podstudio/internal/services"
)

// EnsureWithin resolves candidate to its canonical absolute form and verifies
// it is a descendant of base. Every disk read, write, or delete the engine
// performs must pass its path through here first. The returned path is the
// canonical one and should be used for the subsequent operation.
//
// Symlinks are resolved for the portions of both paths that exist, so a link
// pointing outside base is rejected even when the final component does not
// exist yet.
func EnsureWithin(base, candidate string) (string, error) {
	canonicalBase, err := canonicalize(base)
	if err != nil {
		return "", fmt.Errorf("resolve base %s: %w", base, err)
	}
	canonicalCandidate, err := canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve candidate %s: %w", candidate, err)
	}

	rel, err := filepath.Rel(canonicalBase, canonicalCandidate)
	if err != nil {
		return "", services.Wrap(services.ErrPathEscape, "fileutil", "ensure-within", candidate, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrPathEscape, "fileutil", "ensure-within",
			fmt.Sprintf("%s resolves outside %s", candidate, base), nil)
	}
	return canonicalCandidate, nil
}

// canonicalize returns the absolute, symlink-resolved form of path. When the
// path does not fully exist, the longest existing ancestor is resolved and the
// remaining components are appended lexically.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	existing := abs
	var suffix []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			if len(suffix) == 0 {
				return resolved, nil
			}
			parts := append([]string{resolved}, suffix...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		suffix = append([]string{filepath.Base(existing)}, suffix...)
		existing = parent
	}
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// NonEmptyFile reports whether path exists and has a size greater than zero.
func NonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
