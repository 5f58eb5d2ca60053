package fileops

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ValidateRelPath checks that a caller-supplied path is a safe relative path
// within some root. It rejects empty paths, absolute paths, and any path that
// still escapes upward after cleaning.
//
// The check is fail-closed: anything ambiguous is an error.
func ValidateRelPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	slashed := toSlash(p)

	if path.IsAbs(slashed) || filepath.IsAbs(p) {
		return fmt.Errorf("path must be relative: %q", p)
	}

	// Windows drive-letter or UNC forms are absolute even if the check
	// above misses them on a non-Windows host.
	if strings.Contains(slashed, ":") || strings.HasPrefix(slashed, "//") {
		return fmt.Errorf("path must be relative: %q", p)
	}

	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path traversal not allowed: %q", p)
	}
	if clean == "." {
		return fmt.Errorf("path must name a file: %q", p)
	}

	return nil
}

// NormalizeRelPath validates p and returns its canonical slash-separated
// form relative to the root.
func NormalizeRelPath(p string) (string, error) {
	if err := ValidateRelPath(p); err != nil {
		return "", err
	}
	return path.Clean(toSlash(p)), nil
}

// toSlash converts both separator conventions to forward slashes, regardless
// of host platform. Callers supply platform-independent relative paths, so a
// backslash is always treated as a separator rather than a filename byte.
func toSlash(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}
