// Package store implements the file-backed document store behind the mdkb
// server: create/read/update/delete/list/search over a directory of markdown
// files with YAML front-matter.
//
// All operations work against the live filesystem; there is no cache or
// index. The root directory is opened with os.OpenRoot, so every access is
// confined to the knowledge base even if path validation were bypassed.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"mdkb/internal/logging"
	"mdkb/pkg/fileops"
)

// DefaultListPattern is the glob applied by List when none is given.
const DefaultListPattern = "*.md"

// previewContext is the number of characters kept on each side of a search
// match in its preview.
const previewContext = 100

// Store is a knowledge base rooted at a single directory. It is safe for
// concurrent use; operations on the same path are serialized.
type Store struct {
	rootDir   string
	systemDir string
	root      *os.Root
	logger    *logging.AppLogger
	locks     *pathLocks
}

// New opens (creating if needed) the knowledge base at rootDir and ensures
// the system subdirectory exists. Construction failures are fatal to the
// caller; every later failure is per-operation.
func New(rootDir, systemDir string, logger *logging.AppLogger) (*Store, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create root directory: %w", err)
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("cannot open root directory: %w", err)
	}

	s := &Store{
		rootDir:   rootDir,
		systemDir: systemDir,
		root:      root,
		logger:    logger,
		locks:     newPathLocks(),
	}

	if _, err := fileops.NormalizeRelPath(systemDir); err != nil {
		root.Close()
		return nil, fmt.Errorf("invalid system directory: %w", err)
	}
	if err := s.mkdirAll(systemDir); err != nil {
		root.Close()
		return nil, fmt.Errorf("cannot create system directory: %w", err)
	}

	logger.Debug("Store opened", "root", rootDir, "system", systemDir)
	return s, nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

// RootDir returns the knowledge-base root directory.
func (s *Store) RootDir() string { return s.rootDir }

// normalize validates p and returns its canonical relative form. Anything
// that would resolve outside the root is rejected here, before any
// filesystem access.
func (s *Store) normalize(p string) (string, error) {
	rel, err := fileops.NormalizeRelPath(p)
	if err != nil {
		return "", &PathError{Path: p, Reason: err}
	}
	return rel, nil
}

// mkdirAll creates dir and its parents inside the root. os.Root has no
// MkdirAll in this Go version, so walk the segments.
func (s *Store) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	var cur string
	for _, seg := range strings.Split(dir, "/") {
		cur = path.Join(cur, seg)
		if err := s.root.Mkdir(cur, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// Create writes a new document, creating parent directories as needed. An
// existing file at the same path is overwritten; this mirrors the tool
// contract, where create doubles as "write". Returns the canonical relative
// path.
func (s *Store) Create(p, body string, metadata map[string]any) (string, error) {
	rel, err := s.normalize(p)
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(rel)
	defer unlock()

	if err := s.write(rel, body, metadata); err != nil {
		return "", err
	}

	s.logger.Debug("Created file", "path", rel)
	return rel, nil
}

// Read returns the document at p, or ErrNotFound.
func (s *Store) Read(p string) (*Document, error) {
	rel, err := s.normalize(p)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(rel)
	defer unlock()

	return s.read(rel)
}

// Update rewrites an existing document. A non-nil body replaces the body
// wholesale; metadata keys are merged into the existing map, overwriting
// matches and preserving everything else. With neither supplied the file is
// re-serialized unchanged. Fails with ErrNotFound when the target is absent;
// update never creates.
func (s *Store) Update(p string, body *string, metadata map[string]any) (string, error) {
	rel, err := s.normalize(p)
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(rel)
	defer unlock()

	doc, err := s.read(rel)
	if err != nil {
		return "", err
	}

	if body != nil {
		doc.Body = *body
	}
	for k, v := range metadata {
		doc.Metadata[k] = v
	}

	if err := s.write(rel, doc.Body, doc.Metadata); err != nil {
		return "", err
	}

	s.logger.Debug("Updated file", "path", rel)
	return rel, nil
}

// Delete removes the document at p. Returns false without error when the
// target does not exist. Directories are never removed.
func (s *Store) Delete(p string) (bool, error) {
	rel, err := s.normalize(p)
	if err != nil {
		return false, err
	}

	unlock := s.locks.lock(rel)
	defer unlock()

	info, err := s.root.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("cannot stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory, not a file", rel)
	}

	if err := s.root.Remove(rel); err != nil {
		return false, fmt.Errorf("cannot delete %s: %w", rel, err)
	}

	s.logger.Debug("Deleted file", "path", rel)
	return true, nil
}

// List returns the relative paths of all regular files under the root
// matching pattern (default "*.md"), lexicographically sorted. The pattern
// is matched against the base name, or against the whole relative path when
// it contains a separator (so "notes/*.md" and "**/*.md" work too).
func (s *Store) List(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultListPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid list pattern: %q", pattern)
	}

	matchWholePath := strings.Contains(pattern, "/")

	files := []string{}
	err := fs.WalkDir(s.root.FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		target := path.Base(p)
		if matchWholePath {
			target = p
		}
		if ok, _ := doublestar.Match(pattern, target); ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Search scans every markdown file for a case-insensitive substring match
// and returns one result per matching file, with a preview built around the
// first occurrence. Files that cannot be read or decoded are skipped
// silently. Results are in sorted path order.
func (s *Store) Search(query string) ([]SearchResult, error) {
	paths, err := s.List(DefaultListPattern)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	results := []SearchResult{}

	for _, p := range paths {
		content, err := s.readRaw(p)
		if err != nil {
			s.logger.Debug("Skipping unreadable file in search", "path", p, "error", err)
			continue
		}
		if !utf8.Valid(content) {
			s.logger.Debug("Skipping undecodable file in search", "path", p)
			continue
		}

		text := string(content)
		if strings.Contains(strings.ToLower(text), queryLower) {
			results = append(results, SearchResult{
				Path:    p,
				Preview: matchPreview(text, query, previewContext),
			})
		}
	}

	return results, nil
}

// matchPreview extracts the first match with contextChars characters of
// context on each side, marking truncated edges with ellipses. Context is
// measured in runes, so the slice never lands inside a multibyte sequence.
func matchPreview(content, query string, contextChars int) string {
	index := strings.Index(strings.ToLower(content), strings.ToLower(query))
	if index == -1 {
		return ""
	}

	start := index
	for i := 0; i < contextChars && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}
	end := index + len(query)
	for i := 0; i < contextChars && end < len(content); i++ {
		_, size := utf8.DecodeRuneInString(content[end:])
		end += size
	}

	preview := content[start:end]
	if start > 0 {
		preview = "..." + preview
	}
	if end < len(content) {
		preview = preview + "..."
	}
	return preview
}

// read loads and decodes a document. Callers hold the path lock.
func (s *Store) read(rel string) (*Document, error) {
	content, err := s.readRaw(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(rel)
		}
		return nil, fmt.Errorf("cannot read %s: %w", rel, err)
	}

	body, metadata, err := DecodeDocument(content)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", rel, err)
	}

	return &Document{Path: rel, Body: body, Metadata: metadata}, nil
}

func (s *Store) readRaw(rel string) ([]byte, error) {
	f, err := s.root.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// write serializes and stores a document. Callers hold the path lock.
func (s *Store) write(rel, body string, metadata map[string]any) error {
	if dir := path.Dir(rel); dir != "." {
		if err := s.mkdirAll(dir); err != nil {
			return fmt.Errorf("cannot create parent directory for %s: %w", rel, err)
		}
	}

	doc := &Document{Path: rel, Body: body, Metadata: metadata}
	data, err := doc.Encode()
	if err != nil {
		return err
	}

	f, err := s.root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("cannot write %s: %w", rel, err)
	}
	return nil
}
