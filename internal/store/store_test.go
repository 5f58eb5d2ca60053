package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdkb/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	s, err := New(t.TempDir(), "system", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestNewCreatesSystemDirectory(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	dir := filepath.Join(t.TempDir(), "kb")

	s, err := New(dir, "system", logger)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(filepath.Join(dir, "system"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsBadSystemDir(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	_, err := New(t.TempDir(), "../outside", logger)
	assert.Error(t, err)
}

func TestCreateReadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rel, err := s.Create("notes/a.md", "Hello", map[string]any{"tag": "x"})
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", rel)

	doc, err := s.Read("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Body)
	assert.Equal(t, "x", doc.Metadata["tag"])
	assert.Equal(t, "notes/a.md", doc.Path)
}

func TestCreateNormalizesPath(t *testing.T) {
	s := newTestStore(t)

	rel, err := s.Create("notes//sub/../a.md", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, "notes/a.md", rel)
}

func TestCreateOverwritesExisting(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "first", map[string]any{"v": 1})
	require.NoError(t, err)
	_, err = s.Create("a.md", "second", nil)
	require.NoError(t, err)

	doc, err := s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Body)
	// Overwrite replaces the whole file, metadata included.
	assert.Empty(t, doc.Metadata)
}

func TestPathEscapeRejected(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []string{"../escape.md", "/etc/passwd", "a/../../b.md", ""} {
		_, err := s.Create(p, "x", nil)
		assert.Error(t, err, "create %q", p)

		var pathErr *PathError
		if p != "" {
			assert.ErrorAs(t, err, &pathErr, "create %q should fail path validation", p)
		}

		_, err = s.Read(p)
		assert.Error(t, err, "read %q", p)
	}
}

func TestReadNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read("missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBodyReplacesAndPreservesMetadata(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("notes/a.md", "Hello", map[string]any{"tag": "x"})
	require.NoError(t, err)

	_, err = s.Update("notes/a.md", strPtr("Hello world"), nil)
	require.NoError(t, err)

	doc, err := s.Read("notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", doc.Body)
	assert.Equal(t, "x", doc.Metadata["tag"])
}

func TestUpdateMetadataMerges(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "body", map[string]any{"keep": "yes", "change": "old"})
	require.NoError(t, err)

	_, err = s.Update("a.md", nil, map[string]any{"change": "new", "added": true})
	require.NoError(t, err)

	doc, err := s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Body)
	assert.Equal(t, "yes", doc.Metadata["keep"])
	assert.Equal(t, "new", doc.Metadata["change"])
	assert.Equal(t, true, doc.Metadata["added"])
}

func TestUpdateNothingIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "body", map[string]any{"k": "v"})
	require.NoError(t, err)

	_, err = s.Update("a.md", nil, nil)
	require.NoError(t, err)

	doc, err := s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Body)
	assert.Equal(t, "v", doc.Metadata["k"])
}

func TestUpdateMissingFails(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update("missing.md", strPtr("x"), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	// No implicit create-on-update.
	_, err = s.Read("missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReturnsFalseWhenAbsent(t *testing.T) {
	s := newTestStore(t)

	deleted, err := s.Delete("missing.md")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteRemovesFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("notes/a.md", "Hello", nil)
	require.NoError(t, err)

	deleted, err := s.Delete("notes/a.md")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete("notes/a.md")
	require.NoError(t, err)
	assert.False(t, deleted)

	files, err := s.List("")
	require.NoError(t, err)
	assert.NotContains(t, files, "notes/a.md")
}

func TestDeleteRefusesDirectory(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("notes/a.md", "x", nil)
	require.NoError(t, err)

	_, err = s.Delete("notes")
	assert.Error(t, err)
}

func TestListSortedAndComplete(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []string{"z.md", "a.md", "notes/b.md", "notes/deep/c.md"} {
		_, err := s.Create(p, "x", nil)
		require.NoError(t, err)
	}
	// Non-markdown files are excluded by the default pattern.
	_, err := s.Create("notes/data.txt", "x", nil)
	require.NoError(t, err)

	files, err := s.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "notes/b.md", "notes/deep/c.md", "z.md"}, files)
}

func TestListCustomPatterns(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []string{"a.md", "notes/b.md", "notes/report.txt"} {
		_, err := s.Create(p, "x", nil)
		require.NoError(t, err)
	}

	txt, err := s.List("*.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/report.txt"}, txt)

	scoped, err := s.List("notes/*.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/b.md"}, scoped)

	all, err := s.List("**/*.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "notes/b.md"}, all)

	_, err = s.List("[bad")
	assert.Error(t, err)
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "some text with a needle inside", nil)
	require.NoError(t, err)
	_, err = s.Create("b.md", "nothing relevant here", nil)
	require.NoError(t, err)

	for _, q := range []string{"needle", "NEEDLE"} {
		results, err := s.Search(q)
		require.NoError(t, err)
		require.Len(t, results, 1, "query %q", q)
		assert.Equal(t, "a.md", results[0].Path)
		assert.Contains(t, strings.ToLower(results[0].Preview), "needle")
	}
}

func TestSearchMatchesMetadataBlock(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "plain body", map[string]any{"topic": "quantum"})
	require.NoError(t, err)

	results, err := s.Search("quantum")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].Path)
}

func TestSearchNoMatches(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "content", nil)
	require.NoError(t, err)

	results, err := s.Search("absent")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchPreviewEllipses(t *testing.T) {
	long := strings.Repeat("x", 300) + "needle" + strings.Repeat("y", 300)

	preview := matchPreview(long, "needle", 100)
	assert.True(t, strings.HasPrefix(preview, "..."))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Contains(t, preview, "needle")
	assert.Len(t, preview, 3+100+len("needle")+100+3)

	// Match at the very start: no leading ellipsis.
	preview = matchPreview("needle"+strings.Repeat("y", 300), "needle", 100)
	assert.False(t, strings.HasPrefix(preview, "..."))
	assert.True(t, strings.HasSuffix(preview, "..."))

	// Short content: no ellipses at all.
	preview = matchPreview("a needle b", "needle", 100)
	assert.Equal(t, "a needle b", preview)

	// Only the first occurrence is previewed.
	preview = matchPreview("needle and needle", "needle", 2)
	assert.Equal(t, "needle a...", preview)
}

func TestMatchPreviewMultibyteContext(t *testing.T) {
	// Context is counted in runes; the slice must never split a multibyte
	// sequence.
	long := strings.Repeat("☃", 200) + "needle" + strings.Repeat("☃", 200)

	preview := matchPreview(long, "needle", 100)
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, "..."+strings.Repeat("☃", 100)+"needle"+strings.Repeat("☃", 100)+"...", preview)

	// Mixed-width context: still valid UTF-8 and 3 runes per side.
	preview = matchPreview("aé☃needle☃éa", "needle", 3)
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, "aé☃needle☃éa", preview)
}

func TestConcurrentWritesToSamePath(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("a.md", "init", map[string]any{"n": 0})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update("a.md", strPtr("body"), map[string]any{"n": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Last writer wins, but the file is never torn.
	doc, err := s.Read("a.md")
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Body)
	assert.Contains(t, doc.Metadata, "n")
}
