package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		metadata map[string]any
	}{
		{"body and metadata", "Hello world\n", map[string]any{"tag": "x", "count": 3}},
		{"body only", "Just text, no front-matter.\n", nil},
		{"empty body with metadata", "", map[string]any{"title": "Empty"}},
		{"multiline body", "line one\n\nline three\n", map[string]any{"a": "b"}},
		{"body containing delimiter text", "not front-matter:\n---\nstill body\n", map[string]any{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Body: tt.body, Metadata: tt.metadata}
			data, err := doc.Encode()
			require.NoError(t, err)

			body, metadata, err := DecodeDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.body, body)
			for k, v := range tt.metadata {
				assert.Contains(t, metadata, k)
				assert.EqualValues(t, v, metadata[k])
			}
		})
	}
}

func TestEncodeOmitsEmptyBlock(t *testing.T) {
	doc := &Document{Body: "plain body"}
	data, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, "plain body", string(data))

	doc.Metadata = map[string]any{}
	data, err = doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, "plain body", string(data))
}

func TestDecodeWithoutFrontmatter(t *testing.T) {
	body, metadata, err := DecodeDocument([]byte("\nleading newline kept\n"))
	require.NoError(t, err)
	assert.Equal(t, "\nleading newline kept\n", body)
	assert.Empty(t, metadata)
}

func TestDecodeMalformedFrontmatter(t *testing.T) {
	_, _, err := DecodeDocument([]byte("---\n: not yaml: [\n---\n\nbody"))
	assert.Error(t, err)
}
