package store

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Document is a markdown file in the knowledge base: a free-text body plus a
// YAML front-matter metadata map. Path is relative to the root, with forward
// slashes.
type Document struct {
	Path     string
	Body     string
	Metadata map[string]any
}

// SearchResult is an ephemeral match produced by Search: the matching file
// and a bounded preview around the first occurrence.
type SearchResult struct {
	Path    string
	Preview string
}

// DecodeDocument parses raw file content into metadata and body. Content
// without a front-matter block decodes to an empty metadata map and the
// content unchanged.
func DecodeDocument(content []byte) (body string, metadata map[string]any, err error) {
	metadata = map[string]any{}
	rest, err := frontmatter.Parse(bytes.NewReader(content), &metadata)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse front-matter: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	body = string(rest)
	// Encode writes a blank line between the closing delimiter and the body;
	// strip it so the body round-trips byte for byte. Content without a
	// front-matter block is left untouched.
	if bytes.HasPrefix(content, []byte("---\n")) || bytes.HasPrefix(content, []byte("---\r\n")) {
		body = strings.TrimPrefix(body, "\r\n")
		body = strings.TrimPrefix(body, "\n")
	}
	return body, metadata, nil
}

// Encode serializes the document to its on-disk form: a YAML front-matter
// block, a blank line, then the body. An empty metadata map omits the block
// entirely.
func (d *Document) Encode() ([]byte, error) {
	if len(d.Metadata) == 0 {
		return []byte(d.Body), nil
	}

	meta, err := yaml.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(d.Body)
	return buf.Bytes(), nil
}
