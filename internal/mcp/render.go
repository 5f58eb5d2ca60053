package mcp

import (
	"fmt"
	"sort"
	"strings"

	"mdkb/internal/store"
)

// Rendering is the last step of every operation: structured results in,
// human-readable text out. Nothing here classifies errors or touches the
// store.

func renderCreated(path string) string {
	return fmt.Sprintf("Created file: %s", path)
}

func renderUpdated(path string) string {
	return fmt.Sprintf("Updated file: %s", path)
}

func renderDeleted(path string, deleted bool) string {
	if deleted {
		return fmt.Sprintf("Deleted file: %s", path)
	}
	return fmt.Sprintf("File not found: %s", path)
}

func renderDocument(doc *store.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Path)
	if len(doc.Metadata) > 0 {
		b.WriteString("**Metadata:**\n")
		b.WriteString(renderMetadata(doc.Metadata))
		b.WriteString("\n")
	}
	b.WriteString(doc.Body)
	return b.String()
}

func renderMetadata(metadata map[string]any) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, metadata[k])
	}
	return b.String()
}

func renderFileList(files []string) string {
	return fmt.Sprintf("Found %d files:\n%s", len(files), strings.Join(files, "\n"))
}

func renderSearchResults(results []store.SearchResult) string {
	if len(results) == 0 {
		return "No matches found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches:\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "**%s**\n%s\n\n", r.Path, r.Preview)
	}
	return b.String()
}
