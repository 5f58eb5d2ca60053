package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GuideURI is the fixed logical identifier of the usage-guide resource.
const GuideURI = "llm-guide://system/llm-guide.md"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(
			GuideURI,
			"LLM Usage Guide",
			mcp.WithResourceDescription("Instructions for LLMs on how to use the knowledge management system"),
			mcp.WithMIMEType("text/markdown"),
		),
		s.handleGuideResource,
	)
}

// handleGuideResource resolves the guide resource. An absent guide is
// created lazily on first access; an existing one is returned as-is. The
// body is prefixed with the guide's metadata re-serialized as a front-matter
// header.
func (s *Server) handleGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if req.Params.URI != GuideURI {
		return nil, fmt.Errorf("unknown resource: %s", req.Params.URI)
	}

	if err := s.store.EnsureGuide(); err != nil {
		return nil, fmt.Errorf("cannot materialize guide: %w", err)
	}

	doc, err := s.store.Read(s.store.GuidePath())
	if err != nil {
		return nil, fmt.Errorf("cannot read guide: %w", err)
	}

	rendered, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("cannot render guide: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     string(rendered),
		},
	}, nil
}
