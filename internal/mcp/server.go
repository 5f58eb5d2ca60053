package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mdkb/internal/logging"
	"mdkb/internal/store"
)

// Version is the MCP server version reported during initialization.
const Version = "1.0.0"

// Options tune the server's error posture.
type Options struct {
	// Strict makes tool failures surface as protocol-level errors instead
	// of textual error results.
	Strict bool
}

// Server wires the document store into an MCP server instance.
type Server struct {
	logger     *logging.AppLogger
	store      *store.Store
	dispatcher *Dispatcher
	mcpServer  *server.MCPServer
	strict     bool
}

// NewServer creates an MCP server exposing the store's operations and the
// usage-guide resource.
func NewServer(st *store.Store, logger *logging.AppLogger, opts Options) *Server {
	s := &Server{
		logger:     logger,
		store:      st,
		dispatcher: NewDispatcher(st, logger),
		strict:     opts.Strict,
		mcpServer: server.NewMCPServer(
			"markdown-knowledge-base",
			Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, true),
			server.WithRecovery(),
		),
	}

	s.registerTools()
	s.registerResources()

	return s
}

// Start serves the MCP protocol over stdio. It blocks until the client
// disconnects.
func (s *Server) Start() error {
	s.logger.Info("Starting MCP server on stdio", "root", s.store.RootDir())
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// StartHTTP serves the MCP protocol over streamable HTTP on addr. It blocks
// until the context is cancelled or the listener fails.
func (s *Server) StartHTTP(ctx context.Context, addr string) error {
	s.logger.Info("Starting MCP server on HTTP", "addr", addr, "root", s.store.RootDir())

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	go func() {
		<-ctx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Warn("HTTP shutdown", "error", err)
		}
	}()

	err := httpServer.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP HTTP server failed: %w", err)
	}
	return nil
}

// registerTools registers every operation from the dispatch table, in table
// order, deriving each tool's input schema from the declared arguments.
func (s *Server) registerTools() {
	for _, op := range opOrder {
		spec := ops[op]

		toolOpts := []mcp.ToolOption{
			mcp.WithDescription(spec.description),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{
				ReadOnlyHint:    mcp.ToBoolPtr(spec.readOnly),
				DestructiveHint: mcp.ToBoolPtr(spec.destructive),
				IdempotentHint:  mcp.ToBoolPtr(spec.idempotent),
			}),
		}

		for _, def := range spec.args {
			var propOpts []mcp.PropertyOption
			propOpts = append(propOpts, mcp.Description(def.desc))
			if def.required {
				propOpts = append(propOpts, mcp.Required())
			}

			switch def.typ {
			case argString:
				toolOpts = append(toolOpts, mcp.WithString(def.name, propOpts...))
			case argObject:
				toolOpts = append(toolOpts, mcp.WithObject(def.name, propOpts...))
			}
		}

		s.mcpServer.AddTool(mcp.NewTool(spec.name, toolOpts...), s.handleTool)
	}
}

// handleTool adapts the dispatcher to the mcp-go handler contract and applies
// the configured error posture: failures become error-flagged text results
// carrying the failure message only, or typed errors in strict mode.
func (s *Server) handleTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name

	text, err := s.dispatcher.Dispatch(name, req.GetArguments())
	if err != nil {
		s.logger.Error("Tool execution failed", "tool", name, "error", err)
		if s.strict {
			return nil, err
		}
		return mcp.NewToolResultError(fmt.Sprintf("Error executing tool '%s': %v", name, err)), nil
	}

	return mcp.NewToolResultText(text), nil
}
