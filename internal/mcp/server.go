package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shoplist/adminapi/internal/config"
)

// MCPServer wraps the mcp-go server with the admin tools and resources. It
// lets an operator's agent inspect API keys, their usage, and the endpoint
// catalogue without going through the HTTP gate.
type MCPServer struct {
	store   *config.Store
	version string
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all admin tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(store *config.Store, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:   store,
		version: version,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"Shopping List Admin API",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func destructiveAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
