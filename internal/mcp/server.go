package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/foliogate/internal/service"
)

// Options configures an MCPServer.
type Options struct {
	// SiteURL is the public portfolio address used to build access links.
	SiteURL string
	Version string
}

// MCPServer exposes the administrator side of the access flow as MCP tools:
// reviewing requests, approving or rejecting them and managing tokens.
type MCPServer struct {
	approval *service.ApprovalService
	access   *service.AccessService
	catalog  service.ProjectCatalog
	projects func() []ProjectInfo
	opts     Options
	logger   *slog.Logger
	server   *server.MCPServer
}

// ProjectInfo is one entry in the projects resource.
type ProjectInfo struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Protected bool   `json:"protected"`
}

// NewMCPServer creates an MCPServer with every tool and resource registered.
// projects lists the catalog for the projects resource and may be nil.
func NewMCPServer(approval *service.ApprovalService, access *service.AccessService, catalog service.ProjectCatalog, projects func() []ProjectInfo, opts Options, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	s := &MCPServer{
		approval: approval,
		access:   access,
		catalog:  catalog,
		projects: projects,
		opts:     opts,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Foliogate Access Admin",
		opts.Version,
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

// ServeStdio serves MCP over stdin and stdout for clients that launch the
// process themselves.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP serves MCP in Streamable HTTP mode on addr (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(false)}
}

func destructiveAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(false), DestructiveHint: boolPtr(true)}
}

func boolPtr(b bool) *bool {
	return &b
}
