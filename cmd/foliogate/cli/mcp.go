package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	fmcp "github.com/faucetdb/foliogate/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for reviewing access requests",
		Long: `Start a Model Context Protocol (MCP) server that exposes the local access
requests and tokens as tools: list, approve and reject requests, list and
revoke tokens, and purge expired ones.

In stdio mode the server speaks JSON-RPC over stdin/stdout, suitable for
desktop MCP clients. In HTTP mode it listens on --port.`,
		Example: `  foliogate mcp                              # stdio mode
  foliogate mcp --transport http --port 3001 # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	projects := func() []fmcp.ProjectInfo {
		list := a.catalog.List()
		out := make([]fmcp.ProjectInfo, len(list))
		for i, p := range list {
			out[i] = fmcp.ProjectInfo{Slug: p.Slug, Title: p.Title, Protected: p.Protected}
		}
		return out
	}
	srv := fmcp.NewMCPServer(a.approval, a.access, a.catalog, projects,
		fmcp.Options{SiteURL: a.cfg.Site.URL, Version: versionString()}, a.logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		a.logger.Info("starting MCP HTTP server", "addr", addr)
		return srv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
