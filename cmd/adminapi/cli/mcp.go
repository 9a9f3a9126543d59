package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/config"
	amcp "github.com/shoplist/adminapi/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes API key management,
usage history and the endpoint catalogue as tools. Supports stdio (default) and
HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for clients that launch it as a subprocess.

In HTTP mode, the server listens on the specified port.`,
		Example: `  adminapi mcp                              # stdio mode
  adminapi mcp --transport http --port 3001  # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, cmd.Flags().Changed("transport"), cmd.Flags().Changed("port"))
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int, transportSet, portSet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !transportSet && cfg.MCP.Transport != "" {
		transport = cfg.MCP.Transport
	}
	if !portSet && cfg.MCP.Port != 0 {
		port = cfg.MCP.Port
	}

	// stdout carries the protocol in stdio mode; logs go to stderr.
	logger := newLogger(os.Stderr, cfg.Logging, false)

	store, err := config.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	mcpSrv := amcp.NewMCPServer(store, versionString(), logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
