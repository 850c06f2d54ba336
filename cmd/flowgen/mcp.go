package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes compile_flow, render_graph and validate_flow as MCP tools, and the
tool library as the flowgen://tools resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs always go to stderr, so they never corrupt JSON-RPC on stdout.
		env, err := cli.NewEnv(optionsFromFlags(cmd))
		exitOnError("Error initializing flowgen", err)

		srv := mcp.NewServer(env.Generator, env.Library, env.Logger)

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			env.Logger.Info("Starting flowgen MCP Server (Stdio)")
			exitOnError("MCP Server execution failed", srv.ServeStdio())
		case "sse":
			env.Logger.Info("Starting flowgen MCP Server (SSE)", "port", port)
			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()
			exitOnError("MCP Server execution failed", srv.ServeSSE(sigCtx, port))
			env.Logger.Info("MCP Server stopped gracefully")
		default:
			exitOnError("Unknown transport", fmt.Errorf("%q, supported: stdio, sse", transport))
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
