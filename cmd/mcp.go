package cmd

import (
	"github.com/huangsam/fluentgate/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the fluentgate MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents score transcripts, evaluate
promotion gates and submit interactive practice results via standard tools.`,
	// Logs go to stderr, so stdio stays clean for the protocol.
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, mcpServices())
	},
}
