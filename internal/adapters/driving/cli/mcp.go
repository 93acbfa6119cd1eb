package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant
integration. The server communicates over stdio using JSON-RPC.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docpilot": {
        "command": "/path/to/docpilot",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	server, err := mcp.NewServer(&mcp.Ports{
		Search:    searchService,
		Documents: documentService,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	return server.Run(ctx)
}
