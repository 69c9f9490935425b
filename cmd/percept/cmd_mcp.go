package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run percept as an MCP (Model Context Protocol) server on stdio.

Exposes the percept_store, percept_query, percept_spread and
percept_stats tools plus a graph-stats resource. Intended to be
launched by an MCP client, not interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			g, _, err := openGraph(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "percept",
				Version: version,
				Root:    root,
			}, g)
			if err != nil {
				// NewServer closes the graph on failure.
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(context.Background())
		},
	}

	return cmd
}
