package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show perception graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, _, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			stats, err := g.Stats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Perception graph:")
				fmt.Fprintf(cmd.OutOrStdout(), "  Perceptions:     %d\n", stats.Nodes)
				fmt.Fprintf(cmd.OutOrStdout(), "  Relations:       %d\n", stats.Edges)
				fmt.Fprintf(cmd.OutOrStdout(), "  Mean activation: %.2f\n", stats.MeanActivation)
			}

			return nil
		},
	}

	return cmd
}
