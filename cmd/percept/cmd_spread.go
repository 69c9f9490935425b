package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSpreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spread <seed-id> [seed-id...]",
		Short: "Run spreading activation from seed perceptions",
		Long: `Propagate activation energy from seed perceptions across weighted
relations. Each hop decays the energy and splits it over outgoing
relations; results are ranked by final activation.

Example:
  percept spread visual_cat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, _, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			results, err := g.Spread(context.Background(), args)
			if err != nil {
				return fmt.Errorf("spread failed: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"results": results,
					"count":   len(results),
				})
			} else {
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No perceptions activated.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Activated perceptions (%d):\n", len(results))
				for i, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (activation %.4f, distance %d)\n",
						i+1, r.PerceptionID, r.Activation, r.Distance)
				}
			}

			return nil
		},
	}

	return cmd
}
