package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find perceptions similar to a query embedding",
		Long: `Rank stored perceptions by raw dot product against a query embedding.

Only perceptions strictly above the threshold are returned, best first,
up to the limit. Every returned perception has its activation count
incremented: retrieval strengthens the memory.

Examples:
  percept query --vector "0.75,0.25,0.85"
  percept query --vector "0.75,0.25,0.85" --threshold 1.0 --limit 3
  percept query --text "a small cat"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vectorStr, _ := cmd.Flags().GetString("vector")
			text, _ := cmd.Flags().GetString("text")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, cfg, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			ctx := context.Background()
			embedding, err := resolveEmbedding(ctx, cfg, vectorStr, text)
			if err != nil {
				return err
			}

			// Flag not set: fall back to configured defaults.
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Query.Threshold
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Query.Limit
			}

			matches, err := g.QuerySimilar(ctx, embedding, threshold, limit)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if err := g.Sync(ctx); err != nil {
				return fmt.Errorf("failed to sync store: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"matches": matches,
					"count":   len(matches),
				})
			} else {
				if len(matches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No perceptions above threshold.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Matches (%d):\n", len(matches))
				for i, m := range matches {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (similarity %.4f)\n", i+1, m.ID, m.Similarity)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("vector", "", "Query vector as comma-separated floats")
	cmd.Flags().String("text", "", "Text to embed with the local model")
	cmd.Flags().Float64("threshold", 0, "Minimum similarity (exclusive)")
	cmd.Flags().Int("limit", 0, "Maximum number of matches")

	return cmd
}
