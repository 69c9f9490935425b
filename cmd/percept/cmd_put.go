package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <id>",
		Short: "Store a new perception",
		Long: `Store a perception with an embedding vector and optional relations.

The embedding comes from --vector (comma-separated floats) or --text
(requires a local embedding model; see 'percept setup'). Relations point
at existing perceptions; targets that do not exist yet are skipped and
reported.

Examples:
  percept put visual_cat --vector "0.8,0.2,0.9"
  percept put visual_cat --vector "0.8,0.2,0.9" --relate visual_animal:0.9
  percept put note_42 --text "cats are animals"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			vectorStr, _ := cmd.Flags().GetString("vector")
			text, _ := cmd.Flags().GetString("text")
			relateSpecs, _ := cmd.Flags().GetStringArray("relate")
			jsonOut, _ := cmd.Flags().GetBool("json")

			relations, err := parseRelations(relateSpecs)
			if err != nil {
				return err
			}

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

			unresolved, err := g.CreatePerception(ctx, id, embedding, relations)
			if err != nil {
				return fmt.Errorf("failed to store perception: %w", err)
			}

			if err := g.Sync(ctx); err != nil {
				return fmt.Errorf("failed to sync store: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":     "stored",
					"id":         id,
					"dim":        len(embedding),
					"relations":  len(relations) - len(unresolved),
					"unresolved": unresolved,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Stored perception %s (%d dimensions)\n", id, len(embedding))
				if len(relations) > len(unresolved) {
					fmt.Fprintf(cmd.OutOrStdout(), "Relations: %d\n", len(relations)-len(unresolved))
				}
				if len(unresolved) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped relations to unknown perceptions: %s\n",
						strings.Join(unresolved, ", "))
				}
			}

			return nil
		},
	}

	cmd.Flags().String("vector", "", "Embedding vector as comma-separated floats")
	cmd.Flags().String("text", "", "Text to embed with the local model")
	cmd.Flags().StringArray("relate", nil, "Relation as target:weight (repeatable)")

	return cmd
}
