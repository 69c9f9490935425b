package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/logging"
	"github.com/nvandessel/percept/internal/models"
	"github.com/nvandessel/percept/internal/training"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the graph from a YAML dataset",
		Long: `Create one perception per dataset item, strictly in file order.
The first hard error (duplicate ID, empty embedding) aborts the run.
Relations whose target appears later in the file are resolved in a
backfill pass after all items are created.

Example:
  percept train --data animals.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ds, err := models.LoadDataset(dataPath)
			if err != nil {
				return err
			}

			g, cfg, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			harness := training.NewHarness(g, logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))
			ctx := context.Background()

			report, err := harness.Train(ctx, ds.Items)
			if err != nil {
				return fmt.Errorf("training aborted after %d item(s): %w", report.Trained, err)
			}

			stillMissing, err := harness.Backfill(ctx, ds.Items, report)
			if err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}

			if err := g.Sync(ctx); err != nil {
				return fmt.Errorf("failed to sync store: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":     "trained",
					"trained":    report.Trained,
					"unresolved": stillMissing,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Trained %d perception(s) from %s\n", report.Trained, dataPath)
				if len(stillMissing) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Unresolved relation targets: %s\n",
						strings.Join(stillMissing, ", "))
				}
			}

			return nil
		},
	}

	cmd.Flags().String("data", "", "Path to a YAML dataset file (required)")
	cmd.MarkFlagRequired("data")

	return cmd
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate retrieval accuracy against a YAML dataset",
		Long: `Run each dataset query and score it 1.0 when the top-ranked match is
one of its expected IDs, 0.0 otherwise. Prints the mean accuracy.

Evaluation queries go through the normal retrieval path, so matched
perceptions have their activation counts incremented.

Example:
  percept eval --data animals.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataPath, _ := cmd.Flags().GetString("data")
			jsonOut, _ := cmd.Flags().GetBool("json")

			ds, err := models.LoadDataset(dataPath)
			if err != nil {
				return err
			}

			g, cfg, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			harness := training.NewHarness(g, logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))
			harness.Threshold = cfg.Query.Threshold
			harness.Limit = cfg.Query.Limit

			ctx := context.Background()
			report, err := harness.Evaluate(ctx, ds.Queries)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			if err := g.Sync(ctx); err != nil {
				return fmt.Errorf("failed to sync store: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			} else {
				printEvalReport(cmd, report)
			}

			return nil
		},
	}

	cmd.Flags().String("data", "", "Path to a YAML dataset file (required)")
	cmd.MarkFlagRequired("data")

	return cmd
}

func printEvalReport(cmd *cobra.Command, report *training.EvalReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "Evaluation (%d queries):\n", len(report.Queries))
	for _, q := range report.Queries {
		top := q.TopID
		if top == "" {
			top = "(no match)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-16s top=%-16s accuracy=%.1f\n", q.Name, top, q.Accuracy)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Mean accuracy: %.4f\n", report.Accuracy)
}
