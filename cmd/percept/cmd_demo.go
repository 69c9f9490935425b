package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/logging"
	"github.com/nvandessel/percept/internal/seed"
	"github.com/nvandessel/percept/internal/training"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Train and evaluate the built-in synthetic dataset",
		Long: `Seed the graph with three synthetic visual memories (cat, dog, animal),
evaluate the three probe queries, and print accuracy and graph statistics.

Run against a fresh store; the demo IDs conflict with themselves on a
second run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, cfg, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			harness := training.NewHarness(g, logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))
			ctx := context.Background()

			report, err := harness.Train(ctx, seed.TrainingItems())
			if err != nil {
				return fmt.Errorf("demo training failed: %w", err)
			}
			if _, err := harness.Backfill(ctx, seed.TrainingItems(), report); err != nil {
				return fmt.Errorf("demo backfill failed: %w", err)
			}

			evalReport, err := harness.Evaluate(ctx, seed.DemoQueries())
			if err != nil {
				return fmt.Errorf("demo evaluation failed: %w", err)
			}

			stats, err := g.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			if err := g.Sync(ctx); err != nil {
				return fmt.Errorf("failed to sync store: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"trained":  report.Trained,
					"eval":     evalReport,
					"nodes":    stats.Nodes,
					"edges":    stats.Edges,
					"mean_act": stats.MeanActivation,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Trained %d perception(s)\n\n", report.Trained)
				printEvalReport(cmd, evalReport)
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), "Graph statistics:")
				fmt.Fprintf(cmd.OutOrStdout(), "  Perceptions:     %d\n", stats.Nodes)
				fmt.Fprintf(cmd.OutOrStdout(), "  Relations:       %d\n", stats.Edges)
				fmt.Fprintf(cmd.OutOrStdout(), "  Mean activation: %.2f\n", stats.MeanActivation)
			}

			return nil
		},
	}

	return cmd
}
