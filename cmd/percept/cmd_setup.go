package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/setup"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download the local embedding dependencies",
		Long: `Download the llama.cpp shared libraries and the default GGUF embedding
model into ~/.percept/, enabling --text input for put and query.

Already-installed components are skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			jsonOut, _ := cmd.Flags().GetBool("json")

			baseDir := setup.DefaultPerceptDir()
			if baseDir == "" {
				return fmt.Errorf("cannot determine home directory")
			}

			detected := setup.DetectInstalled(baseDir)
			ctx := context.Background()

			downloadedLibs := false
			if detected.LibPath == "" || force {
				libDir := setup.LibDir(baseDir)
				fmt.Fprintf(cmd.ErrOrStderr(), "Downloading llama.cpp libraries to %s...\n", libDir)
				if err := setup.DownloadLibraries(ctx, libDir); err != nil {
					return fmt.Errorf("failed to download libraries: %w", err)
				}
				downloadedLibs = true
			}

			downloadedModel := false
			if detected.ModelPath == "" || force {
				modelsDir := setup.ModelsDir(baseDir)
				fmt.Fprintf(cmd.ErrOrStderr(), "Downloading embedding model to %s...\n", modelsDir)
				if err := setup.DownloadEmbeddingModel(ctx, modelsDir); err != nil {
					return fmt.Errorf("failed to download embedding model: %w", err)
				}
				downloadedModel = true
			}

			detected = setup.DetectInstalled(baseDir)

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":           "ready",
					"lib_path":         detected.LibPath,
					"model_path":       detected.ModelPath,
					"downloaded_libs":  downloadedLibs,
					"downloaded_model": downloadedModel,
				})
			} else {
				if !downloadedLibs && !downloadedModel {
					fmt.Fprintln(cmd.OutOrStdout(), "Embedding dependencies already installed.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Embedding setup complete.")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  Libraries: %s\n", detected.LibPath)
				fmt.Fprintf(cmd.OutOrStdout(), "  Model:     %s\n", detected.ModelPath)
			}

			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Re-download even if already installed")

	return cmd
}
