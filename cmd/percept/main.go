package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/store"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "percept",
		Short: "Percept - perception graph memory",
		Long: `percept stores perception nodes tagged with embedding vectors and
connected by weighted relations.

Perceptions are retrieved by raw dot-product similarity; every retrieval
strengthens the matched memories by incrementing their activation count.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newPutCmd(),
		newQueryCmd(),
		newSpreadCmd(),
		newTrainCmd(),
		newEvalCmd(),
		newDemoCmd(),
		newStatsCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newSetupCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "percept version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a perception graph in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			globalInit, _ := cmd.Flags().GetBool("global")

			var perceptDir string
			if globalInit {
				if err := store.EnsureGlobalPerceptDir(); err != nil {
					return fmt.Errorf("failed to initialize global directory: %w", err)
				}
				var err error
				perceptDir, err = store.GlobalPerceptPath()
				if err != nil {
					return fmt.Errorf("failed to get global path: %w", err)
				}
			} else {
				if err := store.EnsureLocalPerceptDir(root); err != nil {
					return fmt.Errorf("failed to initialize local directory: %w", err)
				}
				perceptDir = store.LocalPerceptPath(root)
			}

			// Create manifest.yaml
			manifestPath := filepath.Join(perceptDir, "manifest.yaml")
			if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
				manifest := `# Percept Manifest
version: "1.0"
created: %s

# Perceptions are stored in this directory
# Run 'percept stats' to see graph statistics
# Run 'percept query --vector ...' to retrieve similar perceptions
`
				content := fmt.Sprintf(manifest, time.Now().Format(time.RFC3339))
				if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
					return fmt.Errorf("failed to create manifest.yaml: %w", err)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				result := map[string]string{
					"status": "initialized",
					"path":   perceptDir,
				}
				if globalInit {
					result["scope"] = "global"
				}
				json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			} else {
				if globalInit {
					fmt.Fprintf(cmd.OutOrStdout(), "Initialized global .percept/ at %s\n", perceptDir)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Initialized .percept/ in %s\n", root)
				}
			}

			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Initialize global user directory (~/.percept/) instead of local project directory")

	return cmd
}
