package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/percept/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export the full graph to a backup file",
		Long: `Export all perceptions and relations to a JSON backup file.

Without --output, the backup is written to ~/.percept/backups/ with a
timestamped name and old backups beyond --keep are rotated out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			jsonOut, _ := cmd.Flags().GetBool("json")

			rotate := false
			if outputPath == "" {
				backupDir, err := backup.DefaultBackupDir()
				if err != nil {
					return fmt.Errorf("failed to determine backup directory: %w", err)
				}
				outputPath = backup.GenerateBackupPath(backupDir)
				rotate = true
			}

			g, _, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			result, err := backup.Backup(context.Background(), g.Store(), outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			if rotate && keep > 0 {
				backupDir, _ := backup.DefaultBackupDir()
				if err := backup.RotateBackups(backupDir, keep); err != nil {
					return fmt.Errorf("backup rotation failed: %w", err)
				}
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "backed_up",
					"path":   outputPath,
					"nodes":  len(result.Nodes),
					"edges":  len(result.Edges),
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d perception(s) and %d relation(s) to %s\n",
					len(result.Nodes), len(result.Edges), outputPath)
			}

			return nil
		},
	}

	cmd.Flags().String("output", "", "Backup file path (default: timestamped file in ~/.percept/backups/)")
	cmd.Flags().Int("keep", 10, "Number of rotated backups to keep (default location only)")

	return cmd
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Import graph state from a backup file",
		Long: `Import perceptions and relations from a backup file.

Modes:
  merge   skip perceptions and relations that already exist (default)
  strict  fail on the first conflict with existing data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			modeStr, _ := cmd.Flags().GetString("mode")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var mode backup.RestoreMode
			switch modeStr {
			case "merge", "":
				mode = backup.RestoreMerge
			case "strict":
				mode = backup.RestoreStrict
			default:
				return fmt.Errorf("invalid mode: %s (must be merge or strict)", modeStr)
			}

			g, _, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Close()

			result, err := backup.Restore(context.Background(), g.Store(), inputPath, mode)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "restored",
					"result": result,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d perception(s) and %d relation(s)\n",
					result.NodesRestored, result.EdgesRestored)
				if result.NodesSkipped > 0 || result.EdgesSkipped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d existing perception(s) and %d relation(s)\n",
						result.NodesSkipped, result.EdgesSkipped)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("mode", "merge", "Restore mode: merge or strict")

	return cmd
}
