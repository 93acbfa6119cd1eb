package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
)

var backupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Write a snapshot of all stored records to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Replace stored records with a snapshot",
	Long: `Replaces the entire storage contents with the given snapshot.
Records not present in the snapshot are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	snap, err := repository.Backup(ctx)
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	cmd.Printf("Backed up %d records to %s\n", snap.Metadata.TotalItems, args[0])
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	teardown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}
	var snap domain.BackupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding backup: %w", err)
	}

	if err := repository.Restore(ctx, &snap); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}

	cmd.Printf("Restored %d records from %s\n", snap.Metadata.TotalItems, args[0])
	return nil
}
