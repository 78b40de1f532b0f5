package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync <config-id>",
	Short: "Run one reconciliation pass for a configuration",
	Long: `Runs one reconciliation pass now, outside the schedule: pulls
calendar changes, applies them to the destination and advances the
cursor.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	configID := args[0]
	cmd.Printf("Syncing configuration %s...\n", configID)

	result, err := syncRunner.RunOnce(cmd.Context(), configID)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return fmt.Errorf("configuration %s is already syncing", configID)
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	if result.FullResync {
		cmd.Println("Sync token had expired; performed a full resync.")
	}
	cmd.Printf("Done: %d created, %d updated, %d deleted.\n",
		result.Created, result.Updated, result.Deleted)

	if result.HasErrors() {
		cmd.Printf("%d item(s) failed and will retry on the next pass:\n", len(result.Errors))
		for _, msg := range result.Errors {
			cmd.Printf("  - %s\n", msg)
		}
	}
	return nil
}
