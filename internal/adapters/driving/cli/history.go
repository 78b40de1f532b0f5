package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <config-id>",
	Short: "Show recent sync passes for a configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of passes to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	configID := args[0]
	if _, err := configStore.Get(cmd.Context(), configID); err != nil {
		return fmt.Errorf("configuration %s: %w", configID, err)
	}

	runs, err := historyStore.ListByConfig(cmd.Context(), configID, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No sync passes recorded yet.")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  +%d ~%d -%d",
			run.StartedAt.Local().Format(time.RFC1123), run.Created, run.Updated, run.Deleted)
		if run.FullResync {
			line += "  (full resync)"
		}
		if run.ItemErrors > 0 {
			line += fmt.Sprintf("  %d item error(s)", run.ItemErrors)
		}
		if run.Error != "" {
			line += "  FAILED: " + run.Error
		}
		cmd.Println(line)
	}
	return nil
}
