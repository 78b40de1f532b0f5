package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler until interrupted",
	Long: `Starts the scheduler loop: every tick it selects the sync
configurations that are due under their plan interval and runs them
sequentially. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("Scheduler stop: %v", stopErr)
	}
	cmd.Println("Scheduler stopped.")
	return err
}
