// Package cli implements the calsync command-line interface with cobra.
// Service wiring happens lazily so commands like version never touch the
// data directory.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/adapters/driven/auth"
	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/adapters/driven/plan"
	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/calsync/internal/connectors/google/calendar"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/core/services"
	"github.com/custodia-labs/calsync/internal/destinations"
	"github.com/custodia-labs/calsync/internal/destinations/airtable"
	"github.com/custodia-labs/calsync/internal/destinations/notion"
	"github.com/custodia-labs/calsync/internal/destinations/sheets"
	"github.com/custodia-labs/calsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Wired services, populated by ensureServices.
var (
	appConfig    *file.Store
	store        *sqlite.Store
	configStore  driven.ConfigStore
	ledgerStore  driven.LedgerStore
	historyStore driven.RunHistoryStore
	syncRunner   driving.SyncRunner
	scheduler    driving.Scheduler
)

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Mirror Google Calendar events into Sheets, Airtable or Notion",
	Long: `calsync keeps calendar events and a destination store eventually
consistent: it pulls changes through Google Calendar's incremental sync
token, diffs them against a durable ledger, and applies minimal
create/update/delete batches to the configured destination.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.calsync)")
}

// Execute runs the CLI.
func Execute() error {
	defer func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close store: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

// ensureServices opens the application config and SQLite store and wires
// the engine and scheduler. Idempotent; called by commands that need them.
func ensureServices() error {
	if syncRunner != nil {
		return nil
	}

	var err error
	appConfig, err = file.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if appConfig.Verbose() {
		logger.SetVerbose(true)
	}

	store, err = sqlite.NewStore(appConfig.DataDir())
	if err != nil {
		return fmt.Errorf("opening data store: %w", err)
	}

	configStore = store.ConfigStore()
	ledgerStore = store.LedgerStore()
	historyStore = store.RunHistoryStore()
	leases := store.LeaseStore()

	tokens := auth.NewResolver(appConfig, leases)
	sources := calendar.NewFactory(tokens)

	dests := destinations.NewFactory()
	dests.Register(domain.DestinationSheet, sheets.Builder(tokens))
	dests.Register(domain.DestinationAirtable, airtable.Builder(appConfig))
	dests.Register(domain.DestinationNotion, notion.Builder(appConfig))

	syncRunner = services.NewReconcileEngine(
		configStore, ledgerStore, historyStore, leases, sources, dests)
	scheduler = services.NewScheduler(configStore, plan.NewGate(), syncRunner)

	return nil
}
