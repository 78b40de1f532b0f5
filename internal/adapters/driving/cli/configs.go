package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Manage sync configurations",
}

var configsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync configurations",
	RunE:  runConfigsList,
}

var (
	addCalendarID   string
	addCredentialID string
	addDestType     string
	addSettings     map[string]string
	addFrequency    string
	addFilterStart  string
	addFilterEnd    string
	addKeywords     []string
	addMapping      map[string]string
)

var configsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a sync configuration",
	Long: `Adds a sync configuration binding one Google calendar to one
destination. Destination settings depend on the type:

  sheet:    --setting spreadsheet_id=... [--setting sheet_name=...]
  airtable: --setting base_id=... --setting table_name=... --setting api_key_ref=...
  notion:   --setting database_id=... --setting token_ref=...`,
	RunE: runConfigsAdd,
}

var configsRemoveCmd = &cobra.Command{
	Use:   "remove <config-id>",
	Short: "Remove a sync configuration and its ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsRemove,
}

var configsPauseCmd = &cobra.Command{
	Use:   "pause <config-id>",
	Short: "Pause a sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConfigStatus(cmd, args[0], domain.ConfigPaused)
	},
}

var configsResumeCmd = &cobra.Command{
	Use:   "resume <config-id>",
	Short: "Resume a paused sync configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConfigStatus(cmd, args[0], domain.ConfigActive)
	},
}

func init() {
	configsAddCmd.Flags().StringVar(&addCalendarID, "calendar", "", "source calendar id (required)")
	configsAddCmd.Flags().StringVar(&addCredentialID, "credential", "", "credential id from config.toml (required)")
	configsAddCmd.Flags().StringVar(&addDestType, "type", "", "destination type: sheet, airtable or notion (required)")
	configsAddCmd.Flags().StringToStringVar(&addSettings, "setting", nil, "destination setting key=value (repeatable)")
	configsAddCmd.Flags().StringVar(&addFrequency, "frequency", "free", "plan tier: free, standard or pro")
	configsAddCmd.Flags().StringVar(&addFilterStart, "filter-start", "", "only sync events starting on or after this date (YYYY-MM-DD)")
	configsAddCmd.Flags().StringVar(&addFilterEnd, "filter-end", "", "only sync events starting on or before this date (YYYY-MM-DD)")
	configsAddCmd.Flags().StringArrayVar(&addKeywords, "keyword", nil, "only sync events whose title contains a keyword (repeatable)")
	configsAddCmd.Flags().StringToStringVar(&addMapping, "map", nil, "column/property override field=label (repeatable)")
	_ = configsAddCmd.MarkFlagRequired("calendar")
	_ = configsAddCmd.MarkFlagRequired("credential")
	_ = configsAddCmd.MarkFlagRequired("type")

	configsCmd.AddCommand(configsListCmd)
	configsCmd.AddCommand(configsAddCmd)
	configsCmd.AddCommand(configsRemoveCmd)
	configsCmd.AddCommand(configsPauseCmd)
	configsCmd.AddCommand(configsResumeCmd)
	rootCmd.AddCommand(configsCmd)
}

func runConfigsList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	configs, err := configStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing configurations: %w", err)
	}
	if len(configs) == 0 {
		cmd.Println("No sync configurations. Add one with 'calsync configs add'.")
		return nil
	}

	for i := range configs {
		cfg := &configs[i]
		cmd.Printf("%s  %s -> %s  [%s, %s]\n",
			cfg.ID, cfg.CalendarID, cfg.Destination.Type, cfg.Status, cfg.FrequencyClass)
		if !cfg.LastSyncedAt.IsZero() {
			cmd.Printf("    last synced %s\n", cfg.LastSyncedAt.Local().Format(time.RFC1123))
		}
		if cfg.LastError != "" {
			cmd.Printf("    last error: %s\n", cfg.LastError)
		}
	}
	return nil
}

func runConfigsAdd(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	destType := domain.DestinationType(addDestType)
	if !destType.Valid() {
		return fmt.Errorf("%w: destination type %q", domain.ErrInvalidInput, addDestType)
	}

	filter, err := buildFilter(addFilterStart, addFilterEnd, addKeywords)
	if err != nil {
		return err
	}

	var mapping *domain.FieldMapping
	if len(addMapping) > 0 {
		mapping = &domain.FieldMapping{Columns: addMapping}
	}

	cfg := domain.SyncConfiguration{
		ID:           uuid.NewString(),
		CalendarID:   addCalendarID,
		CredentialID: addCredentialID,
		Destination: domain.DestinationRef{
			Type:     destType,
			Settings: addSettings,
		},
		Status:         domain.ConfigActive,
		FrequencyClass: addFrequency,
		Filter:         filter,
		Mapping:        mapping,
	}

	if err := configStore.Save(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	cmd.Printf("Created configuration %s\n", cfg.ID)
	return nil
}

func runConfigsRemove(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	configID := args[0]
	if _, err := configStore.Get(cmd.Context(), configID); err != nil {
		return fmt.Errorf("configuration %s: %w", configID, err)
	}
	if err := ledgerStore.DeleteByConfig(cmd.Context(), configID); err != nil {
		return fmt.Errorf("removing ledger: %w", err)
	}
	if err := configStore.Delete(cmd.Context(), configID); err != nil {
		return fmt.Errorf("removing configuration: %w", err)
	}

	cmd.Printf("Removed configuration %s\n", configID)
	return nil
}

func setConfigStatus(cmd *cobra.Command, configID string, status domain.ConfigStatus) error {
	if err := ensureServices(); err != nil {
		return err
	}

	cfg, err := configStore.Get(cmd.Context(), configID)
	if err != nil {
		return fmt.Errorf("configuration %s: %w", configID, err)
	}

	cfg.Status = status
	if err := configStore.Save(cmd.Context(), *cfg); err != nil {
		return fmt.Errorf("updating configuration: %w", err)
	}

	cmd.Printf("Configuration %s is now %s\n", configID, status)
	return nil
}

// buildFilter assembles a FilterSpec from the add flags.
func buildFilter(start, end string, keywords []string) (*domain.FilterSpec, error) {
	if start == "" && end == "" && len(keywords) == 0 {
		return nil, nil
	}

	filter := &domain.FilterSpec{Keywords: keywords}
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return nil, fmt.Errorf("%w: --filter-start %q", domain.ErrInvalidInput, start)
		}
		filter.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return nil, fmt.Errorf("%w: --filter-end %q", domain.ErrInvalidInput, end)
		}
		filter.End = t
	}
	return filter, nil
}
