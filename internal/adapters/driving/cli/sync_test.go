package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// mockSyncRunner implements driving.SyncRunner for testing.
type mockSyncRunner struct {
	result *domain.SyncRunResult
	err    error
}

func (m *mockSyncRunner) RunOnce(_ context.Context, configID string) (*domain.SyncRunResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SyncRunResult{ConfigID: configID}, nil
}

func setupSyncTest(runner *mockSyncRunner) func() {
	oldRunner := syncRunner
	syncRunner = runner
	return func() {
		syncRunner = oldRunner
	}
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync <config-id>", syncCmd.Use)
}

func TestSyncCmd_Short(t *testing.T) {
	assert.Equal(t, "Run one reconciliation pass for a configuration", syncCmd.Short)
}

func TestSyncCmd_PrintsCounts(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{
		result: &domain.SyncRunResult{Created: 3, Updated: 2, Deleted: 1},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "cfg-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Syncing configuration cfg-1...")
	assert.Contains(t, buf.String(), "3 created, 2 updated, 1 deleted")
}

func TestSyncCmd_NotesFullResync(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{
		result: &domain.SyncRunResult{FullResync: true},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "cfg-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "full resync")
}

func TestSyncCmd_ListsItemErrors(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{
		result: &domain.SyncRunResult{
			Created: 1,
			Errors:  []string{"event ev-2: rate limited"},
		},
	})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "cfg-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "1 item(s) failed")
	assert.Contains(t, buf.String(), "event ev-2: rate limited")
}

func TestSyncCmd_AlreadySyncing(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncRunner{err: domain.ErrSyncInProgress})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync", "cfg-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already syncing")
}

func TestSyncCmd_RequiresConfigID(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
}
