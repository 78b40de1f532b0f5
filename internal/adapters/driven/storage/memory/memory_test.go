package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

func TestConfigStore_SaveGetDelete(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "cfg-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, domain.SyncConfiguration{
		ID:         "cfg-1",
		CalendarID: "primary",
		Status:     domain.ConfigActive,
	}))

	cfg, err := store.Get(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.CalendarID)

	// Mutating the returned copy must not leak into the store.
	cfg.CalendarID = "other"
	again, err := store.Get(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", again.CalendarID)

	require.NoError(t, store.Delete(ctx, "cfg-1"))
	_, err = store.Get(ctx, "cfg-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigStore_UpdateRunState(t *testing.T) {
	store := NewConfigStore()
	ctx := context.Background()

	err := store.UpdateRunState(ctx, "missing", "", time.Now(), "", domain.ConfigActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, domain.SyncConfiguration{
		ID:     "cfg-1",
		Status: domain.ConfigActive,
	}))

	syncedAt := time.Now()
	require.NoError(t, store.UpdateRunState(ctx, "cfg-1", "tok-9", syncedAt, "boom", domain.ConfigError))

	cfg, err := store.Get(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-9", cfg.Cursor)
	assert.Equal(t, syncedAt, cfg.LastSyncedAt)
	assert.Equal(t, "boom", cfg.LastError)
	assert.Equal(t, domain.ConfigError, cfg.Status)
}

func TestLedgerStore_UpsertPreservesID(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ID:       "rec-1",
		ConfigID: "cfg-1",
		EventID:  "ev-1",
		Locator:  domain.Locator{RowNumber: 2},
		Status:   domain.RecordActive,
	}))
	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ID:       "rec-other",
		ConfigID: "cfg-1",
		EventID:  "ev-1",
		Locator:  domain.Locator{RowNumber: 7},
		Status:   domain.RecordActive,
	}))

	rec, err := store.Get(ctx, "cfg-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, int64(7), rec.Locator.RowNumber)
}

func TestLedgerStore_PruneCancelled(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ConfigID: "cfg-1", EventID: "ev-1", Status: domain.RecordActive,
	}))
	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ConfigID: "cfg-1", EventID: "ev-2", Status: domain.RecordCancelled,
	}))
	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ConfigID: "cfg-2", EventID: "ev-3", Status: domain.RecordCancelled,
	}))

	pruned, err := store.PruneCancelled(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	recs, err := store.ListByConfig(ctx, "cfg-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ev-1", recs[0].EventID)

	// Other configurations are untouched.
	_, err = store.Get(ctx, "cfg-2", "ev-3")
	assert.NoError(t, err)
}

func TestLedgerStore_DeleteByConfig(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.SyncedEventRecord{
		ConfigID: "cfg-1", EventID: "ev-1",
	}))
	require.NoError(t, store.DeleteByConfig(ctx, "cfg-1"))

	recs, err := store.ListByConfig(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunHistoryStore_ListAndPrune(t *testing.T) {
	store := NewRunHistoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, domain.SyncRun{
			ID:        string(rune('a' + i)),
			ConfigID:  "cfg-1",
			StartedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Record(ctx, domain.SyncRun{
		ID: "other", ConfigID: "cfg-2", StartedAt: now,
	}))

	runs, err := store.ListByConfig(ctx, "cfg-1", 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "e", runs[0].ID)
	assert.Equal(t, "c", runs[2].ID)

	require.NoError(t, store.Prune(ctx, 2))

	runs, err = store.ListByConfig(ctx, "cfg-1", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	// Pruning is per configuration.
	runs, err = store.ListByConfig(ctx, "cfg-2", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLeaseStore_AcquireAndRelease(t *testing.T) {
	store := NewLeaseStore()
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "sync:cfg-1", "holder-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Another holder cannot claim a live lease.
	ok, err = store.Acquire(ctx, "sync:cfg-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// The current holder can renew.
	ok, err = store.Acquire(ctx, "sync:cfg-1", "holder-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Release by a non-holder is a no-op.
	require.NoError(t, store.Release(ctx, "sync:cfg-1", "holder-b"))
	ok, err = store.Acquire(ctx, "sync:cfg-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "sync:cfg-1", "holder-a"))
	ok, err = store.Acquire(ctx, "sync:cfg-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseStore_ExpiredLeaseIsClaimable(t *testing.T) {
	store := NewLeaseStore()
	ctx := context.Background()

	ok, err := store.Acquire(ctx, "sync:cfg-1", "holder-a", -time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "sync:cfg-1", "holder-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
