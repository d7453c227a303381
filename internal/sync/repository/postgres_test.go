package repository

import (
	"context"
	"testing"
	"time"

	itemrepo "github.com/fekuna/pantry-service/internal/item/repository"
	"github.com/fekuna/pantry-service/internal/ledger"
	ledgerrepo "github.com/fekuna/pantry-service/internal/ledger/repository"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/pgtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(userID, clientID string) *model.SyncTransaction {
	return &model.SyncTransaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		ClientID:  clientID,
		Status:    model.SyncInProgress,
		StartTime: time.Now().UTC(),
	}
}

func TestSyncTransactionLifecycle(t *testing.T) {
	repo := NewPGRepository(pgtest.Open(t))
	ctx := context.Background()

	done := newTransaction("user-1", "phone")
	require.NoError(t, repo.Create(ctx, done))
	pending := newTransaction("user-1", "phone")
	require.NoError(t, repo.Create(ctx, pending))

	counts := model.SyncCounts{OperationsProcessed: 3, ServerChangesCount: 2, ConflictsResolved: 1}
	require.NoError(t, repo.Complete(ctx, done.ID, counts, time.Now().UTC()))

	assert.ErrorIs(t, repo.Complete(ctx, done.ID, counts, time.Now().UTC()), model.ErrSyncFinalized)
	assert.ErrorIs(t, repo.Fail(ctx, done.ID, "late failure", time.Now().UTC()), model.ErrSyncFinalized)
	assert.ErrorIs(t, repo.Fail(ctx, uuid.NewString(), "nope", time.Now().UTC()), model.ErrSyncNotFound)

	got, err := repo.FindByID(ctx, done.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SyncCompleted, got.Status)
	assert.Equal(t, 3, got.OperationsProcessed)
	assert.NotNil(t, got.EndTime)
	assert.Nil(t, got.ErrorMessage)

	other, err := repo.FindByID(ctx, done.ID, "user-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	list, err := repo.ListPending(ctx, "user-1", "phone")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)

	require.NoError(t, repo.Fail(ctx, pending.ID, "changes query failed", time.Now().UTC()))
	got, err = repo.FindByID(ctx, pending.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "changes query failed", *got.ErrorMessage)
}

func TestChangesSince(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewPGRepository(db)
	items := itemrepo.NewPGRepository(db)
	entries := ledgerrepo.NewPGRepository(db)
	ctx := context.Background()

	t0 := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	mine := &model.Item{
		BaseModel:     model.BaseModel{ID: uuid.NewString(), CreatedAt: t0, UpdatedAt: t0.Add(time.Minute)},
		HouseholdID:   "user-1",
		UserID:        "user-1",
		Name:          "Oats",
		PreferredUnit: "g",
		Version:       1,
		IsActive:      true,
	}
	require.NoError(t, items.Create(ctx, mine))
	theirs := *mine
	theirs.ID = uuid.NewString()
	theirs.UserID = "user-2"
	theirs.HouseholdID = "user-2"
	require.NoError(t, items.Create(ctx, &theirs))

	require.NoError(t, entries.WithItemLock(ctx, mine.ID, func(tx ledger.Tx, _ *model.Item) error {
		return tx.AppendEntry(ctx, &model.StockEntry{
			ID:            uuid.NewString(),
			ItemID:        mine.ID,
			UserID:        "user-1",
			QuantityBase:  500,
			UnitType:      "weight",
			BaseUnit:      "g",
			OperationType: model.OperationAdd,
			Direction:     model.DirectionIn,
			CreatedAt:     t0.Add(2 * time.Minute),
		})
	}))

	changes, err := repo.ChangesSince(ctx, "user-1", nil, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, model.EntityItem, changes[0].EntityType)
	assert.Equal(t, model.ChangeCreated, changes[0].Action)
	assert.Equal(t, model.ChangeStockAdd, changes[1].Action)
	assert.Equal(t, mine.ID, changes[1].ItemID)

	since := t0.Add(time.Minute)
	changes, err = repo.ChangesSince(ctx, "user-1", &since, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.EntityStockEntry, changes[0].EntityType)

	// the upper bound excludes anything committed after the watermark
	changes, err = repo.ChangesSince(ctx, "user-1", nil, t0)
	require.NoError(t, err)
	assert.Empty(t, changes)
}
