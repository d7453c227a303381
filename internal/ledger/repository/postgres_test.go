package repository

import (
	"context"
	"testing"
	"time"

	itemrepo "github.com/fekuna/pantry-service/internal/item/repository"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/pgtest"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seedItem(t *testing.T, repo *itemrepo.PGRepository) *model.Item {
	t.Helper()
	now := time.Now().UTC()
	it := &model.Item{
		BaseModel:     model.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		HouseholdID:   "house-1",
		UserID:        "user-1",
		Name:          "Rice",
		PreferredUnit: "kg",
		Version:       1,
		IsActive:      true,
	}
	require.NoError(t, repo.Create(context.Background(), it))
	return it
}

func entry(itemID string, op model.OperationType, dir model.Direction, qty int64, at time.Time) *model.StockEntry {
	return &model.StockEntry{
		ID:            uuid.NewString(),
		ItemID:        itemID,
		UserID:        "user-1",
		QuantityBase:  qty,
		UnitType:      string(unit.Weight),
		BaseUnit:      unit.BaseWeight,
		OperationType: op,
		Direction:     dir,
		CreatedAt:     at,
	}
}

func TestLedgerRepository(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewPGRepository(db)
	it := seedItem(t, itemrepo.NewPGRepository(db))
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	err := repo.WithItemLock(ctx, it.ID, func(tx ledger.Tx, locked *model.Item) error {
		assert.Equal(t, it.ID, locked.ID)
		if err := tx.AppendEntry(ctx, entry(it.ID, model.OperationAdd, model.DirectionIn, 1000, base)); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, entry(it.ID, model.OperationDeduct, model.DirectionOut, 300, base.Add(time.Minute))); err != nil {
			return err
		}
		stock, err := tx.CurrentStock(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(700), stock)
		return nil
	})
	require.NoError(t, err)

	// entries appended by a failed callback are rolled back
	err = repo.WithItemLock(ctx, it.ID, func(tx ledger.Tx, _ *model.Item) error {
		require.NoError(t, tx.AppendEntry(ctx, entry(it.ID, model.OperationAdd, model.DirectionIn, 5, base)))
		return model.ErrNoAdjustmentNeeded
	})
	assert.ErrorIs(t, err, model.ErrNoAdjustmentNeeded)

	stock, err := repo.CurrentStock(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), stock)

	err = repo.WithItemLock(ctx, uuid.NewString(), func(ledger.Tx, *model.Item) error { return nil })
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	f := &dto.HistoryFilters{ItemID: it.ID}
	f.Normalize()
	entries, total, err := repo.ListEntries(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, model.OperationDeduct, entries[0].OperationType)

	f = &dto.HistoryFilters{ItemID: it.ID, OperationType: model.OperationAdd}
	f.Normalize()
	_, total, err = repo.ListEntries(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	stocks, err := repo.ListItemStock(ctx, "house-1")
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, int64(700), stocks[0].CurrentStock)
}

func TestLedgerRepositorySerializesPerItem(t *testing.T) {
	db := pgtest.Open(t)
	repo := NewPGRepository(db)
	it := seedItem(t, itemrepo.NewPGRepository(db))
	ctx := context.Background()

	require.NoError(t, repo.WithItemLock(ctx, it.ID, func(tx ledger.Tx, _ *model.Item) error {
		return tx.AppendEntry(ctx, entry(it.ID, model.OperationAdd, model.DirectionIn, 3, time.Now().UTC()))
	}))

	var g errgroup.Group
	applied := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return repo.WithItemLock(ctx, it.ID, func(tx ledger.Tx, _ *model.Item) error {
				stock, err := tx.CurrentStock(ctx, it.ID)
				if err != nil {
					return err
				}
				if stock < 2 {
					return nil
				}
				applied <- struct{}{}
				return tx.AppendEntry(ctx, entry(it.ID, model.OperationDeduct, model.DirectionOut, 2, time.Now().UTC()))
			})
		})
	}
	require.NoError(t, g.Wait())
	close(applied)

	assert.Len(t, applied, 1)
	stock, err := repo.CurrentStock(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)
}
