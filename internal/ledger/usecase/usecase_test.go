package usecase

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	itemdto "github.com/fekuna/pantry-service/internal/item/dto"
	itemusecase "github.com/fekuna/pantry-service/internal/item/usecase"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/store/memory"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/fekuna/pantry-service/internal/watermark"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	household = "household-1"
	user      = "user-1"
)

type fixture struct {
	store *memory.Store
	uc    ledger.UseCase
}

func newFixture() *fixture {
	store := memory.New()
	return &fixture{
		store: store,
		uc:    NewLedgerUseCase(store.Ledger(), store.Items(), watermark.NewTracker(0), logger.NewNop()),
	}
}

func (f *fixture) item(t *testing.T, name, preferredUnit string, minimum *float64) *model.Item {
	t.Helper()
	items := itemusecase.NewItemUseCase(f.store.Items(), watermark.NewTracker(0), logger.NewNop())
	it, err := items.CreateItem(context.Background(), &itemdto.CreateItemInput{
		HouseholdID:     household,
		UserID:          user,
		Name:            name,
		PreferredUnit:   preferredUnit,
		MinimumQuantity: minimum,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) add(t *testing.T, itemID string, qty float64, u string) *dto.StockResult {
	t.Helper()
	res, err := f.uc.AddStock(context.Background(), &dto.AddStockInput{ItemID: itemID, UserID: user, Quantity: qty, Unit: u})
	require.NoError(t, err)
	return res
}

func float(v float64) *float64 { return &v }

func TestAddStockAccumulatesAcrossUnits(t *testing.T) {
	f := newFixture()
	flour := f.item(t, "Flour", "kg", nil)

	f.add(t, flour.ID, 500, "g")
	res := f.add(t, flour.ID, 0.5, "kg")

	assert.Equal(t, int64(1000), res.CurrentStock)
	assert.Equal(t, "g", res.BaseUnit)
	assert.Equal(t, 1.0, res.DisplayStock)
	assert.Equal(t, "kg", res.DisplayUnit)
	assert.Equal(t, model.OperationAdd, res.Entry.OperationType)
	assert.Equal(t, model.DirectionIn, res.Entry.Direction)
	assert.Equal(t, "weight", res.Entry.UnitType)

	stock, err := f.uc.GetCurrentStock(context.Background(), flour.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stock)
}

func TestAddStockDefaultsToPreferredUnit(t *testing.T) {
	f := newFixture()
	milk := f.item(t, "Milk", "l", nil)

	res := f.add(t, milk.ID, 1.5, "")
	assert.Equal(t, int64(1500), res.CurrentStock)
	assert.Equal(t, "ml", res.BaseUnit)
}

func TestAddStockStoresCost(t *testing.T) {
	f := newFixture()
	rice := f.item(t, "Rice", "g", nil)
	cost := int64(399)

	res, err := f.uc.AddStock(context.Background(), &dto.AddStockInput{
		ItemID: rice.ID, UserID: user, Quantity: 1, Unit: "kg", CostMinor: &cost,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Entry.CostMinor)
	assert.Equal(t, int64(399), *res.Entry.CostMinor)
}

func TestDeductStockInsufficient(t *testing.T) {
	f := newFixture()
	sugar := f.item(t, "Sugar", "g", nil)
	f.add(t, sugar.ID, 500, "g")

	_, err := f.uc.DeductStock(context.Background(), &dto.DeductStockInput{ItemID: sugar.ID, UserID: user, Quantity: 1, Unit: "kg"})
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	var ise *model.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(500), ise.Current)
	assert.Equal(t, int64(1000), ise.Requested)

	stock, err := f.uc.GetCurrentStock(context.Background(), sugar.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stock)

	_, total, err := f.uc.GetStockHistory(context.Background(), &dto.HistoryFilters{ItemID: sugar.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestDeductStockToZero(t *testing.T) {
	f := newFixture()
	eggs := f.item(t, "Eggs", "piece", nil)
	f.add(t, eggs.ID, 6, "pcs")

	res, err := f.uc.DeductStock(context.Background(), &dto.DeductStockInput{ItemID: eggs.ID, UserID: user, Quantity: 6, Unit: "each"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.CurrentStock)
	assert.Equal(t, model.DirectionOut, res.Entry.Direction)
}

func TestAdjustStock(t *testing.T) {
	f := newFixture()
	oil := f.item(t, "Olive oil", "ml", nil)
	ctx := context.Background()
	f.add(t, oil.ID, 500, "ml")

	_, err := f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: oil.ID, UserID: user, NewQuantity: 0.5, Unit: "l"})
	assert.ErrorIs(t, err, model.ErrNoAdjustmentNeeded)

	down, err := f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: oil.ID, UserID: user, NewQuantity: 300, Unit: "ml"})
	require.NoError(t, err)
	assert.Equal(t, model.OperationAdjust, down.Entry.OperationType)
	assert.Equal(t, model.DirectionOut, down.Entry.Direction)
	assert.Equal(t, int64(200), down.Entry.QuantityBase)
	assert.Equal(t, int64(300), down.CurrentStock)

	up, err := f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: oil.ID, UserID: user, NewQuantity: 1, Unit: "l"})
	require.NoError(t, err)
	assert.Equal(t, model.DirectionIn, up.Entry.Direction)
	assert.Equal(t, int64(700), up.Entry.QuantityBase)

	empty, err := f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: oil.ID, UserID: user, NewQuantity: 0, Unit: "ml"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.CurrentStock)

	stock, err := f.uc.GetCurrentStock(ctx, oil.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)

	_, err = f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: oil.ID, UserID: user, NewQuantity: -1, Unit: "ml"})
	assert.ErrorIs(t, err, unit.ErrInvalidQuantity)
}

func TestMutationErrors(t *testing.T) {
	f := newFixture()
	flour := f.item(t, "Flour", "g", nil)
	ctx := context.Background()

	_, err := f.uc.AddStock(ctx, &dto.AddStockInput{ItemID: flour.ID, Quantity: 1, Unit: "l"})
	assert.ErrorIs(t, err, unit.ErrIncompatibleUnits)

	_, err = f.uc.AddStock(ctx, &dto.AddStockInput{ItemID: flour.ID, Quantity: 1, Unit: "handful"})
	assert.ErrorIs(t, err, unit.ErrUnsupportedUnit)

	_, err = f.uc.AddStock(ctx, &dto.AddStockInput{ItemID: flour.ID, Quantity: 0, Unit: "g"})
	assert.ErrorIs(t, err, unit.ErrInvalidQuantity)

	_, err = f.uc.AddStock(ctx, &dto.AddStockInput{ItemID: "missing", Quantity: 1, Unit: "g"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	_, err = f.uc.GetCurrentStock(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	_, total, err := f.uc.GetStockHistory(ctx, &dto.HistoryFilters{ItemID: flour.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMutationOnDeletedItem(t *testing.T) {
	f := newFixture()
	jam := f.item(t, "Jam", "jar", nil)
	items := itemusecase.NewItemUseCase(f.store.Items(), watermark.NewTracker(0), logger.NewNop())
	_, err := items.DeleteItem(context.Background(), &itemdto.DeleteItemInput{ID: jam.ID, UserID: user, Version: 1})
	require.NoError(t, err)

	_, err = f.uc.AddStock(context.Background(), &dto.AddStockInput{ItemID: jam.ID, Quantity: 1, Unit: "jar"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)
}

func TestConcurrentDeductionsNeverOversell(t *testing.T) {
	f := newFixture()
	cans := f.item(t, "Tomato cans", "can", nil)
	f.add(t, cans.ID, 3, "can")

	const workers = 8
	var (
		wg        gosync.WaitGroup
		mu        gosync.Mutex
		succeeded int
		refused   int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.uc.DeductStock(context.Background(), &dto.DeductStockInput{ItemID: cans.ID, UserID: user, Quantity: 2, Unit: "can"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, model.ErrInsufficientStock) {
				refused++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, refused)

	stock, err := f.uc.GetCurrentStock(context.Background(), cans.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)
}

func TestCheckReorderThresholds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	coffee := f.item(t, "Coffee", "g", float(1000))
	f.add(t, coffee.ID, 1000, "g")
	_, err := f.uc.DeductStock(ctx, &dto.DeductStockInput{ItemID: coffee.ID, UserID: user, Quantity: 600, Unit: "g"})
	require.NoError(t, err)

	tea := f.item(t, "Tea", "g", float(100))
	f.add(t, tea.ID, 250, "g")

	f.item(t, "Salt", "g", nil)

	alerts, err := f.uc.CheckReorderThresholds(ctx, household)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.ReorderAlert{
		ItemID:          coffee.ID,
		ItemName:        "Coffee",
		CurrentStock:    400,
		MinimumQuantity: 1000,
		Unit:            "g",
	}, alerts[0])

	none, err := f.uc.CheckReorderThresholds(ctx, "other-household")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReorderThresholdInPreferredUnit(t *testing.T) {
	f := newFixture()
	milk := f.item(t, "Milk", "l", float(1))
	f.add(t, milk.ID, 750, "ml")

	alerts, err := f.uc.CheckReorderThresholds(context.Background(), household)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(750), alerts[0].CurrentStock)
	assert.Equal(t, int64(1000), alerts[0].MinimumQuantity)
	assert.Equal(t, "ml", alerts[0].Unit)
}

func TestStockHistoryNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	beans := f.item(t, "Beans", "g", nil)

	f.add(t, beans.ID, 100, "g")
	f.add(t, beans.ID, 200, "g")
	_, err := f.uc.DeductStock(ctx, &dto.DeductStockInput{ItemID: beans.ID, UserID: user, Quantity: 50, Unit: "g"})
	require.NoError(t, err)

	entries, total, err := f.uc.GetStockHistory(ctx, &dto.HistoryFilters{ItemID: beans.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)
	assert.Equal(t, model.OperationDeduct, entries[0].OperationType)
	assert.Equal(t, int64(100), entries[2].QuantityBase)

	adds, total, err := f.uc.GetStockHistory(ctx, &dto.HistoryFilters{ItemID: beans.ID, OperationType: model.OperationAdd, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, adds, 1)
	assert.Equal(t, int64(200), adds[0].QuantityBase)

	_, _, err = f.uc.GetStockHistory(ctx, &dto.HistoryFilters{ItemID: beans.ID, OperationType: "refill"})
	assert.ErrorIs(t, err, model.ErrInvalidPayload)
}

func TestNegativeAggregateIsFloored(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rice := f.item(t, "Rice", "g", nil)

	err := f.store.Ledger().WithItemLock(ctx, rice.ID, func(tx ledger.Tx, it *model.Item) error {
		return tx.AppendEntry(ctx, &model.StockEntry{
			ID: "corrupt", ItemID: it.ID, QuantityBase: 10, OperationType: model.OperationDeduct, Direction: model.DirectionOut,
		})
	})
	require.NoError(t, err)

	stock, err := f.uc.GetCurrentStock(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestMutationScopedToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	pasta := f.item(t, "Pasta", "g", nil)
	f.add(t, pasta.ID, 500, "g")

	_, err := f.uc.AddStock(ctx, &dto.AddStockInput{ItemID: pasta.ID, UserID: "user-2", Quantity: 1, Unit: "kg"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)
	_, err = f.uc.DeductStock(ctx, &dto.DeductStockInput{ItemID: pasta.ID, UserID: "user-2", Quantity: 100, Unit: "g"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)
	_, err = f.uc.AdjustStock(ctx, &dto.AdjustStockInput{ItemID: pasta.ID, UserID: "user-2", NewQuantity: 0, Unit: "g"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	stock, err := f.uc.GetCurrentStock(ctx, pasta.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stock)
}

func TestEntriesStampedThroughTracker(t *testing.T) {
	store := memory.New()
	writes := watermark.NewTracker(0)
	uc := NewLedgerUseCase(store.Ledger(), store.Items(), writes, logger.NewNop())
	f := &fixture{store: store, uc: uc}
	tea := f.item(t, "Tea", "g", nil)

	before := writes.Watermark()
	res := f.add(t, tea.ID, 100, "g")

	assert.True(t, res.Entry.CreatedAt.After(before))
	assert.Equal(t, res.Entry.CreatedAt, res.Entry.CreatedAt.Truncate(watermark.Resolution))
	assert.Zero(t, writes.InFlight())
}
