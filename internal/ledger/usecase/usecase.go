package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/fekuna/pantry-service/internal/item"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/fekuna/pantry-service/internal/watermark"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ledgerUseCase struct {
	repo   ledger.Repository
	items  item.Repository
	writes *watermark.Tracker
	logger logger.ZapLogger
}

func NewLedgerUseCase(repo ledger.Repository, items item.Repository, writes *watermark.Tracker, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		repo:   repo,
		items:  items,
		writes: writes,
		logger: log,
	}
}

// decision is what a mutation wants appended, plus the stock it leaves behind.
type decision struct {
	entry *model.StockEntry
	after int64
}

func (uc *ledgerUseCase) AddStock(ctx context.Context, input *dto.AddStockInput) (*dto.StockResult, error) {
	return uc.mutate(ctx, input.ItemID, input.UserID, func(tx ledger.Tx, it *model.Item) (*decision, error) {
		base, err := toItemBase(input.Quantity, input.Unit, it)
		if err != nil {
			return nil, err
		}
		current, err := uc.currentStock(ctx, tx, it.ID)
		if err != nil {
			return nil, err
		}
		entry := newEntry(it, input.UserID, base, model.OperationAdd, model.DirectionIn, input.Reason, input.CostMinor)
		return &decision{entry: entry, after: current + base.Quantity}, nil
	})
}

func (uc *ledgerUseCase) DeductStock(ctx context.Context, input *dto.DeductStockInput) (*dto.StockResult, error) {
	return uc.mutate(ctx, input.ItemID, input.UserID, func(tx ledger.Tx, it *model.Item) (*decision, error) {
		base, err := toItemBase(input.Quantity, input.Unit, it)
		if err != nil {
			return nil, err
		}
		current, err := uc.currentStock(ctx, tx, it.ID)
		if err != nil {
			return nil, err
		}
		if base.Quantity > current {
			return nil, &model.InsufficientStockError{Current: current, Requested: base.Quantity, Unit: base.Unit}
		}
		entry := newEntry(it, input.UserID, base, model.OperationDeduct, model.DirectionOut, input.Reason, nil)
		return &decision{entry: entry, after: current - base.Quantity}, nil
	})
}

func (uc *ledgerUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.StockResult, error) {
	return uc.mutate(ctx, input.ItemID, input.UserID, func(tx ledger.Tx, it *model.Item) (*decision, error) {
		target, err := adjustTarget(input.NewQuantity, input.Unit, it)
		if err != nil {
			return nil, err
		}
		current, err := uc.currentStock(ctx, tx, it.ID)
		if err != nil {
			return nil, err
		}

		delta := target.Quantity - current
		if delta == 0 {
			return nil, fmt.Errorf("%w: item %s already at %d%s", model.ErrNoAdjustmentNeeded, it.ID, current, target.Unit)
		}
		direction := model.DirectionIn
		if delta < 0 {
			direction = model.DirectionOut
			delta = -delta
		}

		moved := unit.Base{Quantity: delta, Type: target.Type, Unit: target.Unit}
		entry := newEntry(it, input.UserID, moved, model.OperationAdjust, direction, input.Reason, input.CostMinor)
		return &decision{entry: entry, after: target.Quantity}, nil
	})
}

// mutate runs decide under the item's lock and appends the entry it returns. The entry is
// stamped inside the lock and the stamp stays open until the transaction has finished.
func (uc *ledgerUseCase) mutate(ctx context.Context, itemID, userID string, decide func(tx ledger.Tx, it *model.Item) (*decision, error)) (*dto.StockResult, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: empty item id", model.ErrItemNotFound)
	}

	var (
		d      *decision
		locked model.Item
	)
	done := func() {}
	err := uc.repo.WithItemLock(ctx, itemID, func(tx ledger.Tx, it *model.Item) error {
		if userID != "" && it.UserID != userID {
			return fmt.Errorf("%w: %s", model.ErrItemNotFound, itemID)
		}
		var err error
		d, err = decide(tx, it)
		if err != nil {
			return err
		}
		locked = *it
		d.entry.CreatedAt, done = uc.writes.Begin()
		return tx.AppendEntry(ctx, d.entry)
	})
	done()
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock entry recorded",
		zap.String("item_id", itemID),
		zap.String("operation", string(d.entry.OperationType)),
		zap.String("direction", string(d.entry.Direction)),
		zap.Int64("quantity_base", d.entry.QuantityBase),
		zap.Int64("current_stock", d.after),
	)

	return stockResult(&locked, d.entry, d.after), nil
}

func (uc *ledgerUseCase) GetCurrentStock(ctx context.Context, itemID string) (int64, error) {
	it, err := uc.items.FindByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if it == nil {
		return 0, fmt.Errorf("%w: %s", model.ErrItemNotFound, itemID)
	}
	stock, err := uc.repo.CurrentStock(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return uc.floor(itemID, stock), nil
}

func (uc *ledgerUseCase) GetStockHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockEntry, int, error) {
	if filters.ItemID == "" {
		return nil, 0, fmt.Errorf("%w: empty item id", model.ErrItemNotFound)
	}
	if filters.OperationType != "" && !filters.OperationType.Valid() {
		return nil, 0, fmt.Errorf("%w: operation type %q", model.ErrInvalidPayload, filters.OperationType)
	}
	filters.Normalize()
	return uc.repo.ListEntries(ctx, filters)
}

func (uc *ledgerUseCase) CheckReorderThresholds(ctx context.Context, householdID string) ([]model.ReorderAlert, error) {
	stocks, err := uc.repo.ListItemStock(ctx, householdID)
	if err != nil {
		return nil, err
	}

	alerts := []model.ReorderAlert{}
	for i := range stocks {
		s := &stocks[i]
		if s.MinimumQuantity == nil || *s.MinimumQuantity <= 0 {
			continue
		}

		minUnit := s.PreferredUnit
		if s.MinimumUnit != nil && *s.MinimumUnit != "" {
			minUnit = *s.MinimumUnit
		}
		minimum, err := unit.ToBase(*s.MinimumQuantity, minUnit, s.PreferredUnit)
		if err != nil {
			uc.logger.Warn("skipping reorder threshold", zap.String("item_id", s.ID), zap.Error(err))
			continue
		}
		if minimum.Type != unit.TypeOf(s.PreferredUnit) {
			uc.logger.Warn("skipping reorder threshold", zap.String("item_id", s.ID),
				zap.Error(fmt.Errorf("%w: %s for %s", unit.ErrIncompatibleUnits, minUnit, s.PreferredUnit)))
			continue
		}

		current := uc.floor(s.ID, s.CurrentStock)
		if current <= minimum.Quantity {
			alerts = append(alerts, model.ReorderAlert{
				ItemID:          s.ID,
				ItemName:        s.Name,
				CurrentStock:    current,
				MinimumQuantity: minimum.Quantity,
				Unit:            minimum.Unit,
			})
		}
	}
	return alerts, nil
}

func (uc *ledgerUseCase) currentStock(ctx context.Context, tx ledger.Tx, itemID string) (int64, error) {
	stock, err := tx.CurrentStock(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return uc.floor(itemID, stock), nil
}

// floor clamps a negative aggregate to zero. A negative sum means the ledger lost an invariant.
func (uc *ledgerUseCase) floor(itemID string, stock int64) int64 {
	if stock < 0 {
		uc.logger.Error("ledger integrity violation: negative stock",
			zap.String("item_id", itemID), zap.Int64("stock", stock))
		return 0
	}
	return stock
}

// toItemBase converts an entry quantity using the item's preferred unit as context. An empty unit means the preferred unit.
func toItemBase(quantity float64, token string, it *model.Item) (unit.Base, error) {
	if token == "" {
		token = it.PreferredUnit
	}
	base, err := unit.ToBase(quantity, token, it.PreferredUnit)
	if err != nil {
		return unit.Base{}, err
	}
	if want := unit.TypeOf(it.PreferredUnit); base.Type != want {
		return unit.Base{}, fmt.Errorf("%w: %s is %s, item %s is tracked in %s", unit.ErrIncompatibleUnits, token, base.Type, it.ID, want)
	}
	return base, nil
}

func adjustTarget(quantity float64, token string, it *model.Item) (unit.Base, error) {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
		return unit.Base{}, fmt.Errorf("%w: %v must not be negative", unit.ErrInvalidQuantity, quantity)
	}
	if quantity > 0 {
		return toItemBase(quantity, token, it)
	}

	if token == "" {
		token = it.PreferredUnit
	}
	typ, err := unit.Lookup(token, it.PreferredUnit)
	if err != nil {
		return unit.Base{}, err
	}
	if want := unit.TypeOf(it.PreferredUnit); typ != want {
		return unit.Base{}, fmt.Errorf("%w: %s is %s, item %s is tracked in %s", unit.ErrIncompatibleUnits, token, typ, it.ID, want)
	}
	return unit.Base{Quantity: 0, Type: typ, Unit: unit.BaseUnitOf(typ)}, nil
}

func newEntry(it *model.Item, userID string, base unit.Base, op model.OperationType, dir model.Direction, reason *string, costMinor *int64) *model.StockEntry {
	if userID == "" {
		userID = it.UserID
	}
	return &model.StockEntry{
		ID:            uuid.New().String(),
		ItemID:        it.ID,
		UserID:        userID,
		QuantityBase:  base.Quantity,
		UnitType:      string(base.Type),
		BaseUnit:      base.Unit,
		OperationType: op,
		Direction:     dir,
		Reason:        reason,
		CostMinor:     costMinor,
	}
}

func stockResult(it *model.Item, entry *model.StockEntry, current int64) *dto.StockResult {
	res := &dto.StockResult{
		Entry:        entry,
		CurrentStock: current,
		BaseUnit:     entry.BaseUnit,
		DisplayStock: float64(current),
		DisplayUnit:  entry.BaseUnit,
	}
	if v, err := unit.FromBase(current, it.PreferredUnit, it.PreferredUnit); err == nil {
		res.DisplayStock = v
		res.DisplayUnit = it.PreferredUnit
	}
	return res
}
