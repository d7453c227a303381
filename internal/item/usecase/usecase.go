package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/fekuna/pantry-service/internal/item"
	"github.com/fekuna/pantry-service/internal/item/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/fekuna/pantry-service/internal/watermark"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type itemUseCase struct {
	repo   item.Repository
	writes *watermark.Tracker
	logger logger.ZapLogger
}

func NewItemUseCase(repo item.Repository, writes *watermark.Tracker, log logger.ZapLogger) item.UseCase {
	return &itemUseCase{
		repo:   repo,
		writes: writes,
		logger: log,
	}
}

func (uc *itemUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidPayload)
	}

	preferred := unit.Normalize(input.PreferredUnit)
	if preferred == "" {
		return nil, fmt.Errorf("%w: preferred unit is required", model.ErrInvalidPayload)
	}
	if _, err := unit.Lookup(preferred, ""); err != nil {
		return nil, err
	}

	minUnit, err := checkMinimum(preferred, input.MinimumQuantity, input.MinimumUnit)
	if err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.New().String()
	} else {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: item id %q is not a uuid", model.ErrInvalidPayload, id)
		}
		existing, err := uc.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", model.ErrItemExists, id)
		}
	}

	householdID := input.HouseholdID
	if householdID == "" {
		householdID = input.UserID
	}

	now, done := uc.writes.Begin()
	defer done()
	it := &model.Item{
		BaseModel:       model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		HouseholdID:     householdID,
		UserID:          input.UserID,
		Name:            name,
		Category:        input.Category,
		PreferredUnit:   preferred,
		MinimumQuantity: input.MinimumQuantity,
		MinimumUnit:     minUnit,
		Version:         1,
		IsActive:        true,
	}

	if err := uc.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	uc.logger.Info("item created", zap.String("item_id", it.ID), zap.String("user_id", it.UserID))
	return it, nil
}

func (uc *itemUseCase) GetItem(ctx context.Context, id string) (*model.Item, error) {
	it, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil || !it.IsActive {
		return nil, fmt.Errorf("%w: %s", model.ErrItemNotFound, id)
	}
	return it, nil
}

func (uc *itemUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*model.Item, error) {
	current, err := uc.loadForWrite(ctx, input.ID, input.UserID, input.Version)
	if err != nil {
		return nil, err
	}

	next := *current
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", model.ErrInvalidPayload)
		}
		next.Name = name
	}
	if input.Category != nil {
		next.Category = input.Category
	}
	if input.PreferredUnit != nil {
		preferred := unit.Normalize(*input.PreferredUnit)
		typ, err := unit.Lookup(preferred, "")
		if err != nil {
			return nil, err
		}
		// the ledger stores base quantities of one type per item
		if typ != unit.TypeOf(current.PreferredUnit) {
			return nil, fmt.Errorf("%w: %s cannot replace %s", unit.ErrIncompatibleUnits, preferred, current.PreferredUnit)
		}
		next.PreferredUnit = preferred
	}
	if input.MinimumQuantity != nil {
		next.MinimumQuantity = input.MinimumQuantity
	}
	if input.MinimumUnit != nil {
		next.MinimumUnit = input.MinimumUnit
	}
	minUnit, err := checkMinimum(next.PreferredUnit, next.MinimumQuantity, next.MinimumUnit)
	if err != nil {
		return nil, err
	}
	next.MinimumUnit = minUnit

	stamped, done := uc.writes.Begin()
	defer done()
	next.Version = current.Version + 1
	next.UpdatedAt = stamped

	if err := uc.repo.Update(ctx, &next, current.Version); err != nil {
		return nil, err
	}
	return &next, nil
}

func (uc *itemUseCase) DeleteItem(ctx context.Context, input *dto.DeleteItemInput) (*model.Item, error) {
	current, err := uc.loadForWrite(ctx, input.ID, input.UserID, input.Version)
	if err != nil {
		return nil, err
	}

	now, done := uc.writes.Begin()
	defer done()
	next := *current
	next.IsActive = false
	next.DeletedAt = &now
	next.Version = current.Version + 1
	next.UpdatedAt = now

	if err := uc.repo.Update(ctx, &next, current.Version); err != nil {
		return nil, err
	}

	uc.logger.Info("item deleted", zap.String("item_id", next.ID), zap.Int64("version", next.Version))
	return &next, nil
}

// loadForWrite returns the item a write applies to. The version is compared before the active
// flag, so a stale write against a deleted item is a conflict rather than a missing item.
func (uc *itemUseCase) loadForWrite(ctx context.Context, id, userID string, clientVersion int64) (*model.Item, error) {
	current, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// another user's item is reported the same way as an unknown id
	if current == nil || (userID != "" && current.UserID != userID) {
		return nil, fmt.Errorf("%w: %s", model.ErrItemNotFound, id)
	}
	if current.Version > clientVersion {
		return nil, &model.VersionConflictError{
			ItemID:        current.ID,
			ClientVersion: clientVersion,
			ServerVersion: current.Version,
		}
	}
	if !current.IsActive {
		return nil, fmt.Errorf("%w: %s", model.ErrItemNotFound, id)
	}
	return current, nil
}

// checkMinimum validates a reorder threshold against the item's preferred unit and returns the normalized unit.
func checkMinimum(preferred string, qty *float64, minUnit *string) (*string, error) {
	if qty != nil && *qty < 0 {
		return nil, fmt.Errorf("%w: minimum quantity %v", unit.ErrInvalidQuantity, *qty)
	}
	if minUnit == nil || *minUnit == "" {
		return nil, nil
	}
	u := unit.Normalize(*minUnit)
	typ, err := unit.Lookup(u, preferred)
	if err != nil {
		return nil, err
	}
	if typ != unit.TypeOf(preferred) {
		return nil, fmt.Errorf("%w: minimum unit %s for preferred unit %s", unit.ErrIncompatibleUnits, u, preferred)
	}
	return &u, nil
}
