package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/pantry-service/internal/item"
	itemdto "github.com/fekuna/pantry-service/internal/item/dto"
	"github.com/fekuna/pantry-service/internal/ledger"
	ledgerdto "github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/sync"
	"github.com/fekuna/pantry-service/internal/sync/dto"
	"github.com/fekuna/pantry-service/internal/sync/idempotency"
	"github.com/fekuna/pantry-service/internal/watermark"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// finalizeTimeout bounds the write that closes a sync record after the caller has gone away.
const finalizeTimeout = 5 * time.Second

type syncUseCase struct {
	repo   sync.Repository
	ledger ledger.UseCase
	items  item.UseCase
	ops    idempotency.Store
	writes *watermark.Tracker
	logger logger.ZapLogger
}

// NewSyncUseCase wires the executor. writes must be the tracker the item and ledger use cases
// stamp with, so the returned watermark never passes a write that has not committed.
func NewSyncUseCase(repo sync.Repository, ledgerUC ledger.UseCase, itemUC item.UseCase, ops idempotency.Store, writes *watermark.Tracker, log logger.ZapLogger) sync.UseCase {
	return &syncUseCase{
		repo:   repo,
		ledger: ledgerUC,
		items:  itemUC,
		ops:    ops,
		writes: writes,
		logger: log,
	}
}

func (uc *syncUseCase) InitiateSync(ctx context.Context, req *dto.SyncRequest) (*dto.SyncResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidPayload)
	}

	ops := dto.DecodeOperations(req.Operations)

	rec := &model.SyncTransaction{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		ClientID:          req.ClientID,
		Status:            model.SyncInProgress,
		StartTime:         time.Now().UTC(),
		LastSyncTimestamp: req.LastSyncTimestamp,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: create sync transaction: %w", model.ErrInfrastructure, err)
	}

	log := uc.logger.With(zap.String("sync_id", rec.ID), zap.String("user_id", req.UserID), zap.String("client_id", req.ClientID))
	log.Info("sync started", zap.Int("operations", len(ops)))

	until := uc.writes.Watermark()
	changes, err := uc.repo.ChangesSince(ctx, req.UserID, req.LastSyncTimestamp, until)
	if err != nil {
		uc.markFailed(ctx, rec.ID, fmt.Sprintf("retrieve server changes: %v", err))
		log.Error("sync failed", zap.Error(err))
		return nil, fmt.Errorf("%w: retrieve server changes: %w", model.ErrInfrastructure, err)
	}

	results := make([]dto.OperationResult, 0, len(ops))
	for i := range ops {
		if err := ctx.Err(); err != nil {
			uc.markFailed(ctx, rec.ID, fmt.Sprintf("sync aborted after %d of %d operations: %v", i, len(ops), err))
			log.Warn("sync aborted", zap.Int("applied", i), zap.Error(err))
			return nil, fmt.Errorf("sync %s aborted: %w", rec.ID, err)
		}
		results = append(results, uc.process(ctx, req.UserID, &ops[i]))
	}

	conflicts := correlate(ops, results, changes)

	counts := model.SyncCounts{
		OperationsProcessed: len(ops),
		ServerChangesCount:  len(changes),
		ConflictsResolved:   len(conflicts),
	}
	if err := uc.repo.Complete(ctx, rec.ID, counts, time.Now().UTC()); err != nil {
		uc.markFailed(ctx, rec.ID, fmt.Sprintf("complete sync transaction: %v", err))
		log.Error("sync could not be completed", zap.Error(err))
		return nil, fmt.Errorf("%w: complete sync transaction: %w", model.ErrInfrastructure, err)
	}

	log.Info("sync completed",
		zap.Int("operations", counts.OperationsProcessed),
		zap.Int("server_changes", counts.ServerChangesCount),
		zap.Int("conflicts", counts.ConflictsResolved),
	)

	return &dto.SyncResult{
		SyncID:        rec.ID,
		Status:        model.SyncCompleted,
		ServerChanges: changes,
		ClientResults: results,
		Conflicts:     conflicts,
		Timestamp:     until,
	}, nil
}

// process applies one operation and never returns an error: failures become the operation's result.
func (uc *syncUseCase) process(ctx context.Context, userID string, op *dto.Operation) dto.OperationResult {
	res := dto.OperationResult{OperationID: op.Client.ID, Type: op.Client.Type}
	if op.Err != nil {
		return failed(res, op.Err)
	}

	if op.Client.ID == "" {
		data, err := uc.apply(ctx, userID, op)
		if err != nil {
			return failed(res, err)
		}
		res.Status = dto.ResultSuccess
		res.Data = data
		return res
	}

	prior, claimed, err := uc.ops.Claim(ctx, userID, op.Client.ID)
	if err != nil {
		uc.logger.Error("idempotency claim failed", zap.String("operation_id", op.Client.ID), zap.Error(err))
		return failed(res, fmt.Errorf("%w: claim operation: %w", model.ErrInfrastructure, err))
	}
	if !claimed {
		if prior != nil && prior.State == idempotency.StateDone {
			res.Status = dto.ResultSuccess
			res.Data = prior.Data
			res.Duplicate = true
			return res
		}
		return failed(res, fmt.Errorf("%w: %s", model.ErrOperationInProgress, op.Client.ID))
	}

	data, err := uc.apply(ctx, userID, op)
	detached := context.WithoutCancel(ctx)
	if err != nil {
		if rerr := uc.ops.Release(detached, userID, op.Client.ID); rerr != nil {
			uc.logger.Warn("release operation claim", zap.String("operation_id", op.Client.ID), zap.Error(rerr))
		}
		return failed(res, err)
	}

	if cerr := uc.ops.Complete(detached, userID, op.Client.ID, idempotency.Record{Type: op.Client.Type, Data: data}); cerr != nil {
		uc.logger.Error("record applied operation", zap.String("operation_id", op.Client.ID), zap.Error(cerr))
	}
	res.Status = dto.ResultSuccess
	res.Data = data
	return res
}

func (uc *syncUseCase) apply(ctx context.Context, userID string, op *dto.Operation) (json.RawMessage, error) {
	var (
		out interface{}
		err error
	)

	switch p := op.Payload.(type) {
	case *dto.InventoryAdjustment:
		out, err = uc.adjustInventory(ctx, userID, p)
	case *dto.ItemCreate:
		out, err = uc.items.CreateItem(ctx, &itemdto.CreateItemInput{
			ID:              p.ID,
			HouseholdID:     p.HouseholdID,
			UserID:          userID,
			Name:            p.Name,
			Category:        p.Category,
			PreferredUnit:   p.PreferredUnit,
			MinimumQuantity: p.MinimumQuantity,
			MinimumUnit:     p.MinimumUnit,
		})
	case *dto.ItemUpdate:
		out, err = uc.items.UpdateItem(ctx, &itemdto.UpdateItemInput{
			ID:              p.ItemID,
			UserID:          userID,
			Version:         op.Client.Version,
			Name:            p.Name,
			Category:        p.Category,
			PreferredUnit:   p.PreferredUnit,
			MinimumQuantity: p.MinimumQuantity,
			MinimumUnit:     p.MinimumUnit,
		})
	case *dto.ItemDelete:
		out, err = uc.items.DeleteItem(ctx, &itemdto.DeleteItemInput{
			ID:      p.ItemID,
			UserID:  userID,
			Version: op.Client.Version,
		})
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedOperationType, op.Client.Type)
	}
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %w", model.ErrInfrastructure, err)
	}
	return data, nil
}

func (uc *syncUseCase) adjustInventory(ctx context.Context, userID string, p *dto.InventoryAdjustment) (*ledgerdto.StockResult, error) {
	switch p.Action {
	case dto.ActionAdd:
		return uc.ledger.AddStock(ctx, &ledgerdto.AddStockInput{
			ItemID:    p.ItemID,
			UserID:    userID,
			Quantity:  *p.Quantity,
			Unit:      p.Unit,
			Reason:    p.Reason,
			CostMinor: p.CostMinor,
		})
	case dto.ActionDeduct:
		return uc.ledger.DeductStock(ctx, &ledgerdto.DeductStockInput{
			ItemID:   p.ItemID,
			UserID:   userID,
			Quantity: *p.Quantity,
			Unit:     p.Unit,
			Reason:   p.Reason,
		})
	default:
		return uc.ledger.AdjustStock(ctx, &ledgerdto.AdjustStockInput{
			ItemID:      p.ItemID,
			UserID:      userID,
			NewQuantity: *p.Quantity,
			Unit:        p.Unit,
			Reason:      p.Reason,
			CostMinor:   p.CostMinor,
		})
	}
}

// markFailed finalizes the record even when ctx is already cancelled.
func (uc *syncUseCase) markFailed(ctx context.Context, id, message string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := uc.repo.Fail(fctx, id, message, time.Now().UTC()); err != nil {
		uc.logger.Error("mark sync failed", zap.String("sync_id", id), zap.Error(err))
	}
}

func (uc *syncUseCase) GetSyncStatus(ctx context.Context, syncID, userID string) (*model.SyncTransaction, error) {
	rec, err := uc.repo.FindByID(ctx, syncID, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrSyncNotFound, syncID)
	}
	return rec, nil
}

func (uc *syncUseCase) GetPendingOperations(ctx context.Context, userID, clientID string) ([]model.SyncTransaction, error) {
	return uc.repo.ListPending(ctx, userID, clientID)
}

func failed(res dto.OperationResult, err error) dto.OperationResult {
	res.Status = dto.ResultFailed
	res.ErrorCode = model.ErrorCode(err)
	res.Error = err.Error()
	return res
}

// correlate pairs every version-conflicted operation with the server change that beat it.
// The server state stands; the client has to rebase and resubmit.
func correlate(ops []dto.Operation, results []dto.OperationResult, changes []model.ServerChange) []dto.Conflict {
	conflicts := []dto.Conflict{}
	for i := range results {
		if results[i].ErrorCode != model.CodeOutdatedVersion {
			continue
		}
		change, ok := matchChange(ops[i].ItemID(), changes)
		if !ok {
			continue
		}
		conflicts = append(conflicts, dto.Conflict{
			Type:            dto.ConflictVersion,
			ClientOperation: ops[i].Client,
			ServerChange:    change,
			Resolution:      dto.ResolutionServerWins,
		})
	}
	return conflicts
}

// matchChange prefers a change to the item row itself over a ledger entry for it.
func matchChange(itemID string, changes []model.ServerChange) (model.ServerChange, bool) {
	if itemID == "" {
		return model.ServerChange{}, false
	}
	for _, c := range changes {
		if c.EntityType == model.EntityItem && c.EntityID == itemID {
			return c, true
		}
	}
	for _, c := range changes {
		if c.ItemID == itemID {
			return c, true
		}
	}
	return model.ServerChange{}, false
}

