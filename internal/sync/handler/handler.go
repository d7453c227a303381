package handler

import (
	"context"

	"github.com/fekuna/pantry-service/api/pantryv1"
	"github.com/fekuna/pantry-service/internal/auth"
	"github.com/fekuna/pantry-service/internal/grpcerr"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/sync"
	"github.com/fekuna/pantry-service/internal/sync/dto"
	"github.com/fekuna/pantry-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type SyncHandler struct {
	pantryv1.UnimplementedSyncServiceServer

	uc     sync.UseCase
	logger logger.ZapLogger
}

func NewSyncHandler(uc sync.UseCase, log logger.ZapLogger) *SyncHandler {
	return &SyncHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SyncHandler) InitiateSync(ctx context.Context, req *pantryv1.InitiateSyncRequest) (*pantryv1.InitiateSyncResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	ops := make([]dto.ClientOperation, len(req.Operations))
	for i, op := range req.Operations {
		ops[i] = dto.ClientOperation{ID: op.ID, Type: op.Type, Data: op.Data, Version: op.Version}
	}

	res, err := h.uc.InitiateSync(ctx, &dto.SyncRequest{
		UserID:            userID,
		ClientID:          auth.GetClientID(ctx),
		LastSyncTimestamp: req.LastSyncTimestamp,
		Operations:        ops,
	})
	if err != nil {
		st := grpcerr.ToStatus(err)
		if status.Code(st) == codes.Internal {
			h.logger.Error("failed to sync", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, st
	}

	return mapSyncResultToProto(res), nil
}

func (h *SyncHandler) GetSyncStatus(ctx context.Context, req *pantryv1.GetSyncStatusRequest) (*pantryv1.GetSyncStatusResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	tx, err := h.uc.GetSyncStatus(ctx, req.SyncID, userID)
	if err != nil {
		return nil, grpcerr.ToStatus(err)
	}
	return &pantryv1.GetSyncStatusResponse{Transaction: mapTransactionToProto(tx)}, nil
}

func (h *SyncHandler) GetPendingOperations(ctx context.Context, req *pantryv1.GetPendingOperationsRequest) (*pantryv1.GetPendingOperationsResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = auth.GetClientID(ctx)
	}

	txs, err := h.uc.GetPendingOperations(ctx, userID, clientID)
	if err != nil {
		h.logger.Error("failed to list pending syncs", zap.Error(err))
		return nil, grpcerr.ToStatus(err)
	}

	protos := make([]pantryv1.SyncTransaction, len(txs))
	for i := range txs {
		protos[i] = *mapTransactionToProto(&txs[i])
	}
	return &pantryv1.GetPendingOperationsResponse{Transactions: protos}, nil
}

func mapSyncResultToProto(res *dto.SyncResult) *pantryv1.InitiateSyncResponse {
	changes := make([]pantryv1.ServerChange, len(res.ServerChanges))
	for i := range res.ServerChanges {
		changes[i] = mapChangeToProto(&res.ServerChanges[i])
	}

	results := make([]pantryv1.OperationResult, len(res.ClientResults))
	for i, r := range res.ClientResults {
		results[i] = pantryv1.OperationResult{
			OperationID: r.OperationID,
			Type:        r.Type,
			Status:      string(r.Status),
			ErrorCode:   r.ErrorCode,
			Error:       r.Error,
			Data:        r.Data,
			Duplicate:   r.Duplicate,
		}
	}

	conflicts := make([]pantryv1.Conflict, len(res.Conflicts))
	for i, c := range res.Conflicts {
		conflicts[i] = pantryv1.Conflict{
			Type:            c.Type,
			ClientOperation: pantryv1.ClientOperation{
				ID:      c.ClientOperation.ID,
				Type:    c.ClientOperation.Type,
				Data:    c.ClientOperation.Data,
				Version: c.ClientOperation.Version,
			},
			ServerChange: mapChangeToProto(&c.ServerChange),
			Resolution:   c.Resolution,
		}
	}

	return &pantryv1.InitiateSyncResponse{
		SyncID:        res.SyncID,
		Status:        string(res.Status),
		ServerChanges: changes,
		ClientResults: results,
		Conflicts:     conflicts,
		Timestamp:     res.Timestamp,
	}
}

func mapChangeToProto(c *model.ServerChange) pantryv1.ServerChange {
	return pantryv1.ServerChange{
		EntityType: string(c.EntityType),
		EntityID:   c.EntityID,
		ItemID:     c.ItemID,
		Action:     string(c.Action),
		Version:    c.Version,
		Timestamp:  c.Timestamp,
		Data:       c.Data,
	}
}

func mapTransactionToProto(tx *model.SyncTransaction) *pantryv1.SyncTransaction {
	out := &pantryv1.SyncTransaction{
		ID:                  tx.ID,
		UserID:              tx.UserID,
		ClientID:            tx.ClientID,
		Status:              string(tx.Status),
		StartTime:           tx.StartTime,
		EndTime:             tx.EndTime,
		OperationsProcessed: tx.OperationsProcessed,
		ServerChangesCount:  tx.ServerChangesCount,
		ConflictsResolved:   tx.ConflictsResolved,
		LastSyncTimestamp:   tx.LastSyncTimestamp,
	}
	if tx.ErrorMessage != nil {
		out.ErrorMessage = *tx.ErrorMessage
	}
	return out
}
