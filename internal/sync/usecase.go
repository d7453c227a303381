package sync

import (
	"context"

	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/sync/dto"
)

type UseCase interface {
	InitiateSync(ctx context.Context, req *dto.SyncRequest) (*dto.SyncResult, error)
	GetSyncStatus(ctx context.Context, syncID, userID string) (*model.SyncTransaction, error)
	GetPendingOperations(ctx context.Context, userID, clientID string) ([]model.SyncTransaction, error)
}
