package sync

import (
	"context"
	"time"

	"github.com/fekuna/pantry-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, tx *model.SyncTransaction) error
	// Complete and Fail move an IN_PROGRESS record to its terminal state. A terminal record yields model.ErrSyncFinalized.
	Complete(ctx context.Context, id string, counts model.SyncCounts, endTime time.Time) error
	Fail(ctx context.Context, id string, message string, endTime time.Time) error
	// FindByID returns nil without an error when no record with id belongs to userID.
	FindByID(ctx context.Context, id, userID string) (*model.SyncTransaction, error)
	ListPending(ctx context.Context, userID, clientID string) ([]model.SyncTransaction, error)

	// ChangesSince returns mutations of the user's items committed in (since, until], oldest first.
	// A nil since means from the beginning.
	ChangesSince(ctx context.Context, userID string, since *time.Time, until time.Time) ([]model.ServerChange, error)
}
