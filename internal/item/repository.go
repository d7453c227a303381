package item

import (
	"context"

	"github.com/fekuna/pantry-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, item *model.Item) error
	// FindByID returns nil without an error when the item does not exist. Soft-deleted items are returned.
	FindByID(ctx context.Context, id string) (*model.Item, error)
	// Update writes every mutable column only while the stored version still equals expectedVersion.
	Update(ctx context.Context, item *model.Item, expectedVersion int64) error
}
