package ledger

import (
	"context"

	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
)

// Tx is the view of the ledger available while an item's lock is held.
type Tx interface {
	CurrentStock(ctx context.Context, itemID string) (int64, error)
	AppendEntry(ctx context.Context, entry *model.StockEntry) error
}

type Repository interface {
	// WithItemLock runs fn inside one transaction holding an exclusive lock on the active item.
	// The transaction commits only if fn returns nil. Missing or deleted items yield model.ErrItemNotFound.
	WithItemLock(ctx context.Context, itemID string, fn func(tx Tx, item *model.Item) error) error

	CurrentStock(ctx context.Context, itemID string) (int64, error)
	ListEntries(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockEntry, int, error)
	// ListItemStock returns the active items of a household with their aggregated stock.
	ListItemStock(ctx context.Context, householdID string) ([]model.ItemStock, error)
}
