package ledger

import (
	"context"

	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
)

type UseCase interface {
	AddStock(ctx context.Context, input *dto.AddStockInput) (*dto.StockResult, error)
	DeductStock(ctx context.Context, input *dto.DeductStockInput) (*dto.StockResult, error)
	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.StockResult, error)
	GetCurrentStock(ctx context.Context, itemID string) (int64, error)
	GetStockHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockEntry, int, error)
	CheckReorderThresholds(ctx context.Context, householdID string) ([]model.ReorderAlert, error)
}
