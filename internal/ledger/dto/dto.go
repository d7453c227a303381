package dto

import (
	"time"

	"github.com/fekuna/pantry-service/internal/model"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

type HistoryFilters struct {
	ItemID        string
	OperationType model.OperationType
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// Normalize clamps paging to sane bounds.
func (f *HistoryFilters) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// StockResult is the outcome of a ledger mutation. CurrentStock is in the entry's base unit,
// DisplayStock in the item's preferred unit.
type StockResult struct {
	Entry        *model.StockEntry `json:"entry"`
	CurrentStock int64             `json:"currentStock"`
	BaseUnit     string            `json:"baseUnit"`
	DisplayStock float64           `json:"displayStock"`
	DisplayUnit  string            `json:"displayUnit"`
}
