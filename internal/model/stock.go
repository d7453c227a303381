package model

import "time"

type OperationType string

const (
	OperationAdd    OperationType = "add"
	OperationDeduct OperationType = "deduct"
	OperationAdjust OperationType = "adjust"
)

func (o OperationType) Valid() bool {
	switch o {
	case OperationAdd, OperationDeduct, OperationAdjust:
		return true
	}
	return false
}

// Direction says whether an entry raised or lowered the stock.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// StockEntry is one immutable ledger row. Rows are only ever appended.
type StockEntry struct {
	ID            string        `db:"id" json:"id"`
	ItemID        string        `db:"item_id" json:"itemId"`
	UserID        string        `db:"user_id" json:"userId"`
	QuantityBase  int64         `db:"quantity_base" json:"quantityBase"`
	UnitType      string        `db:"unit_type" json:"unitType"`
	BaseUnit      string        `db:"base_unit" json:"baseUnit"`
	OperationType OperationType `db:"operation_type" json:"operationType"`
	Direction     Direction     `db:"direction" json:"direction"`
	Reason        *string       `db:"reason" json:"reason,omitempty"`
	CostMinor     *int64        `db:"cost_minor" json:"costMinor,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

// Signed returns the entry's contribution to the item's stock.
func (e *StockEntry) Signed() int64 {
	if e.Direction == DirectionOut {
		return -e.QuantityBase
	}
	return e.QuantityBase
}

type ReorderAlert struct {
	ItemID          string `json:"itemId"`
	ItemName        string `json:"itemName"`
	CurrentStock    int64  `json:"currentStock"`
	MinimumQuantity int64  `json:"minimumQuantity"`
	Unit            string `json:"unit"`
}

// ItemStock pairs an item with its aggregated stock in base units.
type ItemStock struct {
	Item
	CurrentStock int64 `db:"current_stock"`
}
