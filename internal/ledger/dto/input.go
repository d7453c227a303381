package dto

type AddStockInput struct {
	ItemID    string
	UserID    string
	Quantity  float64
	Unit      string
	Reason    *string
	CostMinor *int64
}

type DeductStockInput struct {
	ItemID   string
	UserID   string
	Quantity float64
	Unit     string
	Reason   *string
}

// AdjustStockInput sets the stock to NewQuantity. Zero empties the item.
type AdjustStockInput struct {
	ItemID      string
	UserID      string
	NewQuantity float64
	Unit        string
	Reason      *string
	CostMinor   *int64
}
