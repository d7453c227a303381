package model

import (
	"encoding/json"
	"sort"
)

// ItemChange describes the latest committed state of an item as a server change.
func ItemChange(it *Item) ServerChange {
	action := ChangeUpdated
	switch {
	case !it.IsActive:
		action = ChangeDeleted
	case it.Version <= 1:
		action = ChangeCreated
	}
	data, _ := json.Marshal(it)
	return ServerChange{
		EntityType: EntityItem,
		EntityID:   it.ID,
		ItemID:     it.ID,
		Action:     action,
		Version:    it.Version,
		Timestamp:  it.UpdatedAt,
		Data:       data,
	}
}

// StockEntryChange describes an appended ledger entry as a server change.
func StockEntryChange(e *StockEntry) ServerChange {
	action := ChangeStockAdjust
	switch e.OperationType {
	case OperationAdd:
		action = ChangeStockAdd
	case OperationDeduct:
		action = ChangeStockDeduct
	}
	data, _ := json.Marshal(e)
	return ServerChange{
		EntityType: EntityStockEntry,
		EntityID:   e.ID,
		ItemID:     e.ItemID,
		Action:     action,
		Timestamp:  e.CreatedAt,
		Data:       data,
	}
}

// SortChanges orders changes by timestamp ascending, keeping the input order for ties.
func SortChanges(changes []ServerChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Timestamp.Before(changes[j].Timestamp)
	})
}
