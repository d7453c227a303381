package model

import "time"

// Item is a tracked household product. Version starts at 1 and grows by one on every mutation;
// clients echo the version they last saw so stale edits can be rejected.
type Item struct {
	BaseModel
	HouseholdID     string     `db:"household_id" json:"householdId"`
	UserID          string     `db:"user_id" json:"userId"`
	Name            string     `db:"name" json:"name"`
	Category        *string    `db:"category" json:"category,omitempty"`
	PreferredUnit   string     `db:"preferred_unit" json:"preferredUnit"`
	MinimumQuantity *float64   `db:"minimum_quantity" json:"minimumQuantity,omitempty"`
	MinimumUnit     *string    `db:"minimum_unit" json:"minimumUnit,omitempty"`
	Version         int64      `db:"version" json:"version"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}
