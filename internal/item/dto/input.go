package dto

type CreateItemInput struct {
	ID              string // optional, client generated
	HouseholdID     string
	UserID          string
	Name            string
	Category        *string
	PreferredUnit   string
	MinimumQuantity *float64
	MinimumUnit     *string
}

// UpdateItemInput patches the non-nil fields. Version is the item version the caller last observed.
type UpdateItemInput struct {
	ID              string
	UserID          string
	Version         int64
	Name            *string
	Category        *string
	PreferredUnit   *string
	MinimumQuantity *float64
	MinimumUnit     *string
}

type DeleteItemInput struct {
	ID      string
	UserID  string
	Version int64
}
