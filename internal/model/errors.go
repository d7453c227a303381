package model

import (
	"errors"
	"fmt"

	"github.com/fekuna/pantry-service/internal/unit"
)

var (
	ErrItemNotFound             = errors.New("item not found")
	ErrItemExists               = errors.New("item already exists")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrNoAdjustmentNeeded       = errors.New("no adjustment needed")
	ErrOutdatedVersion          = errors.New("outdated version")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidPayload           = errors.New("invalid operation payload")
	ErrOperationInProgress      = errors.New("operation already in progress")
	ErrInfrastructure           = errors.New("infrastructure failure")
	ErrSyncNotFound             = errors.New("sync transaction not found")
	ErrSyncFinalized            = errors.New("sync transaction already finalized")
)

// InsufficientStockError carries the amounts, in base units, behind a refused deduction.
type InsufficientStockError struct {
	Current   int64
	Requested int64
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: current %d%s, requested %d%s", e.Current, e.Unit, e.Requested, e.Unit)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// VersionConflictError is returned when a client edit was based on an older item version.
type VersionConflictError struct {
	ItemID        string
	ClientVersion int64
	ServerVersion int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("outdated version for item %s: client %d, server %d", e.ItemID, e.ClientVersion, e.ServerVersion)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrOutdatedVersion
}

// Error codes reported in per-operation sync results.
const (
	CodeInvalidQuantity          = "InvalidQuantity"
	CodeUnsupportedUnit          = "UnsupportedUnit"
	CodeIncompatibleUnits        = "IncompatibleUnits"
	CodeItemNotFound             = "ItemNotFound"
	CodeItemExists               = "ItemExists"
	CodeInsufficientStock        = "InsufficientStock"
	CodeNoAdjustmentNeeded       = "NoAdjustmentNeeded"
	CodeOutdatedVersion          = "OutdatedVersion"
	CodeUnsupportedOperationType = "UnsupportedOperationType"
	CodeInvalidPayload           = "InvalidPayload"
	CodeOperationInProgress      = "OperationInProgress"
	CodeInfrastructureFailure    = "InfrastructureFailure"
)

// ErrorCode maps err onto the error taxonomy. Anything unrecognized is an infrastructure failure.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, unit.ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, unit.ErrUnsupportedUnit):
		return CodeUnsupportedUnit
	case errors.Is(err, unit.ErrIncompatibleUnits):
		return CodeIncompatibleUnits
	case errors.Is(err, ErrItemNotFound):
		return CodeItemNotFound
	case errors.Is(err, ErrItemExists):
		return CodeItemExists
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrNoAdjustmentNeeded):
		return CodeNoAdjustmentNeeded
	case errors.Is(err, ErrOutdatedVersion):
		return CodeOutdatedVersion
	case errors.Is(err, ErrUnsupportedOperationType):
		return CodeUnsupportedOperationType
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrOperationInProgress):
		return CodeOperationInProgress
	default:
		return CodeInfrastructureFailure
	}
}
