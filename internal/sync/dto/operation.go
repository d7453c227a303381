package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OpInventoryAdjustment OperationType = "INVENTORY_ADJUSTMENT"
	OpItemCreate          OperationType = "ITEM_CREATE"
	OpItemUpdate          OperationType = "ITEM_UPDATE"
	OpItemDelete          OperationType = "ITEM_DELETE"
)

// ClientOperation is an operation as queued by an offline client.
type ClientOperation struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Version int64           `json:"version"`
}

// Payload is the decoded data of a ClientOperation. The set of variants is closed.
type Payload interface {
	isPayload()
}

type AdjustmentAction string

const (
	ActionAdd    AdjustmentAction = "add"
	ActionDeduct AdjustmentAction = "deduct"
	ActionSet    AdjustmentAction = "set"
)

type InventoryAdjustment struct {
	ItemID   string           `json:"itemId"`
	Action   AdjustmentAction `json:"action"`
	Quantity *float64         `json:"quantity"`
	Unit     string           `json:"unit"`
	Reason   *string          `json:"reason,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`

	// CostMinor is Price in minor currency units, filled in by DecodeOperations.
	CostMinor *int64 `json:"-"`
}

type ItemCreate struct {
	ID              string   `json:"id,omitempty"`
	HouseholdID     string   `json:"householdId,omitempty"`
	Name            string   `json:"name"`
	Category        *string  `json:"category,omitempty"`
	PreferredUnit   string   `json:"preferredUnit"`
	MinimumQuantity *float64 `json:"minimumQuantity,omitempty"`
	MinimumUnit     *string  `json:"minimumUnit,omitempty"`
}

type ItemUpdate struct {
	ItemID          string   `json:"itemId"`
	Name            *string  `json:"name,omitempty"`
	Category        *string  `json:"category,omitempty"`
	PreferredUnit   *string  `json:"preferredUnit,omitempty"`
	MinimumQuantity *float64 `json:"minimumQuantity,omitempty"`
	MinimumUnit     *string  `json:"minimumUnit,omitempty"`
}

type ItemDelete struct {
	ItemID string `json:"itemId"`
}

// UnsupportedOperation stands in for an operation type the server does not handle.
type UnsupportedOperation struct {
	Type string
}

func (*InventoryAdjustment) isPayload()  {}
func (*ItemCreate) isPayload()           {}
func (*ItemUpdate) isPayload()           {}
func (*ItemDelete) isPayload()           {}
func (*UnsupportedOperation) isPayload() {}

// Operation pairs a client operation with its decoded payload. Err is set when the
// operation cannot be applied as submitted; Payload may then be nil.
type Operation struct {
	Client  ClientOperation
	Payload Payload
	Err     error
}

// ItemID returns the item the operation targets, or "" when it targets none yet.
func (o *Operation) ItemID() string {
	switch p := o.Payload.(type) {
	case *InventoryAdjustment:
		return p.ItemID
	case *ItemUpdate:
		return p.ItemID
	case *ItemDelete:
		return p.ItemID
	case *ItemCreate:
		return p.ID
	}
	return ""
}

// DecodeOperations decodes every operation once. Failures are kept per operation so one
// malformed entry does not reject the batch.
func DecodeOperations(ops []ClientOperation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		payload, err := decode(op)
		out[i] = Operation{Client: op, Payload: payload, Err: err}
	}
	return out
}

func decode(op ClientOperation) (Payload, error) {
	switch OperationType(strings.ToUpper(strings.TrimSpace(op.Type))) {
	case OpInventoryAdjustment:
		var p InventoryAdjustment
		if err := unmarshal(op.Data, &p); err != nil {
			return nil, err
		}
		return &p, p.validate()
	case OpItemCreate:
		var p ItemCreate
		if err := unmarshal(op.Data, &p); err != nil {
			return nil, err
		}
		return &p, p.validate()
	case OpItemUpdate:
		var p ItemUpdate
		if err := unmarshal(op.Data, &p); err != nil {
			return nil, err
		}
		return &p, requireItemID(p.ItemID)
	case OpItemDelete:
		var p ItemDelete
		if err := unmarshal(op.Data, &p); err != nil {
			return nil, err
		}
		return &p, requireItemID(p.ItemID)
	default:
		return &UnsupportedOperation{Type: op.Type}, fmt.Errorf("%w: %q", model.ErrUnsupportedOperationType, op.Type)
	}
}

func unmarshal(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: missing data", model.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidPayload, err)
	}
	return nil
}

func requireItemID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: itemId is required", model.ErrInvalidPayload)
	}
	return nil
}

func (p *InventoryAdjustment) validate() error {
	if err := requireItemID(p.ItemID); err != nil {
		return err
	}
	p.Action = AdjustmentAction(strings.ToLower(string(p.Action)))
	switch p.Action {
	case "":
		p.Action = ActionSet
	case ActionAdd, ActionDeduct, ActionSet:
	default:
		return fmt.Errorf("%w: unknown action %q", model.ErrInvalidPayload, p.Action)
	}
	if p.Quantity == nil {
		return fmt.Errorf("%w: quantity is required", model.ErrInvalidPayload)
	}
	if math.IsNaN(*p.Quantity) || math.IsInf(*p.Quantity, 0) {
		return fmt.Errorf("%w: quantity %v", unit.ErrInvalidQuantity, *p.Quantity)
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return fmt.Errorf("%w: negative price %s", model.ErrInvalidPayload, p.Price)
		}
		minor := unit.ToMinorUnits(*p.Price)
		p.CostMinor = &minor
	}
	return nil
}

func (p *ItemCreate) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidPayload)
	}
	if strings.TrimSpace(p.PreferredUnit) == "" {
		return fmt.Errorf("%w: preferredUnit is required", model.ErrInvalidPayload)
	}
	return nil
}
