package model

import (
	"encoding/json"
	"time"
)

type SyncStatus string

const (
	SyncInProgress SyncStatus = "IN_PROGRESS"
	SyncCompleted  SyncStatus = "COMPLETED"
	SyncFailed     SyncStatus = "FAILED"
)

func (s SyncStatus) Terminal() bool {
	return s == SyncCompleted || s == SyncFailed
}

// SyncTransaction records one reconciliation attempt. It is written only by the call that created it.
type SyncTransaction struct {
	ID                  string     `db:"id" json:"id"`
	UserID              string     `db:"user_id" json:"userId"`
	ClientID            string     `db:"client_id" json:"clientId"`
	Status              SyncStatus `db:"status" json:"status"`
	StartTime           time.Time  `db:"start_time" json:"startTime"`
	EndTime             *time.Time `db:"end_time" json:"endTime,omitempty"`
	OperationsProcessed int        `db:"operations_processed" json:"operationsProcessed"`
	ServerChangesCount  int        `db:"server_changes_count" json:"serverChangesCount"`
	ConflictsResolved   int        `db:"conflicts_resolved" json:"conflictsResolved"`
	ErrorMessage        *string    `db:"error_message" json:"errorMessage,omitempty"`
	LastSyncTimestamp   *time.Time `db:"last_sync_timestamp" json:"lastSyncTimestamp,omitempty"`
}

type SyncCounts struct {
	OperationsProcessed int
	ServerChangesCount  int
	ConflictsResolved   int
}

type EntityType string

const (
	EntityItem       EntityType = "item"
	EntityStockEntry EntityType = "stock_entry"
)

type ChangeAction string

const (
	ChangeCreated     ChangeAction = "created"
	ChangeUpdated     ChangeAction = "updated"
	ChangeDeleted     ChangeAction = "deleted"
	ChangeStockAdd    ChangeAction = "stock_add"
	ChangeStockDeduct ChangeAction = "stock_deduct"
	ChangeStockAdjust ChangeAction = "stock_adjust"
)

// ServerChange is a committed mutation the client has not seen yet.
type ServerChange struct {
	EntityType EntityType      `json:"entityType"`
	EntityID   string          `json:"entityId"`
	ItemID     string          `json:"itemId"`
	Action     ChangeAction    `json:"action"`
	Version    int64           `json:"version,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}
