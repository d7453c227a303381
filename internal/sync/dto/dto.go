package dto

import (
	"encoding/json"
	"time"

	"github.com/fekuna/pantry-service/internal/model"
)

type SyncRequest struct {
	UserID            string
	ClientID          string
	LastSyncTimestamp *time.Time
	Operations        []ClientOperation
}

type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultFailed  ResultStatus = "FAILED"
)

type OperationResult struct {
	OperationID string          `json:"operationId"`
	Type        string          `json:"type"`
	Status      ResultStatus    `json:"status"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	Error       string          `json:"error,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Duplicate   bool            `json:"duplicate,omitempty"`
}

const (
	ConflictVersion      = "VERSION_CONFLICT"
	ResolutionServerWins = "SERVER_WINS"
)

type Conflict struct {
	Type            string             `json:"type"`
	ClientOperation ClientOperation    `json:"clientOperation"`
	ServerChange    model.ServerChange `json:"serverChange"`
	Resolution      string             `json:"resolution"`
}

type SyncResult struct {
	SyncID        string               `json:"syncId"`
	Status        model.SyncStatus     `json:"status"`
	ServerChanges []model.ServerChange `json:"serverChanges"`
	ClientResults []OperationResult    `json:"clientResults"`
	Conflicts     []Conflict           `json:"conflicts"`
	// Timestamp is the watermark the client passes as its next lastSyncTimestamp.
	Timestamp time.Time `json:"timestamp"`
}
