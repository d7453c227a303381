package pantryv1

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ClientOperation struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Version int64           `json:"version"`
}

type InitiateSyncRequest struct {
	LastSyncTimestamp *time.Time        `json:"lastSyncTimestamp,omitempty"`
	Operations        []ClientOperation `json:"operations"`
}

type ServerChange struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	ItemID     string          `json:"itemId"`
	Action     string          `json:"action"`
	Version    int64           `json:"version,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type OperationResult struct {
	OperationID string          `json:"operationId"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	Error       string          `json:"error,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Duplicate   bool            `json:"duplicate,omitempty"`
}

type Conflict struct {
	Type            string          `json:"type"`
	ClientOperation ClientOperation `json:"clientOperation"`
	ServerChange    ServerChange    `json:"serverChange"`
	Resolution      string          `json:"resolution"`
}

type InitiateSyncResponse struct {
	SyncID        string            `json:"syncId"`
	Status        string            `json:"status"`
	ServerChanges []ServerChange    `json:"serverChanges"`
	ClientResults []OperationResult `json:"clientResults"`
	Conflicts     []Conflict        `json:"conflicts"`
	Timestamp     time.Time         `json:"timestamp"`
}

type SyncTransaction struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	ClientID            string     `json:"clientId"`
	Status              string     `json:"status"`
	StartTime           time.Time  `json:"startTime"`
	EndTime             *time.Time `json:"endTime,omitempty"`
	OperationsProcessed int        `json:"operationsProcessed"`
	ServerChangesCount  int        `json:"serverChangesCount"`
	ConflictsResolved   int        `json:"conflictsResolved"`
	ErrorMessage        string     `json:"errorMessage,omitempty"`
	LastSyncTimestamp   *time.Time `json:"lastSyncTimestamp,omitempty"`
}

type GetSyncStatusRequest struct {
	SyncID string `json:"syncId"`
}

type GetSyncStatusResponse struct {
	Transaction *SyncTransaction `json:"transaction"`
}

type GetPendingOperationsRequest struct {
	// ClientID overrides the x-client-id header when set.
	ClientID string `json:"clientId,omitempty"`
}

type GetPendingOperationsResponse struct {
	Transactions []SyncTransaction `json:"transactions"`
}

type SyncServiceServer interface {
	InitiateSync(context.Context, *InitiateSyncRequest) (*InitiateSyncResponse, error)
	GetSyncStatus(context.Context, *GetSyncStatusRequest) (*GetSyncStatusResponse, error)
	GetPendingOperations(context.Context, *GetPendingOperationsRequest) (*GetPendingOperationsResponse, error)
}

type UnimplementedSyncServiceServer struct{}

func (UnimplementedSyncServiceServer) InitiateSync(context.Context, *InitiateSyncRequest) (*InitiateSyncResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InitiateSync not implemented")
}

func (UnimplementedSyncServiceServer) GetSyncStatus(context.Context, *GetSyncStatusRequest) (*GetSyncStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSyncStatus not implemented")
}

func (UnimplementedSyncServiceServer) GetPendingOperations(context.Context, *GetPendingOperationsRequest) (*GetPendingOperationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPendingOperations not implemented")
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&SyncService_ServiceDesc, srv)
}

var SyncService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pantry.v1.SyncService",
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "InitiateSync",
			Handler:    unaryHandler("/pantry.v1.SyncService/InitiateSync", SyncServiceServer.InitiateSync),
		},
		{
			MethodName: "GetSyncStatus",
			Handler:    unaryHandler("/pantry.v1.SyncService/GetSyncStatus", SyncServiceServer.GetSyncStatus),
		},
		{
			MethodName: "GetPendingOperations",
			Handler:    unaryHandler("/pantry.v1.SyncService/GetPendingOperations", SyncServiceServer.GetPendingOperations),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/sync",
}

type SyncServiceClient interface {
	InitiateSync(ctx context.Context, in *InitiateSyncRequest, opts ...grpc.CallOption) (*InitiateSyncResponse, error)
	GetSyncStatus(ctx context.Context, in *GetSyncStatusRequest, opts ...grpc.CallOption) (*GetSyncStatusResponse, error)
	GetPendingOperations(ctx context.Context, in *GetPendingOperationsRequest, opts ...grpc.CallOption) (*GetPendingOperationsResponse, error)
}

type syncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) SyncServiceClient {
	return &syncServiceClient{cc: cc}
}

func (c *syncServiceClient) InitiateSync(ctx context.Context, in *InitiateSyncRequest, opts ...grpc.CallOption) (*InitiateSyncResponse, error) {
	out := new(InitiateSyncResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.SyncService/InitiateSync", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncServiceClient) GetSyncStatus(ctx context.Context, in *GetSyncStatusRequest, opts ...grpc.CallOption) (*GetSyncStatusResponse, error) {
	out := new(GetSyncStatusResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.SyncService/GetSyncStatus", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncServiceClient) GetPendingOperations(ctx context.Context, in *GetPendingOperationsRequest, opts ...grpc.CallOption) (*GetPendingOperationsResponse, error) {
	out := new(GetPendingOperationsResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.SyncService/GetPendingOperations", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
