package pantryv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type AddStockRequest struct {
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Reason   string  `json:"reason,omitempty"`
	// Price is a decimal string in the household currency, e.g. "3.99".
	Price string `json:"price,omitempty"`
}

type DeductStockRequest struct {
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Reason   string  `json:"reason,omitempty"`
}

type AdjustStockRequest struct {
	ItemID      string  `json:"itemId"`
	NewQuantity float64 `json:"newQuantity"`
	Unit        string  `json:"unit"`
	Reason      string  `json:"reason,omitempty"`
	Price       string  `json:"price,omitempty"`
}

type StockEntry struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"itemId"`
	UserID        string    `json:"userId"`
	QuantityBase  int64     `json:"quantityBase"`
	UnitType      string    `json:"unitType"`
	BaseUnit      string    `json:"baseUnit"`
	OperationType string    `json:"operationType"`
	Direction     string    `json:"direction"`
	Reason        string    `json:"reason,omitempty"`
	CostMinor     *int64    `json:"costMinor,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type StockResponse struct {
	Entry        *StockEntry `json:"entry"`
	CurrentStock int64       `json:"currentStock"`
	BaseUnit     string      `json:"baseUnit"`
	DisplayStock float64     `json:"displayStock"`
	DisplayUnit  string      `json:"displayUnit"`
}

type GetCurrentStockRequest struct {
	ItemID string `json:"itemId"`
}

type GetCurrentStockResponse struct {
	ItemID       string `json:"itemId"`
	CurrentStock int64  `json:"currentStock"`
}

type GetStockHistoryRequest struct {
	ItemID        string     `json:"itemId"`
	OperationType string     `json:"operationType,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
}

type GetStockHistoryResponse struct {
	Entries []StockEntry `json:"entries"`
	Total   int          `json:"total"`
}

type CheckReorderThresholdsRequest struct {
	HouseholdID string `json:"householdId"`
}

type ReorderAlert struct {
	ItemID          string `json:"itemId"`
	ItemName        string `json:"itemName"`
	CurrentStock    int64  `json:"currentStock"`
	MinimumQuantity int64  `json:"minimumQuantity"`
	Unit            string `json:"unit"`
}

type CheckReorderThresholdsResponse struct {
	Alerts []ReorderAlert `json:"alerts"`
}

type LedgerServiceServer interface {
	AddStock(context.Context, *AddStockRequest) (*StockResponse, error)
	DeductStock(context.Context, *DeductStockRequest) (*StockResponse, error)
	AdjustStock(context.Context, *AdjustStockRequest) (*StockResponse, error)
	GetCurrentStock(context.Context, *GetCurrentStockRequest) (*GetCurrentStockResponse, error)
	GetStockHistory(context.Context, *GetStockHistoryRequest) (*GetStockHistoryResponse, error)
	CheckReorderThresholds(context.Context, *CheckReorderThresholdsRequest) (*CheckReorderThresholdsResponse, error)
}

type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) AddStock(context.Context, *AddStockRequest) (*StockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddStock not implemented")
}

func (UnimplementedLedgerServiceServer) DeductStock(context.Context, *DeductStockRequest) (*StockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeductStock not implemented")
}

func (UnimplementedLedgerServiceServer) AdjustStock(context.Context, *AdjustStockRequest) (*StockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AdjustStock not implemented")
}

func (UnimplementedLedgerServiceServer) GetCurrentStock(context.Context, *GetCurrentStockRequest) (*GetCurrentStockResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCurrentStock not implemented")
}

func (UnimplementedLedgerServiceServer) GetStockHistory(context.Context, *GetStockHistoryRequest) (*GetStockHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStockHistory not implemented")
}

func (UnimplementedLedgerServiceServer) CheckReorderThresholds(context.Context, *CheckReorderThresholdsRequest) (*CheckReorderThresholdsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckReorderThresholds not implemented")
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pantry.v1.LedgerService",
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddStock",
			Handler:    unaryHandler("/pantry.v1.LedgerService/AddStock", LedgerServiceServer.AddStock),
		},
		{
			MethodName: "DeductStock",
			Handler:    unaryHandler("/pantry.v1.LedgerService/DeductStock", LedgerServiceServer.DeductStock),
		},
		{
			MethodName: "AdjustStock",
			Handler:    unaryHandler("/pantry.v1.LedgerService/AdjustStock", LedgerServiceServer.AdjustStock),
		},
		{
			MethodName: "GetCurrentStock",
			Handler:    unaryHandler("/pantry.v1.LedgerService/GetCurrentStock", LedgerServiceServer.GetCurrentStock),
		},
		{
			MethodName: "GetStockHistory",
			Handler:    unaryHandler("/pantry.v1.LedgerService/GetStockHistory", LedgerServiceServer.GetStockHistory),
		},
		{
			MethodName: "CheckReorderThresholds",
			Handler:    unaryHandler("/pantry.v1.LedgerService/CheckReorderThresholds", LedgerServiceServer.CheckReorderThresholds),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/ledger",
}

type LedgerServiceClient interface {
	AddStock(ctx context.Context, in *AddStockRequest, opts ...grpc.CallOption) (*StockResponse, error)
	DeductStock(ctx context.Context, in *DeductStockRequest, opts ...grpc.CallOption) (*StockResponse, error)
	AdjustStock(ctx context.Context, in *AdjustStockRequest, opts ...grpc.CallOption) (*StockResponse, error)
	GetCurrentStock(ctx context.Context, in *GetCurrentStockRequest, opts ...grpc.CallOption) (*GetCurrentStockResponse, error)
	GetStockHistory(ctx context.Context, in *GetStockHistoryRequest, opts ...grpc.CallOption) (*GetStockHistoryResponse, error)
	CheckReorderThresholds(ctx context.Context, in *CheckReorderThresholdsRequest, opts ...grpc.CallOption) (*CheckReorderThresholdsResponse, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func (c *ledgerServiceClient) AddStock(ctx context.Context, in *AddStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/AddStock", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) DeductStock(ctx context.Context, in *DeductStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/DeductStock", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) AdjustStock(ctx context.Context, in *AdjustStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	out := new(StockResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/AdjustStock", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetCurrentStock(ctx context.Context, in *GetCurrentStockRequest, opts ...grpc.CallOption) (*GetCurrentStockResponse, error) {
	out := new(GetCurrentStockResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/GetCurrentStock", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) GetStockHistory(ctx context.Context, in *GetStockHistoryRequest, opts ...grpc.CallOption) (*GetStockHistoryResponse, error) {
	out := new(GetStockHistoryResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/GetStockHistory", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) CheckReorderThresholds(ctx context.Context, in *CheckReorderThresholdsRequest, opts ...grpc.CallOption) (*CheckReorderThresholdsResponse, error) {
	out := new(CheckReorderThresholdsResponse)
	if err := invoke(ctx, c.cc, "/pantry.v1.LedgerService/CheckReorderThresholds", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
