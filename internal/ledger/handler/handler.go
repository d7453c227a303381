package handler

import (
	"context"

	"github.com/fekuna/pantry-service/api/pantryv1"
	"github.com/fekuna/pantry-service/internal/auth"
	"github.com/fekuna/pantry-service/internal/grpcerr"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type LedgerHandler struct {
	pantryv1.UnimplementedLedgerServiceServer

	uc     ledger.UseCase
	logger logger.ZapLogger
}

func NewLedgerHandler(uc ledger.UseCase, log logger.ZapLogger) *LedgerHandler {
	return &LedgerHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LedgerHandler) AddStock(ctx context.Context, req *pantryv1.AddStockRequest) (*pantryv1.StockResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}
	cost, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	res, err := h.uc.AddStock(ctx, &dto.AddStockInput{
		ItemID:    req.ItemID,
		UserID:    userID,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Reason:    optional(req.Reason),
		CostMinor: cost,
	})
	if err != nil {
		return nil, h.fail("failed to add stock", err)
	}
	return mapStockResultToProto(res), nil
}

func (h *LedgerHandler) DeductStock(ctx context.Context, req *pantryv1.DeductStockRequest) (*pantryv1.StockResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	res, err := h.uc.DeductStock(ctx, &dto.DeductStockInput{
		ItemID:   req.ItemID,
		UserID:   userID,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Reason:   optional(req.Reason),
	})
	if err != nil {
		return nil, h.fail("failed to deduct stock", err)
	}
	return mapStockResultToProto(res), nil
}

func (h *LedgerHandler) AdjustStock(ctx context.Context, req *pantryv1.AdjustStockRequest) (*pantryv1.StockResponse, error) {
	userID := auth.GetUserID(ctx)
	if userID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}
	cost, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	res, err := h.uc.AdjustStock(ctx, &dto.AdjustStockInput{
		ItemID:      req.ItemID,
		UserID:      userID,
		NewQuantity: req.NewQuantity,
		Unit:        req.Unit,
		Reason:      optional(req.Reason),
		CostMinor:   cost,
	})
	if err != nil {
		return nil, h.fail("failed to adjust stock", err)
	}
	return mapStockResultToProto(res), nil
}

func (h *LedgerHandler) GetCurrentStock(ctx context.Context, req *pantryv1.GetCurrentStockRequest) (*pantryv1.GetCurrentStockResponse, error) {
	stock, err := h.uc.GetCurrentStock(ctx, req.ItemID)
	if err != nil {
		return nil, h.fail("failed to get current stock", err)
	}
	return &pantryv1.GetCurrentStockResponse{ItemID: req.ItemID, CurrentStock: stock}, nil
}

func (h *LedgerHandler) GetStockHistory(ctx context.Context, req *pantryv1.GetStockHistoryRequest) (*pantryv1.GetStockHistoryResponse, error) {
	entries, total, err := h.uc.GetStockHistory(ctx, &dto.HistoryFilters{
		ItemID:        req.ItemID,
		OperationType: model.OperationType(req.OperationType),
		From:          req.From,
		To:            req.To,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		return nil, h.fail("failed to get stock history", err)
	}

	protos := make([]pantryv1.StockEntry, len(entries))
	for i := range entries {
		protos[i] = *mapEntryToProto(&entries[i])
	}
	return &pantryv1.GetStockHistoryResponse{Entries: protos, Total: total}, nil
}

func (h *LedgerHandler) CheckReorderThresholds(ctx context.Context, req *pantryv1.CheckReorderThresholdsRequest) (*pantryv1.CheckReorderThresholdsResponse, error) {
	householdID := req.HouseholdID
	if householdID == "" {
		householdID = auth.GetUserID(ctx)
	}
	if householdID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing household")
	}

	alerts, err := h.uc.CheckReorderThresholds(ctx, householdID)
	if err != nil {
		return nil, h.fail("failed to check reorder thresholds", err)
	}

	protos := make([]pantryv1.ReorderAlert, len(alerts))
	for i, a := range alerts {
		protos[i] = pantryv1.ReorderAlert{
			ItemID:          a.ItemID,
			ItemName:        a.ItemName,
			CurrentStock:    a.CurrentStock,
			MinimumQuantity: a.MinimumQuantity,
			Unit:            a.Unit,
		}
	}
	return &pantryv1.CheckReorderThresholdsResponse{Alerts: protos}, nil
}

func (h *LedgerHandler) fail(msg string, err error) error {
	st := grpcerr.ToStatus(err)
	if status.Code(st) == codes.Internal {
		h.logger.Error(msg, zap.Error(err))
	}
	return st
}

func parsePrice(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid price %q", raw)
	}
	minor := unit.ToMinorUnits(d)
	return &minor, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapStockResultToProto(res *dto.StockResult) *pantryv1.StockResponse {
	return &pantryv1.StockResponse{
		Entry:        mapEntryToProto(res.Entry),
		CurrentStock: res.CurrentStock,
		BaseUnit:     res.BaseUnit,
		DisplayStock: res.DisplayStock,
		DisplayUnit:  res.DisplayUnit,
	}
}

func mapEntryToProto(e *model.StockEntry) *pantryv1.StockEntry {
	out := &pantryv1.StockEntry{
		ID:            e.ID,
		ItemID:        e.ItemID,
		UserID:        e.UserID,
		QuantityBase:  e.QuantityBase,
		UnitType:      e.UnitType,
		BaseUnit:      e.BaseUnit,
		OperationType: string(e.OperationType),
		Direction:     string(e.Direction),
		CostMinor:     e.CostMinor,
		CreatedAt:     e.CreatedAt,
	}
	if e.Reason != nil {
		out.Reason = *e.Reason
	}
	return out
}
