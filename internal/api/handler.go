// Package api serves the receipt operations over Connect RPC with JSON messages.
package api

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/service"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

// ServiceName is the fully-qualified name of the receipt service.
const ServiceName = "receipts.v1.ReceiptService"

// Procedure paths, relative to the server root.
const (
	ListReceiptsProcedure   = "/" + ServiceName + "/ListReceipts"
	GetReceiptProcedure     = "/" + ServiceName + "/GetReceipt"
	CreateReceiptProcedure  = "/" + ServiceName + "/CreateReceipt"
	AddItemProcedure        = "/" + ServiceName + "/AddItem"
	RemoveItemProcedure     = "/" + ServiceName + "/RemoveItem"
	DeleteReceiptProcedure  = "/" + ServiceName + "/DeleteReceipt"
	ComputeSummaryProcedure = "/" + ServiceName + "/ComputeSummary"
	GetBalancesProcedure    = "/" + ServiceName + "/GetBalances"
)

// Handler implements the receipt RPCs on top of a ReceiptService.
type Handler struct {
	svc *service.ReceiptService
}

// NewHandler creates a Handler.
func NewHandler(svc *service.ReceiptService) *Handler {
	return &Handler{svc: svc}
}

// NewReceiptServiceHandler builds an HTTP handler serving every receipt RPC.
// It returns the path prefix to mount it on.
func NewReceiptServiceHandler(h *Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListReceiptsProcedure, connect.NewUnaryHandler(ListReceiptsProcedure, h.ListReceipts, opts...))
	mux.Handle(GetReceiptProcedure, connect.NewUnaryHandler(GetReceiptProcedure, h.GetReceipt, opts...))
	mux.Handle(CreateReceiptProcedure, connect.NewUnaryHandler(CreateReceiptProcedure, h.CreateReceipt, opts...))
	mux.Handle(AddItemProcedure, connect.NewUnaryHandler(AddItemProcedure, h.AddItem, opts...))
	mux.Handle(RemoveItemProcedure, connect.NewUnaryHandler(RemoveItemProcedure, h.RemoveItem, opts...))
	mux.Handle(DeleteReceiptProcedure, connect.NewUnaryHandler(DeleteReceiptProcedure, h.DeleteReceipt, opts...))
	mux.Handle(ComputeSummaryProcedure, connect.NewUnaryHandler(ComputeSummaryProcedure, h.ComputeSummary, opts...))
	mux.Handle(GetBalancesProcedure, connect.NewUnaryHandler(GetBalancesProcedure, h.GetBalances, opts...))
	return "/" + ServiceName + "/", mux
}

// ListReceipts returns every readable receipt. Skipped records come back as warnings.
func (h *Handler) ListReceipts(
	ctx context.Context,
	req *connect.Request[ListReceiptsRequest],
) (*connect.Response[ListReceiptsResponse], error) {
	receipts, warnings, err := h.svc.ListReceipts(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &ListReceiptsResponse{
		Receipts: make([]Receipt, len(receipts)),
		Warnings: warningsToWire(warnings),
	}
	for i, r := range receipts {
		resp.Receipts[i] = receiptToWire(r)
	}
	return connect.NewResponse(resp), nil
}

// GetReceipt returns one receipt by id.
func (h *Handler) GetReceipt(
	ctx context.Context,
	req *connect.Request[GetReceiptRequest],
) (*connect.Response[GetReceiptResponse], error) {
	r, err := h.svc.OpenReceipt(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetReceiptResponse{Receipt: receiptToWire(r)}), nil
}

// CreateReceipt stores a new empty receipt and returns its id.
func (h *Handler) CreateReceipt(
	ctx context.Context,
	req *connect.Request[CreateReceiptRequest],
) (*connect.Response[CreateReceiptResponse], error) {
	header := service.ReceiptHeader{
		Name:  req.Msg.Name,
		Buyer: req.Msg.Buyer,
		Payee: req.Msg.Payee,
	}
	if req.Msg.Date != nil {
		date, err := models.ParseDate(*req.Msg.Date)
		if err != nil {
			return nil, toConnectError(&models.ValidationError{Field: "date", Reason: err.Error()})
		}
		header.Date = &date
	}

	id, err := h.svc.CreateReceipt(ctx, header)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateReceiptResponse{ID: id}), nil
}

// AddItem appends an item to a receipt and returns the updated receipt.
func (h *Handler) AddItem(
	ctx context.Context,
	req *connect.Request[AddItemRequest],
) (*connect.Response[AddItemResponse], error) {
	r, err := h.svc.AddItem(ctx, req.Msg.ReceiptID, service.ItemInput{
		Name:      req.Msg.Name,
		Cost:      req.Msg.Cost,
		TaxRate:   req.Msg.Tax,
		TipRate:   req.Msg.Tip,
		ShouldTax: req.Msg.ShouldTax,
		Users:     req.Msg.Users,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddItemResponse{Receipt: receiptToWire(r)}), nil
}

// RemoveItem deletes an item by position and returns the updated receipt.
func (h *Handler) RemoveItem(
	ctx context.Context,
	req *connect.Request[RemoveItemRequest],
) (*connect.Response[RemoveItemResponse], error) {
	r, err := h.svc.RemoveItem(ctx, req.Msg.ReceiptID, req.Msg.Index)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RemoveItemResponse{Receipt: receiptToWire(r)}), nil
}

// DeleteReceipt removes a receipt.
func (h *Handler) DeleteReceipt(
	ctx context.Context,
	req *connect.Request[DeleteReceiptRequest],
) (*connect.Response[DeleteReceiptResponse], error) {
	if err := h.svc.DeleteReceipt(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteReceiptResponse{}), nil
}

// ComputeSummary returns the totals and per-person amounts of a receipt.
func (h *Handler) ComputeSummary(
	ctx context.Context,
	req *connect.Request[ComputeSummaryRequest],
) (*connect.Response[ComputeSummaryResponse], error) {
	s, err := h.svc.ComputeSummary(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(summaryToWire(req.Msg.ID, s)), nil
}

// GetBalances returns net balances and suggested payments across all receipts.
func (h *Handler) GetBalances(
	ctx context.Context,
	req *connect.Request[GetBalancesRequest],
) (*connect.Response[GetBalancesResponse], error) {
	balances, edges, warnings, err := h.svc.Balances(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &GetBalancesResponse{Warnings: warningsToWire(warnings)}
	resp.Balances, resp.Debts = balancesToWire(balances, edges)
	return connect.NewResponse(resp), nil
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, calculator.ErrNoPeople):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrStorageUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
