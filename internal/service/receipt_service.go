// Package service exposes the receipt operations used by the CLI and the RPC API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

// ReceiptService reads, edits and summarizes stored receipts.
type ReceiptService struct {
	store    storage.Store
	defaults models.Defaults
}

// NewReceiptService creates a ReceiptService on the given storage backend.
// defaults supplies the tax rate for items added without one.
func NewReceiptService(store storage.Store, defaults models.Defaults) *ReceiptService {
	return &ReceiptService{store: store, defaults: defaults}
}

// ReceiptHeader is the metadata needed to create a receipt.
type ReceiptHeader struct {
	Name  string
	Buyer string
	Payee *string
	Date  *time.Time
}

// ItemInput describes an item to add. Nil rates and flags take the defaults:
// the configured tax rate, no tip, taxed.
type ItemInput struct {
	Name      string
	Cost      decimal.Decimal
	TaxRate   *decimal.Decimal
	TipRate   *decimal.Decimal
	ShouldTax *bool
	Users     []string
}

// ListReceipts returns every readable receipt plus a warning for each record that was skipped.
func (s *ReceiptService) ListReceipts(ctx context.Context) ([]*models.Receipt, []storage.Warning, error) {
	receipts, warnings, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, warnings, nil
}

// OpenReceipt loads a receipt by id.
func (s *ReceiptService) OpenReceipt(ctx context.Context, id int64) (*models.Receipt, error) {
	return s.store.Get(ctx, id)
}

// OpenLastReceipt loads the receipt recorded as last opened. It returns
// storage.ErrNotFound if none is recorded or the receipt no longer exists.
func (s *ReceiptService) OpenLastReceipt(ctx context.Context, lastID *int64) (*models.Receipt, error) {
	if lastID == nil {
		return nil, fmt.Errorf("%w: no receipt has been opened yet", storage.ErrNotFound)
	}
	return s.store.Get(ctx, *lastID)
}

// NextID reports the id the next created receipt will get.
func (s *ReceiptService) NextID(ctx context.Context) (int64, error) {
	return s.store.NextID(ctx)
}

// CreateReceipt allocates a new id, stores an empty receipt under it and returns the id.
func (s *ReceiptService) CreateReceipt(ctx context.Context, header ReceiptHeader) (int64, error) {
	if strings.TrimSpace(header.Name) == "" {
		return 0, &models.ValidationError{Field: "name", Reason: "field is required"}
	}
	if strings.TrimSpace(header.Buyer) == "" {
		return 0, &models.ValidationError{Field: "buyer", Reason: "field is required"}
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate receipt id: %w", err)
	}

	receipt := models.NewReceipt(id, header.Name, header.Buyer, header.Payee, header.Date)
	if err := s.store.Save(ctx, receipt); err != nil {
		return 0, fmt.Errorf("failed to save receipt: %w", err)
	}

	slog.Info("Receipt created", "receipt_id", id, "name", header.Name)
	return id, nil
}

// AddItem appends an item to a stored receipt and returns the updated receipt.
func (s *ReceiptService) AddItem(ctx context.Context, receiptID int64, in ItemInput) (*models.Receipt, error) {
	if len(in.Users) == 0 {
		return nil, &models.ValidationError{Field: "users", Reason: "at least one user must share the item"}
	}

	taxRate := s.defaults.TaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	tipRate := decimal.Zero
	if in.TipRate != nil {
		tipRate = *in.TipRate
	}
	shouldTax := true
	if in.ShouldTax != nil {
		shouldTax = *in.ShouldTax
	}

	item, err := models.NewItem(in.Name, in.Cost, taxRate, tipRate, shouldTax, in.Users)
	if err != nil {
		return nil, err
	}

	receipt, err := s.store.Get(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	receipt.AddItem(*item)
	if err := s.store.Save(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}

	slog.Debug("Item added",
		"receipt_id", receiptID,
		"item", item.Name,
		"cost", item.Cost.String(),
		"users", item.Users,
	)
	return receipt, nil
}

// RemoveItem deletes the item at index from a stored receipt and returns the updated receipt.
func (s *ReceiptService) RemoveItem(ctx context.Context, receiptID int64, index int) (*models.Receipt, error) {
	receipt, err := s.store.Get(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if err := receipt.RemoveItem(index); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	slog.Debug("Item removed", "receipt_id", receiptID, "index", index)
	return receipt, nil
}

// DeleteReceipt removes a stored receipt. Its id is never handed out again.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Receipt deleted", "receipt_id", id)
	return nil
}

// ComputeSummary loads a receipt and computes its totals, average and per-person amounts.
func (s *ReceiptService) ComputeSummary(ctx context.Context, id int64) (*calculator.Summary, error) {
	receipt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := calculator.Summarize(receipt)
	if err != nil {
		return nil, fmt.Errorf("receipt %d: %w", id, err)
	}
	return summary, nil
}

// Balances computes who owes whom across every readable receipt.
func (s *ReceiptService) Balances(ctx context.Context) ([]calculator.MemberBalance, []calculator.DebtEdge, []storage.Warning, error) {
	receipts, warnings, err := s.ListReceipts(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	balances, edges := calculator.CalculateBalances(receipts)
	return balances, edges, warnings, nil
}
