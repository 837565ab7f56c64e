package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/storage"
	"github.com/receiptsplit/receiptsplit/internal/storage/jsonfile"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func setupTestService(t *testing.T) *ReceiptService {
	t.Helper()
	defaults := models.Defaults{TaxRate: d("0.08")}
	store, err := jsonfile.New(t.TempDir(), defaults)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewReceiptService(store, defaults)
}

func createDinner(t *testing.T, svc *ReceiptService) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := svc.CreateReceipt(ctx, ReceiptHeader{Name: "Dinner", Buyer: "Alice"})
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, id, ItemInput{
		Name:    "Pizza",
		Cost:    d("20.00"),
		TipRate: ptr(d("0.15")),
		Users:   []string{"Alice", "Bob"},
	}); err != nil {
		t.Fatalf("AddItem(Pizza) failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, id, ItemInput{
		Name:      "Soda",
		Cost:      d("4.00"),
		ShouldTax: ptr(false),
		Users:     []string{"Alice"},
	}); err != nil {
		t.Fatalf("AddItem(Soda) failed: %v", err)
	}
	return id
}

func TestCreateReceipt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		header    ReceiptHeader
		wantField string
	}{
		{name: "valid", header: ReceiptHeader{Name: "Lunch", Buyer: "Alice", Payee: ptr("Deli")}},
		{name: "missing name", header: ReceiptHeader{Buyer: "Alice"}, wantField: "name"},
		{name: "blank buyer", header: ReceiptHeader{Name: "Lunch", Buyer: "  "}, wantField: "buyer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupTestService(t)
			id, err := svc.CreateReceipt(ctx, tt.header)
			if tt.wantField != "" {
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("CreateReceipt() error = %v, want ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateReceipt() error = %v", err)
			}
			got, err := svc.OpenReceipt(ctx, id)
			if err != nil {
				t.Fatalf("OpenReceipt() error = %v", err)
			}
			if got.Name != tt.header.Name || got.Buyer != tt.header.Buyer || len(got.Items) != 0 {
				t.Errorf("OpenReceipt() = %+v", got)
			}
		})
	}
}

func TestCreateReceiptIDs(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		id, err := svc.CreateReceipt(ctx, ReceiptHeader{Name: "r", Buyer: "Alice"})
		if err != nil {
			t.Fatalf("CreateReceipt failed: %v", err)
		}
		if id <= last {
			t.Errorf("id %d not greater than previous %d", id, last)
		}
		last = id
	}

	if err := svc.DeleteReceipt(ctx, last); err != nil {
		t.Fatalf("DeleteReceipt failed: %v", err)
	}
	id, err := svc.CreateReceipt(ctx, ReceiptHeader{Name: "r", Buyer: "Alice"})
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	if id == last {
		t.Errorf("deleted id %d was reused", last)
	}
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		input        ItemInput
		wantField    string
		validateFunc func(t *testing.T, item models.Item)
	}{
		{
			name:  "defaults applied",
			input: ItemInput{Name: "Pizza", Cost: d("20"), Users: []string{"Alice"}},
			validateFunc: func(t *testing.T, item models.Item) {
				if !item.TaxRate.Equal(d("0.08")) {
					t.Errorf("TaxRate = %s, want configured default 0.08", item.TaxRate)
				}
				if !item.TipRate.IsZero() {
					t.Errorf("TipRate = %s, want 0", item.TipRate)
				}
				if !item.ShouldTax {
					t.Error("ShouldTax = false, want true")
				}
			},
		},
		{
			name:  "explicit rates",
			input: ItemInput{Name: "Wine", Cost: d("30"), TaxRate: ptr(d("0.1")), TipRate: ptr(d("0.2")), ShouldTax: ptr(false), Users: []string{"Bob", "Bob", "Carol"}},
			validateFunc: func(t *testing.T, item models.Item) {
				if !item.TaxRate.Equal(d("0.1")) || !item.TipRate.Equal(d("0.2")) || item.ShouldTax {
					t.Errorf("item = %+v", item)
				}
				if len(item.Users) != 2 {
					t.Errorf("Users = %v, want duplicates removed", item.Users)
				}
			},
		},
		{name: "no users", input: ItemInput{Name: "Pizza", Cost: d("20")}, wantField: "users"},
		{name: "negative cost", input: ItemInput{Name: "Refund", Cost: d("-1"), Users: []string{"Alice"}}, wantField: "cost"},
		{name: "negative tip", input: ItemInput{Name: "Pizza", Cost: d("1"), TipRate: ptr(d("-0.1")), Users: []string{"Alice"}}, wantField: "tip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setupTestService(t)
			id, err := svc.CreateReceipt(ctx, ReceiptHeader{Name: "Dinner", Buyer: "Alice"})
			if err != nil {
				t.Fatalf("CreateReceipt failed: %v", err)
			}

			updated, err := svc.AddItem(ctx, id, tt.input)
			if tt.wantField != "" {
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("AddItem() error = %v, want ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
				stored, _ := svc.OpenReceipt(ctx, id)
				if len(stored.Items) != 0 {
					t.Errorf("rejected item was stored: %+v", stored.Items)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddItem() error = %v", err)
			}
			if len(updated.Items) != 1 {
				t.Fatalf("Items = %d, want 1", len(updated.Items))
			}
			tt.validateFunc(t, updated.Items[0])

			stored, err := svc.OpenReceipt(ctx, id)
			if err != nil {
				t.Fatalf("OpenReceipt() error = %v", err)
			}
			if !stored.Equal(updated) {
				t.Errorf("stored receipt differs from returned one")
			}
		})
	}
}

func TestAddItemUnknownReceipt(t *testing.T) {
	svc := setupTestService(t)
	_, err := svc.AddItem(context.Background(), 99, ItemInput{Name: "x", Cost: d("1"), Users: []string{"Alice"}})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddItem() error = %v, want ErrNotFound", err)
	}
}

func TestRemoveItem(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	id := createDinner(t, svc)

	if _, err := svc.RemoveItem(ctx, id, 5); err == nil {
		t.Error("RemoveItem(5) succeeded on a two-item receipt")
	}

	updated, err := svc.RemoveItem(ctx, id, 0)
	if err != nil {
		t.Fatalf("RemoveItem(0) error = %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Name != "Soda" {
		t.Errorf("Items = %+v, want only Soda", updated.Items)
	}
}

func TestComputeSummary(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	id := createDinner(t, svc)

	s, err := svc.ComputeSummary(ctx, id)
	if err != nil {
		t.Fatalf("ComputeSummary() error = %v", err)
	}
	if !s.Total.Equal(d("24.00")) {
		t.Errorf("Total = %s, want 24.00", s.Total)
	}
	if !s.TotalWithTaxAndTip.Equal(d("28.60")) {
		t.Errorf("TotalWithTaxAndTip = %s, want 28.60", s.TotalWithTaxAndTip)
	}
	if !s.Average.Equal(d("12.00")) {
		t.Errorf("Average = %s, want 12.00", s.Average)
	}
	if !s.PerPerson["Alice"].Equal(d("16.30")) || !s.PerPerson["Bob"].Equal(d("12.30")) {
		t.Errorf("PerPerson = %v, want Alice 16.30, Bob 12.30", s.PerPerson)
	}

	t.Run("empty receipt", func(t *testing.T) {
		empty, err := svc.CreateReceipt(ctx, ReceiptHeader{Name: "Nothing", Buyer: "Alice"})
		if err != nil {
			t.Fatalf("CreateReceipt failed: %v", err)
		}
		if _, err := svc.ComputeSummary(ctx, empty); !errors.Is(err, calculator.ErrNoPeople) {
			t.Errorf("ComputeSummary() error = %v, want ErrNoPeople", err)
		}
	})

	t.Run("missing receipt", func(t *testing.T) {
		if _, err := svc.ComputeSummary(ctx, 404); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("ComputeSummary() error = %v, want ErrNotFound", err)
		}
	})
}

func TestOpenLastReceipt(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	id := createDinner(t, svc)

	if _, err := svc.OpenLastReceipt(ctx, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("OpenLastReceipt(nil) error = %v, want ErrNotFound", err)
	}
	r, err := svc.OpenLastReceipt(ctx, &id)
	if err != nil {
		t.Fatalf("OpenLastReceipt() error = %v", err)
	}
	if r.ID != id {
		t.Errorf("ID = %d, want %d", r.ID, id)
	}

	if err := svc.DeleteReceipt(ctx, id); err != nil {
		t.Fatalf("DeleteReceipt failed: %v", err)
	}
	if _, err := svc.OpenLastReceipt(ctx, &id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("OpenLastReceipt() after delete error = %v, want ErrNotFound", err)
	}
}

func TestBalances(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	createDinner(t, svc)

	balances, edges, warnings, err := svc.Balances(ctx)
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %+v, want Alice and Bob", balances)
	}
	if len(edges) != 1 {
		t.Fatalf("edges = %+v, want one", edges)
	}
	e := edges[0]
	if e.From != "Bob" || e.To != "Alice" || !e.Amount.Equal(d("12.30")) {
		t.Errorf("edge = %+v, want Bob -> Alice 12.30", e)
	}
}
