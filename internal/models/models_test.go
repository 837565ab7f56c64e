package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testDefaults = Defaults{TaxRate: decimal.RequireFromString("0.08")}

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	return rec
}

func TestItemFromRecord(t *testing.T) {
	tests := []struct {
		name         string
		record       string
		wantField    string
		validateFunc func(t *testing.T, item *Item)
	}{
		{
			name:   "all fields",
			record: `{"name":"Pizza","users":["Alice","Bob"],"cost":20.00,"tax":0.08,"tip":0.15,"should_tax":true}`,
			validateFunc: func(t *testing.T, item *Item) {
				if item.Name != "Pizza" {
					t.Errorf("Name = %q, want Pizza", item.Name)
				}
				if !item.Cost.Equal(decimal.NewFromInt(20)) {
					t.Errorf("Cost = %s, want 20", item.Cost)
				}
				if !item.TipRate.Equal(decimal.RequireFromString("0.15")) {
					t.Errorf("TipRate = %s, want 0.15", item.TipRate)
				}
				if !slices.Equal(item.Users, []string{"Alice", "Bob"}) {
					t.Errorf("Users = %v, want [Alice Bob]", item.Users)
				}
			},
		},
		{
			name:   "defaults applied",
			record: `{"name":"Soda","cost":4}`,
			validateFunc: func(t *testing.T, item *Item) {
				if !item.TaxRate.Equal(testDefaults.TaxRate) {
					t.Errorf("TaxRate = %s, want default %s", item.TaxRate, testDefaults.TaxRate)
				}
				if !item.TipRate.IsZero() {
					t.Errorf("TipRate = %s, want 0", item.TipRate)
				}
				if !item.ShouldTax {
					t.Error("ShouldTax = false, want true")
				}
				if len(item.Users) != 0 {
					t.Errorf("Users = %v, want none", item.Users)
				}
			},
		},
		{
			name:   "legacy single user and camelCase shouldTax",
			record: `{"name":"Fries","user":"Carol","cost":3.5,"shouldTax":false}`,
			validateFunc: func(t *testing.T, item *Item) {
				if !slices.Equal(item.Users, []string{"Carol"}) {
					t.Errorf("Users = %v, want [Carol]", item.Users)
				}
				if item.ShouldTax {
					t.Error("ShouldTax = true, want false")
				}
			},
		},
		{
			name:   "duplicate users are dropped",
			record: `{"name":"Wings","users":["Alice","Bob","Alice"],"cost":12}`,
			validateFunc: func(t *testing.T, item *Item) {
				if !slices.Equal(item.Users, []string{"Alice", "Bob"}) {
					t.Errorf("Users = %v, want [Alice Bob]", item.Users)
				}
			},
		},
		{name: "missing name", record: `{"cost":1}`, wantField: "name"},
		{name: "missing name and cost names name first", record: `{}`, wantField: "name"},
		{name: "missing cost", record: `{"name":"x"}`, wantField: "cost"},
		{name: "string cost", record: `{"name":"x","cost":"1.00"}`, wantField: "cost"},
		{name: "negative cost", record: `{"name":"x","cost":-1}`, wantField: "cost"},
		{name: "negative tax", record: `{"name":"x","cost":1,"tax":-0.1}`, wantField: "tax"},
		{name: "bad should_tax", record: `{"name":"x","cost":1,"should_tax":"yes"}`, wantField: "should_tax"},
		{name: "bad users", record: `{"name":"x","cost":1,"users":[1,2]}`, wantField: "users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ItemFromRecord(decodeRecord(t, tt.record), testDefaults)
			if tt.wantField != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("ItemFromRecord() error = %v, want ValidationError", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("ItemFromRecord() error = %v", err)
			}
			tt.validateFunc(t, item)
		})
	}
}

func TestItemToRecordWritesPluralUsers(t *testing.T) {
	item, err := ItemFromRecord(decodeRecord(t, `{"name":"Fries","user":"Carol","cost":3.5}`), testDefaults)
	if err != nil {
		t.Fatalf("ItemFromRecord() error = %v", err)
	}
	rec := item.ToRecord()
	if _, ok := rec["user"]; ok {
		t.Error("ToRecord() wrote legacy user field")
	}
	if users, ok := rec["users"].([]string); !ok || !slices.Equal(users, []string{"Carol"}) {
		t.Errorf("ToRecord() users = %v, want [Carol]", rec["users"])
	}
	if tax, ok := rec["tax"].(json.Number); !ok || tax.String() != "0.08" {
		t.Errorf("ToRecord() tax = %v, want resolved default 0.08", rec["tax"])
	}
}

func sampleReceipt() *Receipt {
	payee := "Luigi's"
	date := time.Date(2024, 3, 9, 19, 30, 0, 0, time.UTC)
	r := NewReceipt(7, "Friday dinner", "Alice", &payee, &date)
	r.AddItem(Item{
		Name:      "Pizza",
		Cost:      decimal.RequireFromString("20.00"),
		TaxRate:   decimal.RequireFromString("0.08"),
		TipRate:   decimal.RequireFromString("0.15"),
		ShouldTax: true,
		Users:     []string{"Alice", "Bob"},
	})
	r.AddItem(Item{
		Name:    "Soda",
		Cost:    decimal.RequireFromString("4.00"),
		TaxRate: decimal.Zero,
		TipRate: decimal.Zero,
		Users:   []string{"Alice"},
	})
	return r
}

func TestReceiptRoundTrip(t *testing.T) {
	original := sampleReceipt()

	t.Run("in memory", func(t *testing.T) {
		got, err := ReceiptFromRecord(original.ToRecord(), testDefaults)
		if err != nil {
			t.Fatalf("ReceiptFromRecord() error = %v", err)
		}
		if !got.Equal(original) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
		}
	})

	t.Run("through JSON", func(t *testing.T) {
		data, err := json.Marshal(original.ToRecord())
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		got, err := ReceiptFromRecord(decodeRecord(t, string(data)), testDefaults)
		if err != nil {
			t.Fatalf("ReceiptFromRecord() error = %v", err)
		}
		if !got.Equal(original) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
		}
	})

	t.Run("null payee and date", func(t *testing.T) {
		r := NewReceipt(3, "Snacks", "Bob", nil, nil)
		got, err := ReceiptFromRecord(r.ToRecord(), testDefaults)
		if err != nil {
			t.Fatalf("ReceiptFromRecord() error = %v", err)
		}
		if got.Payee != nil || got.Date != nil {
			t.Errorf("expected nil payee and date, got %v %v", got.Payee, got.Date)
		}
		if !got.Equal(r) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, r)
		}
	})
}

func TestReceiptFromRecordErrors(t *testing.T) {
	tests := []struct {
		name      string
		record    string
		wantField string
	}{
		{"missing payee", `{"id":1,"name":"a","buyer":"b","date":null,"items":[]}`, "payee"},
		{"missing id", `{"name":"a","buyer":"b","payee":null,"date":null,"items":[]}`, "id"},
		{"fractional id", `{"id":1.5,"name":"a","buyer":"b","payee":null,"date":null,"items":[]}`, "id"},
		{"bad date", `{"id":1,"name":"a","buyer":"b","payee":null,"date":"2024-03-09","items":[]}`, "date"},
		{"items not a list", `{"id":1,"name":"a","buyer":"b","payee":null,"date":null,"items":{}}`, "items"},
		{"second item invalid", `{"id":1,"name":"a","buyer":"b","payee":null,"date":null,
			"items":[{"name":"ok","cost":1},{"name":"bad"}]}`, "items[1].cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ReceiptFromRecord(decodeRecord(t, tt.record), testDefaults)
			if r != nil {
				t.Errorf("expected no receipt on failure, got %+v", r)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ReceiptFromRecord() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestReceiptPeople(t *testing.T) {
	r := sampleReceipt()
	r.AddItem(Item{Name: "Dessert", Cost: decimal.NewFromInt(6), Users: []string{"Carol", "Bob"}})

	if got, want := r.People(), []string{"Alice", "Bob", "Carol"}; !slices.Equal(got, want) {
		t.Errorf("People() = %v, want %v", got, want)
	}

	if err := r.RemoveItem(2); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if got, want := r.People(), []string{"Alice", "Bob"}; !slices.Equal(got, want) {
		t.Errorf("People() after remove = %v, want %v", got, want)
	}

	if err := r.RemoveItem(5); err == nil {
		t.Error("RemoveItem(5) expected error")
	}

	empty := NewReceipt(1, "empty", "Alice", nil, nil)
	if len(empty.People()) != 0 {
		t.Errorf("People() on empty receipt = %v", empty.People())
	}
}

func TestDateFormat(t *testing.T) {
	d, err := ParseDate("2024-03-09_19:30:05")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got := FormatDate(d); got != "2024-03-09_19:30:05" {
		t.Errorf("FormatDate() = %q", got)
	}
	if _, err := ParseDate("2024-03-09 19:30:05"); err == nil {
		t.Error("ParseDate() accepted a space separator")
	}
}
