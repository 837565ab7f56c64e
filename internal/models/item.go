package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Item represents a single purchased line on a receipt.
// Items can be shared among multiple users; the cost is split evenly between them.
type Item struct {
	// Name is the description of the item (e.g., "Pizza", "Soda").
	Name string

	// Cost is the pre-tax, pre-tip price of the item.
	Cost decimal.Decimal

	// TaxRate is the fractional tax rate (0.08 = 8%). Only applied when ShouldTax is set.
	TaxRate decimal.Decimal

	// TipRate is the fractional tip rate. Always applied.
	TipRate decimal.Decimal

	// ShouldTax reports whether TaxRate applies to this item.
	ShouldTax bool

	// Users are the people splitting this item, in first-seen order without duplicates.
	// An item with no users is excluded from per-person calculations.
	Users []string
}

// NewItem validates the fields and builds an Item. Duplicate users are dropped.
func NewItem(name string, cost, taxRate, tipRate decimal.Decimal, shouldTax bool, users []string) (*Item, error) {
	if cost.IsNegative() {
		return nil, invalidField("cost", "must not be negative, got %s", cost)
	}
	if taxRate.IsNegative() {
		return nil, invalidField("tax", "must not be negative, got %s", taxRate)
	}
	if tipRate.IsNegative() {
		return nil, invalidField("tip", "must not be negative, got %s", tipRate)
	}
	deduped, err := dedupeUsers(users)
	if err != nil {
		return nil, err
	}
	return &Item{
		Name:      name,
		Cost:      cost,
		TaxRate:   taxRate,
		TipRate:   tipRate,
		ShouldTax: shouldTax,
		Users:     deduped,
	}, nil
}

func dedupeUsers(users []string) ([]string, error) {
	out := make([]string, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if u == "" {
			return nil, invalidField("users", "user names must not be empty")
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out, nil
}

// ItemFromRecord validates rec and builds an Item from it.
//
// name and cost are required. tax defaults to defaults.TaxRate, tip to zero and
// should_tax (or shouldTax) to true. users may be a list under "users" or a single
// name under the legacy "user" key.
func ItemFromRecord(rec Record, defaults Defaults) (*Item, error) {
	rawName, ok := rec["name"]
	if !ok {
		return nil, missingField("name")
	}
	name, ok := rawName.(string)
	if !ok {
		return nil, invalidField("name", "must be a string")
	}

	rawCost, ok := rec["cost"]
	if !ok || rawCost == nil {
		return nil, missingField("cost")
	}
	cost, ok := toDecimal(rawCost)
	if !ok {
		return nil, invalidField("cost", "must be a number")
	}
	if cost.IsNegative() {
		return nil, invalidField("cost", "must not be negative, got %s", cost)
	}

	taxRate := defaults.TaxRate
	if v, ok := rec["tax"]; ok && v != nil {
		if taxRate, ok = toDecimal(v); !ok {
			return nil, invalidField("tax", "must be a number")
		}
	}

	tipRate := decimal.Zero
	if v, ok := rec["tip"]; ok && v != nil {
		if tipRate, ok = toDecimal(v); !ok {
			return nil, invalidField("tip", "must be a number")
		}
	}

	shouldTax := true
	if v, ok := lookup(rec, "should_tax", "shouldTax"); ok && v != nil {
		if shouldTax, ok = v.(bool); !ok {
			return nil, invalidField("should_tax", "must be a boolean")
		}
	}

	users, err := usersFromRecord(rec)
	if err != nil {
		return nil, err
	}

	return NewItem(name, cost, taxRate, tipRate, shouldTax, users)
}

func usersFromRecord(rec Record) ([]string, error) {
	if v, ok := rec["users"]; ok && v != nil {
		users, ok := toStringList(v)
		if !ok {
			return nil, invalidField("users", "must be a list of names")
		}
		return users, nil
	}
	if v, ok := rec["user"]; ok && v != nil {
		user, ok := v.(string)
		if !ok {
			return nil, invalidField("user", "must be a string")
		}
		return []string{user}, nil
	}
	return nil, nil
}

// ToRecord returns the item's map view with every rate resolved.
func (i *Item) ToRecord() Record {
	return Record{
		"name":       i.Name,
		"users":      slices.Clone(i.Users),
		"cost":       number(i.Cost),
		"tax":        number(i.TaxRate),
		"tip":        number(i.TipRate),
		"should_tax": i.ShouldTax,
	}
}

// Factor is the multiplier applied to Cost: 1 + tax (when taxed) + tip.
func (i *Item) Factor() decimal.Decimal {
	f := decimal.NewFromInt(1).Add(i.TipRate)
	if i.ShouldTax {
		f = f.Add(i.TaxRate)
	}
	return f
}

// Equal reports whether two items hold the same values.
func (i Item) Equal(o Item) bool {
	return i.Name == o.Name &&
		i.Cost.Equal(o.Cost) &&
		i.TaxRate.Equal(o.TaxRate) &&
		i.TipRate.Equal(o.TipRate) &&
		i.ShouldTax == o.ShouldTax &&
		slices.Equal(i.Users, o.Users)
}
