// Package calculator computes totals and per-person splits for receipts.
//
// Every function is pure: it reads a fully built receipt and never changes it.
// Arithmetic is done on decimal values; nothing is rounded until Round is
// applied to a final figure.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/models"
)

// ErrNoPeople is returned when a split is requested over a receipt with no people.
var ErrNoPeople = errors.New("no people to split among")

// Total is the sum of item costs, before tax and tip.
func Total(r *models.Receipt) decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Cost)
	}
	return total
}

// TotalWithTaxAndTip is the sum of cost × (1 + tax if taxed + tip) over all items.
func TotalWithTaxAndTip(r *models.Receipt) decimal.Decimal {
	total := decimal.Zero
	for i := range r.Items {
		total = total.Add(r.Items[i].Cost.Mul(r.Items[i].Factor()))
	}
	return total
}

// Average is Total divided by the number of people on the receipt.
func Average(r *models.Receipt) (decimal.Decimal, error) {
	people := r.People()
	if len(people) == 0 {
		return decimal.Zero, ErrNoPeople
	}
	return Total(r).Div(decimal.NewFromInt(int64(len(people)))), nil
}

// PerPersonTotals computes how much each person owes including tax and tip.
// Each item's tax/tip-inclusive cost is split evenly among its users; ownership
// and cost share play no part.
func PerPersonTotals(r *models.Receipt) (map[string]decimal.Decimal, error) {
	splits, err := split(r)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal, len(splits))
	for person, s := range splits {
		totals[person] = s.Total
	}
	return totals, nil
}

// PersonItem is one person's share of one item.
type PersonItem struct {
	Name   string
	Amount decimal.Decimal
}

// PersonSplit is the unrounded share of a receipt owed by one person.
type PersonSplit struct {
	Total decimal.Decimal
	Items []PersonItem
}

func split(r *models.Receipt) (map[string]*PersonSplit, error) {
	people := r.People()
	if len(people) == 0 {
		return nil, ErrNoPeople
	}

	splits := make(map[string]*PersonSplit, len(people))
	for _, p := range people {
		splits[p] = &PersonSplit{Total: decimal.Zero}
	}

	for i := range r.Items {
		item := &r.Items[i]
		if len(item.Users) == 0 {
			continue
		}
		share := item.Cost.Mul(item.Factor()).Div(decimal.NewFromInt(int64(len(item.Users))))
		for _, user := range item.Users {
			s := splits[user]
			s.Total = s.Total.Add(share)
			s.Items = append(s.Items, PersonItem{Name: item.Name, Amount: share})
		}
	}
	return splits, nil
}

// Round rounds an amount to cents using round-half-to-even.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
