package models

import (
	"fmt"
	"slices"
	"time"
)

// Receipt represents one purchase event: header metadata plus the purchased items.
type Receipt struct {
	// ID is unique across all stored receipts. It is assigned once at creation
	// and never changes afterwards.
	ID int64

	// Name is the human-readable name of the receipt.
	Name string

	// Buyer is the person who paid for every item on the receipt.
	Buyer string

	// Payee is the company or person the receipt is from. Optional.
	Payee *string

	// Date is when the purchase was made. Optional.
	Date *time.Time

	// Items are kept in insertion order. Order has no effect on any calculation
	// but is preserved across save and load.
	Items []Item
}

// NewReceipt builds an empty receipt with an id that has already been allocated.
func NewReceipt(id int64, name, buyer string, payee *string, date *time.Time) *Receipt {
	return &Receipt{
		ID:    id,
		Name:  name,
		Buyer: buyer,
		Payee: payee,
		Date:  date,
		Items: []Item{},
	}
}

// People returns every user named by any item, in first-seen order.
// It is computed on each call since items can change.
func (r *Receipt) People() []string {
	var people []string
	seen := make(map[string]bool)
	for _, item := range r.Items {
		for _, u := range item.Users {
			if !seen[u] {
				seen[u] = true
				people = append(people, u)
			}
		}
	}
	return people
}

// AddItem appends item to the receipt.
func (r *Receipt) AddItem(item Item) {
	r.Items = append(r.Items, item)
}

// RemoveItem deletes the item at index, keeping the order of the rest.
func (r *Receipt) RemoveItem(index int) error {
	if index < 0 || index >= len(r.Items) {
		return invalidField("item_index", "%d out of range [0, %d)", index, len(r.Items))
	}
	r.Items = append(r.Items[:index], r.Items[index+1:]...)
	return nil
}

// ReceiptFromRecord validates rec and rebuilds the receipt it describes.
// The id is taken from the record as is. If any item is invalid the whole
// reconstruction fails and no receipt is returned.
func ReceiptFromRecord(rec Record, defaults Defaults) (*Receipt, error) {
	for _, key := range []string{"name", "buyer", "payee", "date", "items", "id"} {
		if _, ok := rec[key]; !ok {
			return nil, missingField(key)
		}
	}

	name, ok := rec["name"].(string)
	if !ok {
		return nil, invalidField("name", "must be a string")
	}
	buyer, ok := rec["buyer"].(string)
	if !ok {
		return nil, invalidField("buyer", "must be a string")
	}

	var payee *string
	if v := rec["payee"]; v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, invalidField("payee", "must be a string or null")
		}
		payee = &s
	}

	var date *time.Time
	if v := rec["date"]; v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, invalidField("date", "must be a string or null")
		}
		t, err := ParseDate(s)
		if err != nil {
			return nil, invalidField("date", "%v", err)
		}
		date = &t
	}

	rawItems, ok := toRecordList(rec["items"])
	if !ok {
		return nil, invalidField("items", "must be a list")
	}

	id, ok := toInt64(rec["id"])
	if !ok {
		return nil, invalidField("id", "must be an integer")
	}
	if id < 1 {
		return nil, invalidField("id", "must be positive, got %d", id)
	}

	receipt := NewReceipt(id, name, buyer, payee, date)
	for i, raw := range rawItems {
		itemRec, ok := raw.(Record)
		if !ok {
			return nil, invalidField(fmt.Sprintf("items[%d]", i), "must be an object")
		}
		item, err := ItemFromRecord(itemRec, defaults)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return nil, &ValidationError{Field: fmt.Sprintf("items[%d].%s", i, ve.Field), Reason: ve.Reason}
			}
			return nil, err
		}
		receipt.Items = append(receipt.Items, *item)
	}
	return receipt, nil
}

// ToRecord returns the receipt's map view. It has exactly the shape
// ReceiptFromRecord reads.
func (r *Receipt) ToRecord() Record {
	items := make([]any, len(r.Items))
	for i := range r.Items {
		items[i] = r.Items[i].ToRecord()
	}

	var payee, date any
	if r.Payee != nil {
		payee = *r.Payee
	}
	if r.Date != nil {
		date = FormatDate(*r.Date)
	}

	return Record{
		"id":    r.ID,
		"name":  r.Name,
		"buyer": r.Buyer,
		"payee": payee,
		"date":  date,
		"items": items,
	}
}

// Clone returns a deep copy of r.
func (r *Receipt) Clone() *Receipt {
	c := *r
	if r.Payee != nil {
		payee := *r.Payee
		c.Payee = &payee
	}
	if r.Date != nil {
		date := *r.Date
		c.Date = &date
	}
	c.Items = make([]Item, len(r.Items))
	for i, item := range r.Items {
		item.Users = slices.Clone(item.Users)
		c.Items[i] = item
	}
	return &c
}

// Equal reports whether two receipts hold the same header and items.
func (r *Receipt) Equal(o *Receipt) bool {
	if r.ID != o.ID || r.Name != o.Name || r.Buyer != o.Buyer {
		return false
	}
	if (r.Payee == nil) != (o.Payee == nil) || (r.Payee != nil && *r.Payee != *o.Payee) {
		return false
	}
	if (r.Date == nil) != (o.Date == nil) || (r.Date != nil && !r.Date.Equal(*o.Date)) {
		return false
	}
	if len(r.Items) != len(o.Items) {
		return false
	}
	for i := range r.Items {
		if !r.Items[i].Equal(o.Items[i]) {
			return false
		}
	}
	return true
}
