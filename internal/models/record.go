package models

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// Record is the serialized map view of an Item or Receipt.
// Decoders should use json.Decoder.UseNumber so amounts keep their exact decimal text.
type Record = map[string]any

// Defaults holds the values applied to optional item fields that a record omits.
type Defaults struct {
	// TaxRate is the fractional tax rate used when an item has no "tax" field.
	TaxRate decimal.Decimal
}

// lookup returns the first key present in rec.
func lookup(rec Record, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Decimal{}, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// toStringList accepts []string or a decoded []any holding only strings.
func toStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...), true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// toRecordList accepts the shapes a list of nested records can take after JSON
// decoding or after ToRecord.
func toRecordList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []Record:
		out := make([]any, len(l))
		for i, r := range l {
			out[i] = r
		}
		return out, true
	default:
		return nil, false
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
