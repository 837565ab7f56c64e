package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/models"
)

// Summary holds the presentation figures for one receipt, rounded to cents.
type Summary struct {
	Total              decimal.Decimal
	TotalWithTaxAndTip decimal.Decimal
	Average            decimal.Decimal

	// People lists everyone on the receipt in first-seen order.
	People []string

	// PerPerson maps each person to the amount they owe including tax and tip.
	PerPerson map[string]decimal.Decimal

	// Breakdown lists each person's share of every item they split.
	Breakdown map[string][]PersonItem
}

// Summarize computes every figure for r. It fails with ErrNoPeople rather
// than reporting a zero average when nobody is on the receipt.
func Summarize(r *models.Receipt) (*Summary, error) {
	avg, err := Average(r)
	if err != nil {
		return nil, err
	}
	splits, err := split(r)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Total:              Round(Total(r)),
		TotalWithTaxAndTip: Round(TotalWithTaxAndTip(r)),
		Average:            Round(avg),
		People:             r.People(),
		PerPerson:          make(map[string]decimal.Decimal, len(splits)),
		Breakdown:          make(map[string][]PersonItem, len(splits)),
	}
	for person, ps := range splits {
		s.PerPerson[person] = Round(ps.Total)
		items := make([]PersonItem, len(ps.Items))
		for i, pi := range ps.Items {
			items[i] = PersonItem{Name: pi.Name, Amount: Round(pi.Amount)}
		}
		s.Breakdown[person] = items
	}
	return s, nil
}
