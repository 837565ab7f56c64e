package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/models"
)

// MemberBalance represents the balance information for one person across receipts.
type MemberBalance struct {
	Name       string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Total amount paid as a buyer
	TotalOwed  decimal.Decimal // Total amount of this person's own shares
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

var halfCent = decimal.RequireFromString("0.005")

// CalculateBalances computes balances across multiple receipts.
// The buyer of each receipt paid for it; every person on it owes their own
// per-person total. Receipts without a buyer or without people are skipped.
//
// Algorithm:
// - For each receipt: buyer contributed the sum of all shares, each person owes their share
// - Aggregate: net_balance = total_paid - total_owed
// - Debt edges: greedy matching of the largest debtor with the largest creditor
//
// Balances are sorted by name. Amounts on balances and edges are rounded to cents.
func CalculateBalances(receipts []*models.Receipt) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(name string) *MemberBalance {
		if _, exists := balances[name]; !exists {
			balances[name] = &MemberBalance{Name: name}
		}
		return balances[name]
	}

	for _, r := range receipts {
		if r.Buyer == "" {
			continue
		}
		splits, err := split(r)
		if err != nil {
			continue
		}

		paid := decimal.Zero
		for person, ps := range splits {
			get(person).TotalOwed = get(person).TotalOwed.Add(ps.Total)
			paid = paid.Add(ps.Total)
		}
		get(r.Buyer).TotalPaid = get(r.Buyer).TotalPaid.Add(paid)
	}

	var creditors, debtors []*MemberBalance
	for _, bal := range balances {
		bal.NetBalance = bal.TotalPaid.Sub(bal.TotalOwed)
		switch {
		case bal.NetBalance.IsPositive():
			creditors = append(creditors, bal)
		case bal.NetBalance.IsNegative():
			debtors = append(debtors, bal)
		}
	}
	byAmount := func(l []*MemberBalance) {
		sort.Slice(l, func(i, j int) bool {
			a, b := l[i].NetBalance.Abs(), l[j].NetBalance.Abs()
			if !a.Equal(b) {
				return a.GreaterThan(b)
			}
			return l[i].Name < l[j].Name
		})
	}
	byAmount(creditors)
	byAmount(debtors)

	debtorLeft := make(map[string]decimal.Decimal, len(debtors))
	for _, d := range debtors {
		debtorLeft[d.Name] = d.NetBalance.Neg()
	}
	creditorLeft := make(map[string]decimal.Decimal, len(creditors))
	for _, c := range creditors {
		creditorLeft[c.Name] = c.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].Name
		creditor := creditors[j].Name

		amount := decimal.Min(debtorLeft[debtor], creditorLeft[creditor])
		if rounded := Round(amount); rounded.IsPositive() {
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: rounded})
		}

		debtorLeft[debtor] = debtorLeft[debtor].Sub(amount)
		creditorLeft[creditor] = creditorLeft[creditor].Sub(amount)

		if debtorLeft[debtor].LessThan(halfCent) {
			i++
		}
		if creditorLeft[creditor].LessThan(halfCent) {
			j++
		}
	}

	out := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		out = append(out, MemberBalance{
			Name:       bal.Name,
			NetBalance: Round(bal.NetBalance),
			TotalPaid:  Round(bal.TotalPaid),
			TotalOwed:  Round(bal.TotalOwed),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, edges
}
