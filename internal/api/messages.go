package api

import (
	"github.com/shopspring/decimal"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

// Item is the wire form of a receipt item. Amounts travel as decimal strings.
type Item struct {
	Name      string          `json:"name"`
	Cost      decimal.Decimal `json:"cost"`
	Tax       decimal.Decimal `json:"tax"`
	Tip       decimal.Decimal `json:"tip"`
	ShouldTax bool            `json:"should_tax"`
	Users     []string        `json:"users"`
}

// Receipt is the wire form of a receipt. Date uses models.DateLayout.
type Receipt struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Buyer string  `json:"buyer"`
	Payee *string `json:"payee"`
	Date  *string `json:"date"`
	Items []Item  `json:"items"`
}

type ListReceiptsRequest struct{}

type ListReceiptsResponse struct {
	Receipts []Receipt `json:"receipts"`
	Warnings []string  `json:"warnings,omitempty"`
}

type GetReceiptRequest struct {
	ID int64 `json:"id"`
}

type GetReceiptResponse struct {
	Receipt Receipt `json:"receipt"`
}

type CreateReceiptRequest struct {
	Name  string  `json:"name"`
	Buyer string  `json:"buyer"`
	Payee *string `json:"payee,omitempty"`
	Date  *string `json:"date,omitempty"`
}

type CreateReceiptResponse struct {
	ID int64 `json:"id"`
}

// AddItemRequest adds an item to a receipt. Omitted rates take the server defaults.
type AddItemRequest struct {
	ReceiptID int64            `json:"receipt_id"`
	Name      string           `json:"name"`
	Cost      decimal.Decimal  `json:"cost"`
	Tax       *decimal.Decimal `json:"tax,omitempty"`
	Tip       *decimal.Decimal `json:"tip,omitempty"`
	ShouldTax *bool            `json:"should_tax,omitempty"`
	Users     []string         `json:"users"`
}

type AddItemResponse struct {
	Receipt Receipt `json:"receipt"`
}

type RemoveItemRequest struct {
	ReceiptID int64 `json:"receipt_id"`
	Index     int   `json:"index"`
}

type RemoveItemResponse struct {
	Receipt Receipt `json:"receipt"`
}

type DeleteReceiptRequest struct {
	ID int64 `json:"id"`
}

type DeleteReceiptResponse struct{}

type ComputeSummaryRequest struct {
	ID int64 `json:"id"`
}

// PersonShare is one person's part of a single item.
type PersonShare struct {
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
}

// PersonTotal is what one person owes on a receipt.
type PersonTotal struct {
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
	Shares []PersonShare   `json:"shares"`
}

type ComputeSummaryResponse struct {
	ReceiptID          int64           `json:"receipt_id"`
	Total              decimal.Decimal `json:"total"`
	TotalWithTaxAndTip decimal.Decimal `json:"total_with_tax_and_tip"`
	Average            decimal.Decimal `json:"average"`
	People             []PersonTotal   `json:"people"`
}

type GetBalancesRequest struct{}

type Balance struct {
	Name       string          `json:"name"`
	NetBalance decimal.Decimal `json:"net_balance"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	TotalOwed  decimal.Decimal `json:"total_owed"`
}

type Debt struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type GetBalancesResponse struct {
	Balances []Balance `json:"balances"`
	Debts    []Debt    `json:"debts"`
	Warnings []string  `json:"warnings,omitempty"`
}

func receiptToWire(r *models.Receipt) Receipt {
	out := Receipt{
		ID:    r.ID,
		Name:  r.Name,
		Buyer: r.Buyer,
		Payee: r.Payee,
		Items: make([]Item, len(r.Items)),
	}
	if r.Date != nil {
		s := models.FormatDate(*r.Date)
		out.Date = &s
	}
	for i, item := range r.Items {
		users := item.Users
		if users == nil {
			users = []string{}
		}
		out.Items[i] = Item{
			Name:      item.Name,
			Cost:      item.Cost,
			Tax:       item.TaxRate,
			Tip:       item.TipRate,
			ShouldTax: item.ShouldTax,
			Users:     users,
		}
	}
	return out
}

// summaryToWire lists people in the order they first appear on the receipt.
func summaryToWire(id int64, s *calculator.Summary) *ComputeSummaryResponse {
	resp := &ComputeSummaryResponse{
		ReceiptID:          id,
		Total:              s.Total,
		TotalWithTaxAndTip: s.TotalWithTaxAndTip,
		Average:            s.Average,
		People:             make([]PersonTotal, 0, len(s.People)),
	}
	for _, name := range s.People {
		total, ok := s.PerPerson[name]
		if !ok {
			continue
		}
		shares := make([]PersonShare, len(s.Breakdown[name]))
		for i, pi := range s.Breakdown[name] {
			shares[i] = PersonShare{Item: pi.Name, Amount: pi.Amount}
		}
		resp.People = append(resp.People, PersonTotal{Name: name, Total: total, Shares: shares})
	}
	return resp
}

func balancesToWire(balances []calculator.MemberBalance, edges []calculator.DebtEdge) ([]Balance, []Debt) {
	outBalances := make([]Balance, len(balances))
	for i, b := range balances {
		outBalances[i] = Balance{Name: b.Name, NetBalance: b.NetBalance, TotalPaid: b.TotalPaid, TotalOwed: b.TotalOwed}
	}
	outDebts := make([]Debt, len(edges))
	for i, e := range edges {
		outDebts[i] = Debt{From: e.From, To: e.To, Amount: e.Amount}
	}
	return outBalances, outDebts
}

func warningsToWire(warnings []storage.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
