package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [id]",
		Short: "Show totals and what each person owes",
		Long: `Show the total, total with tax and tip, average per person and each
person's share of a receipt. Without an id, the last opened receipt is used.

Example:
  receipts summary 1
  receipts summary`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var id int64
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return err
				}
			} else {
				r, err := a.svc.OpenLastReceipt(ctx, a.cfg.LastReceipt)
				if err != nil {
					return err
				}
				id = r.ID
			}

			s, err := a.svc.ComputeSummary(ctx, id)
			if err != nil {
				return err
			}
			a.remember(id)
			printSummary(cmd.OutOrStdout(), id, s)
			return nil
		},
	}
}

func newBalancesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show who owes whom across all receipts",
		Long: `Show each person's net balance across every receipt and the payments
that settle them. The buyer of a receipt is treated as having paid for it.

Example:
  receipts balances`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			balances, edges, warnings, err := a.svc.Balances(cmd.Context())
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), warnings)
			printBalances(cmd.OutOrStdout(), balances, edges)
			return nil
		},
	}
}

func printSummary(w io.Writer, id int64, s *calculator.Summary) {
	fmt.Fprintf(w, "\n=== Receipt %d ===\n", id)
	fmt.Fprintf(w, "Total:               %s\n", s.Total.StringFixed(2))
	fmt.Fprintf(w, "Total with tax/tip:  %s\n", s.TotalWithTaxAndTip.StringFixed(2))
	fmt.Fprintf(w, "Average per person:  %s\n", s.Average.StringFixed(2))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, person := range s.People {
		total, ok := s.PerPerson[person]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", person, total.StringFixed(2))
		for _, item := range s.Breakdown[person] {
			fmt.Fprintf(tw, "  %s\t%s\n", item.Name, item.Amount.StringFixed(2))
		}
	}
	_ = tw.Flush()
}

func printBalances(w io.Writer, balances []calculator.MemberBalance, edges []calculator.DebtEdge) {
	if len(balances) == 0 {
		fmt.Fprintln(w, "No balances.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPAID\tOWED\tNET")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Name, b.TotalPaid.StringFixed(2), b.TotalOwed.StringFixed(2), b.NetBalance.StringFixed(2))
	}
	_ = tw.Flush()

	if len(edges) == 0 {
		fmt.Fprintln(w, "\nAll settled.")
		return
	}
	fmt.Fprintln(w)
	for _, e := range edges {
		fmt.Fprintf(w, "%s pays %s %s\n", e.From, e.To, e.Amount.StringFixed(2))
	}
}
