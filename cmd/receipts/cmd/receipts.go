package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/service"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored receipts",
		Long: `List every stored receipt ordered by id.

Records that cannot be read are skipped and reported on stderr.

Example:
  receipts list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			receipts, warnings, err := a.svc.ListReceipts(cmd.Context())
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), warnings)

			if len(receipts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No receipts.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBUYER\tDATE\tITEMS")
			for _, r := range receipts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.ID, r.Name, r.Buyer, dateString(r), len(r.Items))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a receipt and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := a.svc.OpenReceipt(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.remember(r.ID)
			printReceipt(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var name, buyer, payee, date string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty receipt",
		Long: `Create an empty receipt and print its id.

Dates use the form 2006-01-02_15:04:05.

Example:
  receipts create --name Dinner --buyer Alice --payee "Luigi's" --date 2024-05-01_19:30:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header := service.ReceiptHeader{Name: name, Buyer: buyer}
			if payee != "" {
				header.Payee = &payee
			}
			if date != "" {
				t, err := models.ParseDate(date)
				if err != nil {
					return &models.ValidationError{Field: "date", Reason: err.Error()}
				}
				header.Date = &t
			}

			id, err := a.svc.CreateReceipt(cmd.Context(), header)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created receipt %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "receipt name (required)")
	cmd.Flags().StringVar(&buyer, "buyer", "", "person who paid (required)")
	cmd.Flags().StringVar(&payee, "payee", "", "merchant")
	cmd.Flags().StringVar(&date, "date", "", "purchase date, 2006-01-02_15:04:05")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("buyer")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a receipt",
		Long: `Delete a receipt. Its id is never given to another receipt.

Example:
  receipts delete 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteReceipt(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted receipt %d\n", id)
			return nil
		},
	}
}

func newNextIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next-id",
		Short: "Print the id the next receipt will get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.svc.NextID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func printReceipt(w io.Writer, r *models.Receipt) {
	fmt.Fprintf(w, "Receipt %d: %s\n", r.ID, r.Name)
	fmt.Fprintf(w, "Buyer:  %s\n", r.Buyer)
	if r.Payee != nil {
		fmt.Fprintf(w, "Payee:  %s\n", *r.Payee)
	}
	if r.Date != nil {
		fmt.Fprintf(w, "Date:   %s\n", models.FormatDate(*r.Date))
	}

	if len(r.Items) == 0 {
		fmt.Fprintln(w, "\nNo items.")
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tITEM\tCOST\tTAX\tTIP\tUSERS")
	for i, item := range r.Items {
		tax := item.TaxRate.String()
		if !item.ShouldTax {
			tax = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, item.Name, item.Cost.StringFixed(2), tax, item.TipRate.String(), strings.Join(item.Users, ", "))
	}
	_ = tw.Flush()
}

func printWarnings(w io.Writer, warnings []storage.Warning) {
	for _, warning := range warnings {
		slog.Debug("Skipped record", "source", warning.Source, "error", warning.Err)
		fmt.Fprintf(w, "Warning: skipped %s\n", warning)
	}
}

func dateString(r *models.Receipt) string {
	if r.Date == nil {
		return "-"
	}
	return models.FormatDate(*r.Date)
}
