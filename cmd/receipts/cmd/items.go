package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/service"
)

func newAddItemCmd(a *app) *cobra.Command {
	var (
		name  string
		cost  string
		tax   string
		tip   string
		noTax bool
		users []string
	)

	cmd := &cobra.Command{
		Use:   "add-item <id>",
		Short: "Add an item to a receipt",
		Long: `Add an item to a receipt, shared evenly between the given users.

Tax defaults to the configured default_tax and tip to 0. Rates are
fractions: 0.08 means 8%.

Example:
  receipts add-item 1 --name Pizza --cost 20.00 --tip 0.15 --user Alice --user Bob
  receipts add-item 1 --name Soda --cost 4 --no-tax --user Alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			in := service.ItemInput{Name: name, Users: users}
			if in.Cost, err = parseDecimal("cost", cost); err != nil {
				return err
			}
			if cmd.Flags().Changed("tax") {
				rate, err := parseDecimal("tax", tax)
				if err != nil {
					return err
				}
				in.TaxRate = &rate
			}
			if cmd.Flags().Changed("tip") {
				rate, err := parseDecimal("tip", tip)
				if err != nil {
					return err
				}
				in.TipRate = &rate
			}
			if noTax {
				shouldTax := false
				in.ShouldTax = &shouldTax
			}

			r, err := a.svc.AddItem(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to receipt %d (%d items)\n", name, r.ID, len(r.Items))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "item name (required)")
	cmd.Flags().StringVar(&cost, "cost", "", "pre-tax cost (required)")
	cmd.Flags().StringVar(&tax, "tax", "", "tax rate, e.g. 0.08")
	cmd.Flags().StringVar(&tip, "tip", "", "tip rate, e.g. 0.15")
	cmd.Flags().BoolVar(&noTax, "no-tax", false, "do not tax this item")
	cmd.Flags().StringArrayVar(&users, "user", nil, "person sharing the item (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}

func newRemoveItemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <id> <index>",
		Short: "Remove an item from a receipt by position",
		Long: `Remove an item from a receipt. Positions start at 0 and are shown by "show".

Example:
  receipts remove-item 1 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return &models.ValidationError{Field: "item_index", Reason: fmt.Sprintf("%q is not a position", args[1])}
			}

			r, err := a.svc.RemoveItem(cmd.Context(), id, index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d from receipt %d (%d items left)\n", index, r.ID, len(r.Items))
			return nil
		},
	}
}
