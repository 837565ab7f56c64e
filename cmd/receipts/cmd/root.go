// Package cmd provides CLI commands for managing and splitting receipts.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/receiptsplit/receiptsplit/internal/calculator"
	"github.com/receiptsplit/receiptsplit/internal/config"
	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/service"
	"github.com/receiptsplit/receiptsplit/internal/storage"
	"github.com/receiptsplit/receiptsplit/internal/storage/backend"
	"github.com/receiptsplit/receiptsplit/pkg/logging"
)

// app is the state shared by every subcommand once the root has loaded it.
type app struct {
	cfgFile string
	debug   bool

	cfg   *config.Config
	store storage.Store
	svc   *service.ReceiptService
}

// NewRootCmd builds the receipts command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "receipts",
		Short: "Record shared receipts and split them between people",
		Long: `receipts keeps one record per receipt and works out who owes what.

It supports:
- Creating receipts and adding or removing items
- Splitting each item evenly between the people who shared it
- Per-person totals including tax and tip
- Balances and suggested payments across all receipts

Example:
  receipts create --name Dinner --buyer Alice
  receipts add-item 1 --name Pizza --cost 20 --tip 0.15 --user Alice --user Bob
  receipts summary 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel := slog.LevelWarn
			if a.debug {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel))
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newAddItemCmd(a),
		newRemoveItemCmd(a),
		newDeleteCmd(a),
		newSummaryCmd(a),
		newBalancesCmd(a),
		newNextIDCmd(a),
	)
	return rootCmd
}

// Execute runs the CLI with os.Args and reports any failure on stderr.
// This is called by main.main().
func Execute() error {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func (a *app) open() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	store, err := backend.Open(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.store = store
	a.svc = service.NewReceiptService(store, cfg.Defaults())
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// remember records id as the last opened receipt. Failing to do so only warns.
func (a *app) remember(id int64) {
	if err := config.SaveLastReceipt(a.cfg.Path(), id); err != nil {
		slog.Warn("Failed to record last opened receipt", "receipt_id", id, "error", err)
		return
	}
	a.cfg.LastReceipt = &id
}

// reportError prints a message that names the kind of failure.
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s: %v\n", describe(err), err)
}

func describe(err error) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid input"
	case errors.Is(err, storage.ErrNotFound):
		return "receipt not found"
	case errors.Is(err, calculator.ErrNoPeople):
		return "nothing to split"
	case errors.Is(err, storage.ErrStorageUnavailable):
		return "storage unavailable"
	case errors.Is(err, os.ErrPermission):
		return "permission denied"
	default:
		return "failed"
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, &models.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a receipt id", s)}
	}
	return id, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &models.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	return d, nil
}
