// Package main is the entry point for the receipts CLI.
package main

import (
	"os"

	"github.com/receiptsplit/receiptsplit/cmd/receipts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
