// Package storage provides abstractions for persistent receipt storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/receiptsplit/receiptsplit/internal/models"
)

var (
	// ErrNotFound is returned when no receipt with the requested id exists.
	ErrNotFound = errors.New("receipt not found")

	// ErrStorageUnavailable is returned when the backing directory or database
	// cannot be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Warning describes a stored record that was skipped while listing.
type Warning struct {
	// Source identifies the record, e.g. a file path or "row 12".
	Source string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

// Store defines the interface for receipt storage operations.
// This abstraction allows swapping storage backends (JSON files, SQLite)
// without changing the service layer.
type Store interface {
	// List loads every stored receipt. Records that cannot be rebuilt are
	// skipped and reported as warnings; they never fail the whole listing.
	List(ctx context.Context) ([]*models.Receipt, []Warning, error)

	// Get retrieves a receipt by id. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*models.Receipt, error)

	// Save writes or overwrites the record keyed by receipt.ID. Saving the
	// same receipt twice leaves a single identical record.
	Save(ctx context.Context, receipt *models.Receipt) error

	// Delete removes a receipt. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// NextID returns an id that no stored receipt has ever used: one more than
	// the greatest id ever saved, or 1 for an empty store.
	NextID(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
