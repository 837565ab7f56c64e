// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

const receiptSequence = "receipts"

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	defaults models.Defaults
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, defaults models.Defaults) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %v", storage.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", storage.ErrStorageUnavailable, err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to run migrations: %v", storage.ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db, defaults: defaults}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List loads every receipt ordered by id. Rows whose record cannot be rebuilt
// are skipped and returned as warnings.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.Receipt, []storage.Warning, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, record FROM receipts ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list receipts: %v", storage.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	var warnings []storage.Warning
	for rows.Next() {
		var id int64
		var record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipt, err := s.decode(id, record)
		if err != nil {
			source := fmt.Sprintf("row %d", id)
			slog.Warn("Skipping unreadable receipt record", "source", source, "error", err)
			warnings = append(warnings, storage.Warning{Source: source, Err: err})
			continue
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, warnings, nil
}

// Get retrieves a receipt by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Receipt, error) {
	var record string
	err := s.db.QueryRowContext(ctx, "SELECT record FROM receipts WHERE id = ?", id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get receipt: %v", storage.ErrStorageUnavailable, err)
	}
	return s.decode(id, record)
}

// Save inserts or replaces the receipt row and raises the id sequence.
func (s *SQLiteStore) Save(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID < 1 {
		return &models.ValidationError{Field: "id", Reason: fmt.Sprintf("must be positive, got %d", receipt.ID)}
	}
	data, err := json.Marshal(receipt.ToRecord())
	if err != nil {
		return fmt.Errorf("failed to marshal receipt %d: %w", receipt.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", storage.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO receipts (id, record) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET record = excluded.record",
		receipt.ID, string(data),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save receipt: %v", storage.ErrStorageUnavailable, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO id_sequence (name, last_id) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET last_id = MAX(last_id, excluded.last_id)`,
		receiptSequence, receipt.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update id sequence: %v", storage.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", storage.ErrStorageUnavailable, err)
	}
	return nil
}

// Delete removes a receipt row.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete receipt: %v", storage.ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return nil
}

// NextID returns one more than the greatest id stored or ever saved.
func (s *SQLiteStore) NextID(ctx context.Context) (int64, error) {
	var maxID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(
		     COALESCE((SELECT MAX(id) FROM receipts), 0),
		     COALESCE((SELECT last_id FROM id_sequence WHERE name = ?), 0)
		 )`,
		receiptSequence,
	).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read ids: %v", storage.ErrStorageUnavailable, err)
	}
	return maxID + 1, nil
}

func (s *SQLiteStore) decode(id int64, record string) (*models.Receipt, error) {
	dec := json.NewDecoder(bytes.NewBufferString(record))
	dec.UseNumber()
	var rec models.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	receipt, err := models.ReceiptFromRecord(rec, s.defaults)
	if err != nil {
		return nil, err
	}
	if receipt.ID != id {
		return nil, fmt.Errorf("record id %d does not match row id %d", receipt.ID, id)
	}
	return receipt, nil
}
