// Package jsonfile provides a directory-backed implementation of the storage.Store
// interface: one JSON file per receipt. New receipts are named after their id;
// records under any other *.json name are read and updated in place.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/receiptsplit/receiptsplit/internal/models"
	"github.com/receiptsplit/receiptsplit/internal/storage"
)

// Ensure FileStore implements storage.Store
var _ storage.Store = (*FileStore)(nil)

const (
	recordExt = ".json"

	// lastIDFile records the greatest id ever saved so deleted ids are never reused.
	lastIDFile = ".last_id"
)

type entry struct {
	receipt *models.Receipt
	path    string
}

// FileStore implements storage.Store on a directory of JSON records.
//
// The id index is rebuilt from disk on the first read after any Save or
// Delete. It is never patched in place.
type FileStore struct {
	dir      string
	defaults models.Defaults

	mu    sync.Mutex
	index map[int64]entry
	dirty bool
}

// New creates a FileStore rooted at dir, creating the directory if needed.
// defaults are applied to item fields that records omit.
func New(dir string, defaults models.Defaults) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create receipts directory: %v", storage.ErrStorageUnavailable, err)
	}
	return &FileStore{dir: dir, defaults: defaults, dirty: true}, nil
}

// Dir returns the directory the store reads and writes.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; every operation opens and closes its own files.
func (s *FileStore) Close() error {
	return nil
}

// List loads every receipt in the directory, sorted by id.
func (s *FileStore) List(ctx context.Context) ([]*models.Receipt, []storage.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings, err := s.rebuild(ctx)
	if err != nil {
		return nil, nil, err
	}
	receipts := make([]*models.Receipt, 0, len(s.index))
	for _, e := range s.index {
		receipts = append(receipts, e.receipt.Clone())
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].ID < receipts[j].ID })
	return receipts, warnings, nil
}

// Get retrieves a receipt by id.
func (s *FileStore) Get(ctx context.Context, id int64) (*models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	e, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return e.receipt.Clone(), nil
}

// Save writes the receipt, replacing any previous version. A receipt already
// on disk keeps its file name; a new one is written to <dir>/<id>.json. Any
// other file carrying the same id is removed, so exactly one record remains.
// The file is written to a temporary name first and renamed into place.
func (s *FileStore) Save(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID < 1 {
		return &models.ValidationError{Field: "id", Reason: fmt.Sprintf("must be positive, got %d", receipt.ID)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(receipt.ToRecord(), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal receipt %d: %w", receipt.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.scanIDs(ctx)
	if err != nil {
		return err
	}
	existing := pathsWithID(ids, receipt.ID)

	path := s.recordPath(receipt.ID)
	if len(existing) > 0 {
		path = existing[0]
		existing = existing[1:]
	} else if other, ok := idAt(ids, path); ok {
		return fmt.Errorf("%w: %s already holds receipt %d", storage.ErrStorageUnavailable, path, other)
	}

	if err := s.writeAtomic(path, append(data, '\n')); err != nil {
		return err
	}
	s.dirty = true

	if err := s.removeAll(existing); err != nil {
		return err
	}
	if err := s.raiseLastID(receipt.ID, ids); err != nil {
		return err
	}
	slog.Debug("Receipt saved", "receipt_id", receipt.ID, "path", path)
	return nil
}

// Delete removes every record carrying the given id.
func (s *FileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.scanIDs(ctx)
	if err != nil {
		return err
	}
	paths := pathsWithID(ids, id)
	if len(paths) == 0 {
		return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}

	// Raise the mark first so the id stays burned even if it was never recorded.
	if err := s.raiseLastID(id, ids); err != nil {
		return err
	}
	s.dirty = true
	if err := s.removeAll(paths); err != nil {
		return err
	}
	slog.Debug("Receipt deleted", "receipt_id", id, "paths", paths)
	return nil
}

// NextID scans every record in the directory and returns one more than the
// greatest id found or ever saved.
func (s *FileStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.scanIDs(ctx)
	if err != nil {
		return 0, err
	}
	maxID, _, err := s.readLastID()
	if err != nil {
		return 0, err
	}
	if m := maxRecordID(ids); m > maxID {
		maxID = m
	}
	return maxID + 1, nil
}

func (s *FileStore) ensureIndex(ctx context.Context) error {
	if !s.dirty && s.index != nil {
		return nil
	}
	_, err := s.rebuild(ctx)
	return err
}

// rebuild re-reads every record from disk and replaces the index.
func (s *FileStore) rebuild(ctx context.Context) ([]storage.Warning, error) {
	paths, err := s.recordPaths()
	if err != nil {
		return nil, err
	}

	index := make(map[int64]entry, len(paths))
	var warnings []storage.Warning
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		receipt, err := s.load(p)
		if err == nil {
			if prev, dup := index[receipt.ID]; dup {
				err = fmt.Errorf("duplicate receipt id %d, already loaded from %s", receipt.ID, prev.path)
			}
		}
		if err != nil {
			slog.Warn("Skipping unreadable receipt record", "path", p, "error", err)
			warnings = append(warnings, storage.Warning{Source: p, Err: err})
			continue
		}
		index[receipt.ID] = entry{receipt: receipt, path: p}
	}

	s.index = index
	s.dirty = false
	return warnings, nil
}

func (s *FileStore) load(path string) (*models.Receipt, error) {
	rec, err := readRecord(path)
	if err != nil {
		return nil, err
	}
	return models.ReceiptFromRecord(rec, s.defaults)
}

// recordPaths lists the record files in the directory in name order.
func (s *FileStore) recordPaths() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", storage.ErrStorageUnavailable, s.dir, err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	return paths, nil
}

func (s *FileStore) recordPath(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+recordExt)
}

func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(s.dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", storage.ErrStorageUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to replace %s: %v", storage.ErrStorageUnavailable, path, err)
	}
	return nil
}

// readLastID returns the id mark. ok is false when the mark is missing or malformed.
func (s *FileStore) readLastID() (id int64, ok bool, err error) {
	path := filepath.Join(s.dir, lastIDFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: failed to read %s: %v", storage.ErrStorageUnavailable, lastIDFile, err)
	}
	id, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		slog.Warn("Malformed id mark, ids of deleted receipts may be reused; falling back to the greatest stored id",
			"path", path, "error", err)
		return 0, false, nil
	}
	return id, true, nil
}

// raiseLastID moves the mark up to id. A missing or malformed mark is
// rewritten from the greatest id still on disk.
func (s *FileStore) raiseLastID(id int64, ids []recordID) error {
	current, ok, err := s.readLastID()
	if err != nil {
		return err
	}
	if ok && id <= current {
		return nil
	}
	if !ok {
		if m := maxRecordID(ids); m > id {
			id = m
		}
	}
	return s.writeAtomic(filepath.Join(s.dir, lastIDFile), []byte(strconv.FormatInt(id, 10)+"\n"))
}

func (s *FileStore) removeAll(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: failed to remove %s: %v", storage.ErrStorageUnavailable, p, err)
		}
	}
	return nil
}

// recordID pairs a record file with the id it carries.
type recordID struct {
	path string
	id   int64
}

// scanIDs reads the id of every record file in name order. Files whose id
// cannot be read are logged and left out.
func (s *FileStore) scanIDs(ctx context.Context) ([]recordID, error) {
	paths, err := s.recordPaths()
	if err != nil {
		return nil, err
	}
	ids := make([]recordID, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := readRecordID(p)
		if err != nil {
			slog.Warn("Skipping record without a readable id", "path", p, "error", err)
			continue
		}
		ids = append(ids, recordID{path: p, id: id})
	}
	return ids, nil
}

func pathsWithID(ids []recordID, id int64) []string {
	var paths []string
	for _, r := range ids {
		if r.id == id {
			paths = append(paths, r.path)
		}
	}
	return paths
}

func idAt(ids []recordID, path string) (int64, bool) {
	for _, r := range ids {
		if r.path == path {
			return r.id, true
		}
	}
	return 0, false
}

func maxRecordID(ids []recordID) int64 {
	var m int64
	for _, r := range ids {
		if r.id > m {
			m = r.id
		}
	}
	return m
}

func readRecord(path string) (models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec models.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec == nil {
		return nil, errors.New("record is null")
	}
	return rec, nil
}

// readRecordID extracts only the id, so records that fail full validation
// still hold their id back from reuse.
func readRecordID(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var header struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return 0, err
	}
	if header.ID == nil {
		return 0, errors.New("record has no id")
	}
	return *header.ID, nil
}
