// Package backend opens the storage backend selected in the configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/receiptsplit/receiptsplit/internal/config"
	"github.com/receiptsplit/receiptsplit/internal/storage"
	"github.com/receiptsplit/receiptsplit/internal/storage/jsonfile"
	"github.com/receiptsplit/receiptsplit/internal/storage/sqlite"
)

// Open returns the store named by cfg.Storage.
func Open(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageJSON:
		store, err := jsonfile.New(cfg.DataDir, cfg.Defaults())
		if err != nil {
			return nil, err
		}
		slog.Debug("Storage initialized", "backend", cfg.Storage, "dir", cfg.DataDir)
		return store, nil
	case config.StorageSQLite:
		store, err := sqlite.New(cfg.SQLitePath, cfg.Defaults())
		if err != nil {
			return nil, err
		}
		slog.Debug("Storage initialized", "backend", cfg.Storage, "database", cfg.SQLitePath)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
