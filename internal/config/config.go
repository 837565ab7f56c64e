// Package config provides configuration management for the receipt splitter.
// It loads a YAML file, then applies environment variables and .env files on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/receiptsplit/receiptsplit/internal/models"
)

// Storage backends.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

const (
	// DefaultPath is the config file used when none is given.
	DefaultPath = "etc/receipts.yaml"

	defaultDataDir    = "data/receipts"
	defaultSQLitePath = "data/receipts.db"
	defaultPort       = 8080
)

// Config represents the application configuration. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	// DataDir holds one JSON file per receipt when Storage is "json".
	DataDir string

	// Storage selects the backend: "json" or "sqlite".
	Storage string

	// SQLitePath is the database file when Storage is "sqlite".
	SQLitePath string

	// DefaultTax is the tax rate given to items that do not carry one.
	DefaultTax decimal.Decimal

	// LastReceipt is the id of the receipt opened most recently, if any.
	LastReceipt *int64

	// Port is the HTTP port for the server.
	Port int

	path string
}

// fileConfig is the on-disk YAML shape.
type fileConfig struct {
	DataDir     string `yaml:"data_dir,omitempty"`
	Storage     string `yaml:"storage,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	DefaultTax  string `yaml:"default_tax,omitempty"`
	LastReceipt *int64 `yaml:"last_receipt,omitempty"`
	Port        int    `yaml:"port,omitempty"`
}

// Load reads the YAML file at path (DefaultPath if empty), then applies
// environment overrides. A .env file in the current directory is loaded
// first if present. A missing config file is not an error.
//
// Environment variables:
//
//	RECEIPTS_DATA_DIR, RECEIPTS_STORAGE, RECEIPTS_DB_PATH, RECEIPTS_DEFAULT_TAX, PORT
func Load(path string) (*Config, error) {
	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	fc, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:     firstNonEmpty(os.Getenv("RECEIPTS_DATA_DIR"), fc.DataDir, defaultDataDir),
		Storage:     firstNonEmpty(os.Getenv("RECEIPTS_STORAGE"), fc.Storage, StorageJSON),
		SQLitePath:  firstNonEmpty(os.Getenv("RECEIPTS_DB_PATH"), fc.SQLitePath, defaultSQLitePath),
		LastReceipt: fc.LastReceipt,
		Port:        defaultPort,
		path:        path,
	}

	tax := firstNonEmpty(os.Getenv("RECEIPTS_DEFAULT_TAX"), fc.DefaultTax, "0")
	cfg.DefaultTax, err = decimal.NewFromString(tax)
	if err != nil {
		return nil, fmt.Errorf("invalid default tax %q: %w", tax, err)
	}

	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %s", v)
		}
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var problems []string
	if c.Storage != StorageJSON && c.Storage != StorageSQLite {
		problems = append(problems, fmt.Sprintf("storage must be %q or %q, got %q", StorageJSON, StorageSQLite, c.Storage))
	}
	if c.Storage == StorageJSON && c.DataDir == "" {
		problems = append(problems, "data_dir is required for json storage")
	}
	if c.Storage == StorageSQLite && c.SQLitePath == "" {
		problems = append(problems, "sqlite_path is required for sqlite storage")
	}
	if c.DefaultTax.IsNegative() {
		problems = append(problems, fmt.Sprintf("default_tax must not be negative, got %s", c.DefaultTax))
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port out of range: %d", c.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %v", problems)
	}
	return nil
}

// Defaults returns the model defaults derived from the configuration.
func (c *Config) Defaults() models.Defaults {
	return models.Defaults{TaxRate: c.DefaultTax}
}

// Path returns the config file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// SaveLastReceipt records id as the most recently opened receipt in the
// config file at path, leaving the other settings as they are.
func SaveLastReceipt(path string, id int64) error {
	if path == "" {
		path = DefaultPath
	}
	fc, err := readFile(path)
	if err != nil {
		return err
	}
	fc.LastReceipt = &id

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func readFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
