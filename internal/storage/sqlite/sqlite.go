// Package sqlite keeps drafts in a local SQLite file, the default for a
// single user's workstation
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/storage"
)

const storageType = "sqlite"

func init() {
	storage.Register(storageType, &Factory{})
}

type Config struct {
	DatabasePath string
}

func DefaultConfig() *Config {
	return &Config{DatabasePath: "./pipeline_drafts.db"}
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.ConfigError("sqlite database path is required")
	}
	return nil
}

func (c *Config) GetType() string { return storageType }

// GetConnectionString sets a busy timeout so a second CLI process waits on
// a locked file instead of failing
func (c *Config) GetConnectionString() string {
	return "file:" + c.DatabasePath + "?_busy_timeout=5000&_foreign_keys=on"
}

// Adapter is the shared SQL draft store over a SQLite handle
type Adapter struct {
	*storage.SQLStore
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, errors.InternalError("open sqlite drafts "+config.DatabasePath, err)
	}
	// SQLite allows one writer; pooled connections would trip SQLITE_BUSY
	db.SetMaxOpenConns(1)

	store := storage.NewSQLStore(db, storage.Dialect{Name: storageType, Placeholder: storage.QuestionMarks})
	if err := prepare(db, store); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Adapter{SQLStore: store, config: config}, nil
}

func prepare(db *sql.DB, store *storage.SQLStore) error {
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return errors.InternalError("reach sqlite drafts", err)
	}
	return store.Migrate(ctx)
}

type Factory struct{}

func (f *Factory) GetType() string { return storageType }

func (f *Factory) Create(config storage.Config) (storage.Store, error) {
	var cfg *Config
	switch c := config.(type) {
	case *Config:
		cfg = c
	case storage.GenericConfig:
		cfg = &Config{DatabasePath: c.String("path")}
	default:
		return nil, errors.ConfigError(fmt.Sprintf("sqlite storage cannot use %T", config))
	}
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
