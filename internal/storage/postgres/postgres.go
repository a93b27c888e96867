// Package postgres keeps drafts in PostgreSQL through the pgx driver, for
// teams sharing one draft store
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/storage"
)

const (
	storageType    = "postgres"
	connectTimeout = 10 * time.Second
)

func init() {
	storage.Register(storageType, &Factory{})
}

// Adapter is the shared SQL draft store over a pgx connection pool
type Adapter struct {
	*storage.SQLStore
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", config.GetConnectionString())
	if err != nil {
		return nil, errors.InternalError("open postgres drafts", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store := storage.NewSQLStore(db, storage.Dialect{Name: storageType, Placeholder: storage.DollarNumbers})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.InternalError(fmt.Sprintf("reach postgres drafts on %s:%d", config.Host, config.Port), err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Adapter{SQLStore: store, config: config}, nil
}

type Factory struct{}

func (f *Factory) GetType() string { return storageType }

func (f *Factory) Create(config storage.Config) (storage.Store, error) {
	cfg, err := configFrom(config)
	if err != nil {
		return nil, err
	}
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
