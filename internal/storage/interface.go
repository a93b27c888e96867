// Package storage keeps pipeline drafts: named, work-in-progress pipelines
// saved locally between sessions, independent of the backend's saved
// graphs.
//
// SQLite and PostgreSQL adapters register themselves with the default
// registry from their packages' init functions:
//
//	import _ "pipeline-builder/internal/storage/sqlite"
//
//	store, err := storage.NewStore(cfg)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	err = store.SaveDraft(ctx, "churn", doc.Snapshot())
package storage

import (
	"context"
	"time"

	"pipeline-builder/internal/pipeline"
)

// Draft is a stored pipeline
type Draft struct {
	Name      string            `json:"name"`
	Pipeline  pipeline.Pipeline `json:"pipeline"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// DraftSummary is one entry of ListDrafts
type DraftSummary struct {
	Name      string    `json:"name"`
	Steps     int       `json:"steps"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists drafts by name
type Store interface {
	// SaveDraft creates or overwrites the draft called name
	SaveDraft(ctx context.Context, name string, p pipeline.Pipeline) error
	GetDraft(ctx context.Context, name string) (*Draft, error)
	// ListDrafts returns the drafts most recently saved first
	ListDrafts(ctx context.Context) ([]DraftSummary, error)
	DeleteDraft(ctx context.Context, name string) error
	Health(ctx context.Context) error
	Close() error
}

// Config is an adapter's connection configuration
type Config interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}

// Factory opens a Store for one database type
type Factory interface {
	Create(config Config) (Store, error)
	GetType() string
}

// GenericConfig is a map-based Config that factories convert into their own
// type. Recognized keys: "path" (sqlite) and "url" (postgres).
type GenericConfig map[string]interface{}

func (gc GenericConfig) Validate() error {
	return nil
}

func (gc GenericConfig) GetType() string {
	if t, ok := gc["type"].(string); ok {
		return t
	}
	return "generic"
}

func (gc GenericConfig) GetConnectionString() string {
	if path, ok := gc["path"].(string); ok {
		return path
	}
	if url, ok := gc["url"].(string); ok {
		return url
	}
	return ""
}

// String returns the value stored under key, or "" when absent
func (gc GenericConfig) String(key string) string {
	value, _ := gc[key].(string)
	return value
}
