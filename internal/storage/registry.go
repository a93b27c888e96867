package storage

import (
	"fmt"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/registry"
	"pipeline-builder/internal/config"
)

// Registry maps DATABASE_TYPE values to adapter factories
type Registry struct {
	factories *registry.Registry[Factory]
}

func NewRegistry() *Registry {
	return &Registry{factories: registry.New[Factory]()}
}

func (r *Registry) Register(storageType string, factory Factory) {
	r.factories.Register(storageType, factory)
}

func (r *Registry) IsRegistered(storageType string) bool {
	return r.factories.IsRegistered(storageType)
}

// GetAvailableTypes lists the registered types, sorted
func (r *Registry) GetAvailableTypes() []string {
	return r.factories.Names()
}

// Create opens a store with the factory registered for storageType
func (r *Registry) Create(storageType string, config Config) (Store, error) {
	factory, ok := r.factories.Lookup(storageType)
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("storage type %s not registered", storageType)).
			WithContext("available", r.GetAvailableTypes())
	}
	return factory.Create(config)
}

// DefaultRegistry receives the adapters' init registrations
var DefaultRegistry = NewRegistry()

func Register(storageType string, factory Factory) { DefaultRegistry.Register(storageType, factory) }

func Create(storageType string, config Config) (Store, error) {
	return DefaultRegistry.Create(storageType, config)
}

func GetAvailableTypes() []string { return DefaultRegistry.GetAvailableTypes() }

// NewStore opens the draft store named by cfg.DatabaseType. The adapter's
// package must be imported for its factory to be registered.
func NewStore(cfg *config.Config) (Store, error) {
	var conn GenericConfig
	switch cfg.DatabaseType {
	case "sqlite":
		conn = GenericConfig{"type": "sqlite", "path": cfg.DatabasePath}
	case "postgres":
		conn = GenericConfig{"type": "postgres", "url": cfg.DatabaseURL}
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}
	return Create(cfg.DatabaseType, conn)
}
