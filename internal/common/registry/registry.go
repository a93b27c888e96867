// Package registry provides a generic, thread-safe name-to-value registry.
//
// It backs the storage backend factories and the editor's per-argument
// item defaults:
//
//	factories := registry.New[storage.Factory]()
//	factories.Register("sqlite", sqliteFactory)
//	factory, err := factories.Get("sqlite")
package registry

import (
	"fmt"
	"sort"
	"sync"

	"pipeline-builder/internal/common/errors"
)

// Registry maps names to values of type T.
type Registry[T any] struct {
	entries map[string]T
	mu      sync.RWMutex
}

// New creates a new empty registry for values of type T.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// Register adds or replaces the value stored under name.
func (r *Registry[T]) Register(name string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = value
}

// Unregister removes name. Missing names are ignored.
func (r *Registry[T]) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get retrieves the value stored under name or a not-found error.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	value, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("registry entry %s", name))
	}
	return value, nil
}

// Lookup is Get without the error.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, exists := r.entries[name]
	return value, exists
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if name is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Count returns the number of registered entries.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
