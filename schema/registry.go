package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry maintains the set of known entities and, for entities backed
// by Go structs, the mapping back to their reflect.Type. Lookups during
// IR building and hydration go through a Registry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Entity
	byType map[reflect.Type]*ModelInfo
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Entity),
		byType: make(map[reflect.Type]*ModelInfo),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the generic
// RegisterModel and Lookup helpers.
func Default() *Registry { return defaultRegistry }

// Add registers an entity. Registering a second entity under the same
// name returns a DuplicateEntityError.
func (r *Registry) Add(e *Entity) error {
	if e.Name == "" {
		return fmt.Errorf("register entity: name must not be empty")
	}
	if e.Table == "" {
		e.Table = e.Name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[e.Name]; ok {
		return &DuplicateEntityError{Name: e.Name}
	}
	r.byName[e.Name] = e
	return nil
}

// MustAdd is a helper that calls Add and panics on error. It is
// intended for use during application initialization.
func (r *Registry) MustAdd(e *Entity) {
	if err := r.Add(e); err != nil {
		panic(err)
	}
}

// Lookup retrieves the entity registered under the given name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// LookupType retrieves the model info for a Go struct type registered
// via RegisterModel.
func (r *Registry) LookupType(t reflect.Type) (*ModelInfo, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byType[t]
	return info, ok
}

// Entities returns all registered entities, sorted by name.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Entity, 0, len(r.byName))
	for _, e := range r.byName {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Clear removes every registered entity. This is primarily used by
// tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*Entity)
	r.byType = make(map[reflect.Type]*ModelInfo)
}
