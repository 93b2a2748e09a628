// Package registry wires a driver handle into the core and tracks
// registered model classes. The global default database handle is an
// explicit process-wide resource with init/teardown rules, rather than
// module-level state captured on the class objects themselves.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/model"
)

// Registry holds the process-wide default driver handle plus the set of
// model classes application code has registered.
type Registry struct {
	mu      sync.RWMutex
	store   driver.Store
	classes map[reflect.Type]model.Class
	byName  map[string]model.Class
}

// New returns an empty Registry with no driver bound.
func New() *Registry {
	return &Registry{
		classes: make(map[reflect.Type]model.Class),
		byName:  make(map[string]model.Class),
	}
}

// Init binds store as this Registry's driver handle. Calling Init twice
// without an intervening Teardown is an error — callers that want to swap
// drivers (e.g. in tests) must Teardown first.
func (r *Registry) Init(store driver.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		return fmt.Errorf("firedoc: registry already initialized")
	}
	r.store = store
	return nil
}

// Teardown releases the bound driver handle.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = nil
}

// Store returns the bound driver handle, or an error if Init hasn't run.
func (r *Registry) Store() (driver.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.store == nil {
		return nil, fmt.Errorf("firedoc: registry not initialized, call Init first")
	}
	return r.store, nil
}

// RegisterModel compiles cls's metadata eagerly (surfacing a schema error
// at startup rather than on first use) and records it under its collection
// name, rejecting a second class that resolves to the same name.
func (r *Registry) RegisterModel(cls model.Class) error {
	meta, err := model.Compile(cls)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeOf(cls)
	if _, ok := r.classes[t]; ok {
		return nil
	}
	if existing, ok := r.byName[meta.CollectionName]; ok && reflect.TypeOf(existing) != t {
		return fmt.Errorf("firedoc: collection name %q already registered", meta.CollectionName)
	}

	r.classes[t] = cls
	r.byName[meta.CollectionName] = cls
	return nil
}

// ClassByCollection returns the registered class for a collection name.
func (r *Registry) ClassByCollection(name string) (model.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cls, ok := r.byName[name]
	return cls, ok
}

// Default is the process-wide Registry most applications use directly,
// reached through explicit Init/Teardown calls instead of ambient state.
var Default = New()
