package index

import (
	"sort"
	"sync"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
)

// Registry maps collection names to their indexes.
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]*Index
	workers int
}

// NewRegistry creates an empty registry. workers is handed to every index.
func NewRegistry(workers int) *Registry {
	return &Registry{indexes: make(map[string]*Index), workers: workers}
}

// Open returns the index of a collection, creating an empty one if needed.
func (r *Registry) Open(col domcol.Collection) *Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ix, ok := r.indexes[col.Name()]; ok {
		return ix
	}
	ix := New(col, r.workers)
	r.indexes[col.Name()] = ix
	return ix
}

// Build creates an unregistered index for col. Callers fill it and hand it
// to Put once it is complete, so searches never observe a partial load.
func (r *Registry) Build(col domcol.Collection) *Index {
	return New(col, r.workers)
}

// Put registers ix, replacing any index of the same collection.
func (r *Registry) Put(ix *Index) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[ix.Name()] = ix
}

// Get returns the index of a collection.
func (r *Registry) Get(name string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ix, ok := r.indexes[name]
	return ix, ok
}

// Drop forgets the index of a collection.
func (r *Registry) Drop(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexes, name)
}

// Names returns the indexed collection names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
