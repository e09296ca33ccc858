package tms20

import (
	"strings"

	"github.com/umpc/go-sortedmap"
)

// Registry is a collection of initialized tile matrix sets, keyed and sorted
// by their identifier. The zero value is not usable, create one with
// NewRegistry or DefaultRegistry. A Registry is not safe for concurrent use.
type Registry struct {
	sets *sortedmap.SortedMap
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sets: sortedmap.New(0, func(x, y interface{}) bool {
		return x.(string) < y.(string)
	})}
}

// DefaultRegistry creates a Registry holding all embedded tile matrix sets.
func DefaultRegistry() (*Registry, error) {
	entries, err := embeddedTileMatrixSetsJSONFS.ReadDir("tilematrixsets")
	if err != nil {
		return nil, err
	}
	registry := NewRegistry()
	for _, entry := range entries {
		id := strings.TrimSuffix(entry.Name(), ".json")
		tileMatrixSet, err := LoadEmbeddedTileMatrixSet(id)
		if err != nil {
			return nil, err
		}
		tms, err := NewTms(tileMatrixSet)
		if err != nil {
			return nil, err
		}
		if err = registry.Register(tms); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a tile matrix set to the registry. Registering an identifier
// twice is an error, use RegisterOverwrite to replace a tile matrix set.
func (r *Registry) Register(tms *Tms) error {
	if !r.sets.Insert(tms.ID, tms) {
		return &AlreadyRegisteredError{ID: tms.ID}
	}
	return nil
}

// RegisterAll adds multiple tile matrix sets to the registry,
// stopping at the first error.
func (r *Registry) RegisterAll(tmss ...*Tms) error {
	for _, tms := range tmss {
		if err := r.Register(tms); err != nil {
			return err
		}
	}
	return nil
}

// RegisterOverwrite adds a tile matrix set to the registry,
// replacing any tile matrix set with the same identifier.
func (r *Registry) RegisterOverwrite(tms *Tms) {
	r.sets.Replace(tms.ID, tms)
}

// Get returns the tile matrix set registered under the given identifier
// or a NotRegisteredError.
func (r *Registry) Get(id string) (*Tms, error) {
	tms, ok := r.Lookup(id)
	if !ok {
		return nil, &NotRegisteredError{ID: id}
	}
	return tms, nil
}

// Lookup returns the tile matrix set registered under the given identifier.
func (r *Registry) Lookup(id string) (*Tms, bool) {
	val, ok := r.sets.Get(id)
	if !ok {
		return nil, false
	}
	return val.(*Tms), true
}

// List returns the registered identifiers in lexical order.
func (r *Registry) List() []string {
	keys := r.sets.Keys()
	ids := make([]string, len(keys))
	for i := range keys {
		ids[i] = keys[i].(string)
	}
	return ids
}

// Len returns the number of registered tile matrix sets.
func (r *Registry) Len() int {
	return r.sets.Len()
}
