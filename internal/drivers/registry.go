package drivers

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyDriverID indicates a driver descriptor with no identifier value.
	ErrEmptyDriverID = errors.New("drivers: descriptor id is required")
	// ErrDuplicateDriverID indicates a driver registration conflict.
	ErrDuplicateDriverID = errors.New("drivers: descriptor id already registered")
)

// Registry maps driver identifiers (and their aliases) to capability descriptors.
type Registry struct {
	mu      sync.RWMutex
	drivers map[ID]Descriptor
	aliases map[ID]ID
}

var defaultRegistry = NewBuiltinRegistry()

// DefaultRegistry returns the process-wide registry populated with the built-in catalogue.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry constructs an empty driver registry instance.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[ID]Descriptor),
		aliases: make(map[ID]ID),
	}
}

// Register adds a descriptor after validating its identifier and aliases.
func (r *Registry) Register(desc Descriptor) error {
	id := Normalize(string(desc.ID))
	if id == "" {
		return ErrEmptyDriverID
	}
	desc.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.knownLocked(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateDriverID, id)
	}
	for _, alias := range desc.Aliases {
		key := Normalize(alias)
		if key == "" || key == id {
			continue
		}
		if r.knownLocked(key) {
			return fmt.Errorf("%w: alias %s", ErrDuplicateDriverID, key)
		}
	}

	r.drivers[id] = desc.clone()
	for _, alias := range desc.Aliases {
		if key := Normalize(alias); key != "" && key != id {
			r.aliases[key] = id
		}
	}
	return nil
}

// MustRegister wraps Register and panics on validation errors. Intended for init usage.
func (r *Registry) MustRegister(desc Descriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered for id or one of its aliases.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	key := Normalize(id)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	desc, ok := r.drivers[key]
	if !ok {
		return Descriptor{}, false
	}
	return desc.clone(), true
}

// Resolve never fails: unknown identifiers yield a descriptor with every capability off.
func (r *Registry) Resolve(id string) Resolution {
	if r == nil {
		return Resolution{Descriptor: Descriptor{ID: ID(id)}}
	}
	desc, ok := r.Lookup(id)
	if !ok {
		return Resolution{Descriptor: Descriptor{ID: ID(id)}}
	}
	return Resolution{Descriptor: desc, Known: true}
}

// Describe returns known descriptors sorted by SortOrder then ID.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.drivers))
	for _, desc := range r.drivers {
		descriptors = append(descriptors, desc.clone())
	}

	sort.SliceStable(descriptors, func(i, j int) bool {
		if descriptors[i].SortOrder == descriptors[j].SortOrder {
			return descriptors[i].ID < descriptors[j].ID
		}
		return descriptors[i].SortOrder < descriptors[j].SortOrder
	})

	return descriptors
}

// AllIDs returns a sorted slice of all registered driver IDs.
func (r *Registry) AllIDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.drivers))
	for id := range r.drivers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) knownLocked(id ID) bool {
	if _, ok := r.drivers[id]; ok {
		return true
	}
	_, ok := r.aliases[id]
	return ok
}
