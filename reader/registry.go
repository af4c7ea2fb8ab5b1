package reader

import (
	"fmt"

	"tradescanner/models"
)

// Registry maps each exchange to its adapter. It is filled once at start-up.
type Registry struct {
	adapters map[models.Exchange]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Exchange]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Exchange()] = a
	}
	return r
}

// Get returns the adapter registered for ex.
func (r *Registry) Get(ex models.Exchange) (Adapter, error) {
	a, ok := r.adapters[ex]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %s", ex)
	}
	return a, nil
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int { return len(r.adapters) }
