package sources

import (
	"fmt"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

// Registry keeps a mapping from source kinds to their retrieval adapters.
type Registry struct {
	adapters map[domain.SourceKind]ports.MessageSource
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.SourceKind]ports.MessageSource{}}
}

// Register adds or replaces the adapter serving a source kind.
func (r *Registry) Register(kind domain.SourceKind, adapter ports.MessageSource) {
	if r.adapters == nil {
		r.adapters = map[domain.SourceKind]ports.MessageSource{}
	}
	r.adapters[kind] = adapter
}

// Resolve returns the adapter for a source kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.MessageSource, error) {
	if adapter, ok := r.adapters[kind]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source kind %s is not registered", kind)
}
