package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages artifact providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// Resolve is Get with an error for unknown names
func (r *Registry) Resolve(name string) (Provider, error) {
	if p := r.Get(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("no artifact provider registered as %q (have %v)", name, r.List())
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll checks health of all registered providers
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error)
	for name, provider := range r.providers {
		results[name] = provider.HealthCheck(ctx)
	}
	return results
}
