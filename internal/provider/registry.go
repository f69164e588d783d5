package provider

import (
	"context"
	"fmt"
	"sort"
)

// Factory builds a Provider from backend-specific settings.
type Factory func(ctx context.Context) (Provider, error)

// Registry maps backend names to provider factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry under the given name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build constructs the provider registered under the given name. Unknown
// names list the registered alternatives in the error.
func (r *Registry) Build(ctx context.Context, name string) (Provider, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, r.Names())
	}
	return f(ctx)
}

// Has reports whether a factory with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns a sorted list of all registered backend names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
