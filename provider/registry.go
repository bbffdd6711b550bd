package provider

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Settings carries provider construction options.
type Settings struct {
	// Out is the terminal for osc52. Defaults to os.Stdout.
	Out       io.Writer
	Mux       Multiplexer
	Initial   string
	Sensitive bool
	Force     bool
	Limit     int
}

// Factory creates a provider from settings.
type Factory func(s Settings) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry returns a registry holding the builtin providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("system", func(Settings) (Provider, error) {
		return NewSystem(), nil
	})
	r.Register("gopass", func(s Settings) (Provider, error) {
		return NewGopass(s.Sensitive), nil
	})
	r.Register("osc52", func(s Settings) (Provider, error) {
		o := NewOSC52(s.Out, s.Mux)
		o.Force = s.Force
		o.Limit = s.Limit
		return o, nil
	})
	r.Register("memory", func(s Settings) (Provider, error) {
		return NewMemory(s.Initial), nil
	})
	r.Register("none", func(Settings) (Provider, error) {
		return Unavailable{}, nil
	})
	return r
}

var defaultRegistry = NewRegistry()

// Register adds or replaces a provider factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New creates a provider instance by name.
func (r *Registry) New(name string, s Settings) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return f(s)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a factory to the default registry.
func Register(name string, f Factory) {
	defaultRegistry.Register(name, f)
}

// New creates a provider from the default registry.
func New(name string, s Settings) (Provider, error) {
	return defaultRegistry.New(name, s)
}

// IsRegistered checks the default registry.
func IsRegistered(name string) bool {
	return defaultRegistry.Has(name)
}

// Names lists the default registry.
func Names() []string {
	return defaultRegistry.Names()
}
