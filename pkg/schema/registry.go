package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the plugin definitions known to a running host, plus
// override variants layered on top (a locally edited definition shadowing a
// bundled one). It is an explicit object injected at startup, never a
// package-level map.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]*Plugin
	overrides map[string]*Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:   make(map[string]*Plugin),
		overrides: make(map[string]*Plugin),
	}
}

// Register adds a base definition, keyed by its metadata name.
func (r *Registry) Register(p *Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Metadata.Name
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.plugins[name] = p
	return nil
}

// Override installs a variant that shadows the base definition of the same
// name. The base does not need to exist; an override can introduce a plugin
// on its own.
func (r *Registry) Override(p *Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[p.Metadata.Name] = p
	return nil
}

// ClearOverride removes an override, falling back to the base definition.
func (r *Registry) ClearOverride(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, name)
}

// Resolve returns the effective definition for a name, override first.
func (r *Registry) Resolve(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.overrides[name]; ok {
		return p, true
	}
	p, ok := r.plugins[name]
	return p, ok
}

// Names lists all known plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool, len(r.plugins)+len(r.overrides))
	for name := range r.plugins {
		set[name] = true
	}
	for name := range r.overrides {
		set[name] = true
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
