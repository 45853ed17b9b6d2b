package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps hook and key to plugin definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[Hook]map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[Hook]map[string]Definition{}}
}

// Register adds def. A key may be registered once per hook.
func (r *Registry) Register(def Definition) error {
	if def.Key == "" || def.New == nil || !def.Hook.Valid() {
		return fmt.Errorf("%w: key=%q hook=%q", ErrInvalidPluginDef, def.Key, def.Hook)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byKey, ok := r.defs[def.Hook]
	if !ok {
		byKey = map[string]Definition{}
		r.defs[def.Hook] = byKey
	}
	if _, exists := byKey[def.Key]; exists {
		return fmt.Errorf("%w: %s plugin %s", ErrDuplicatePlugin, def.Hook, def.Key)
	}
	byKey[def.Key] = def
	return nil
}

// MustRegister is Register that panics, for static registration.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered for hook and key.
func (r *Registry) Lookup(hook Hook, key string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[hook][key]
	return def, ok
}

// Keys returns the sorted keys registered for hook.
func (r *Registry) Keys(hook Hook) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.defs[hook]))
	for k := range r.defs[hook] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
