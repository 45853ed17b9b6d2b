package plugin

import (
	"fmt"
	goplugin "plugin"
)

// RegisterSymbol is the function a plugin file must export:
//
//	func RegisterPlugins(*plugin.Registry) error
const RegisterSymbol = "RegisterPlugins"

// Loader adds plugins from a file to a registry.
type Loader interface {
	Load(path string, reg *Registry) error
}

// SharedObjectLoader loads Go plugins built with -buildmode=plugin.
type SharedObjectLoader struct{}

// Load opens path and calls its RegisterPlugins function.
func (SharedObjectLoader) Load(path string, reg *Registry) error {
	p, err := goplugin.Open(path)
	if err != nil {
		return fmt.Errorf("opening plugin file %s: %w", path, err)
	}
	sym, err := p.Lookup(RegisterSymbol)
	if err != nil {
		return fmt.Errorf("plugin file %s: %w", path, err)
	}
	register, ok := sym.(func(*Registry) error)
	if !ok {
		return fmt.Errorf("plugin file %s: %s has type %T", path, RegisterSymbol, sym)
	}
	return register(reg)
}

// LoadAll loads every path in order, stopping at the first error.
func LoadAll(l Loader, reg *Registry, paths ...string) error {
	for _, path := range paths {
		if err := l.Load(path, reg); err != nil {
			return err
		}
	}
	return nil
}
