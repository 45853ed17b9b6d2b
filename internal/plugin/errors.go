package plugin

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlugin    = errors.New("unknown plugin")
	ErrDuplicatePlugin  = errors.New("duplicate plugin registration")
	ErrPluginExecution  = errors.New("plugin execution failed")
	ErrInvalidPluginDef = errors.New("invalid plugin definition")
)

// PluginError is returned by Runner.Run when a plugin that is not allowed
// to fail fails.
type PluginError struct {
	Key  string
	Hook Hook
	Err  error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("%s plugin %s failed: %v", e.Hook, e.Key, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

func (e *PluginError) Is(target error) bool { return target == ErrPluginExecution }
