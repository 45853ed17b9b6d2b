package cmdutil

import (
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/iostreams"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
)

// Factory provides shared dependencies for CLI commands.
// It is a dependency injection container: the struct defines what
// dependencies exist (the contract), while internal/cmd/factory
// wires the real implementations.
//
// Closure fields are set by the factory constructor and use lazy
// initialization internally. Commands extract only the fields they
// need into per-command Options structs.
type Factory struct {
	// Verbosity from the root flags (set before command execution)
	Verbose bool
	Quiet   bool

	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	// IO streams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	// Dependency providers (closures wired by factory constructor)
	Settings func() (*config.Settings, error)
	Logger   func() logger.Logger
	// CloseLogger flushes and closes the log file, if one was opened.
	CloseLogger func()

	Engine      func() (engine.Engine, error)
	CloseEngine func()

	// PluginRegistry returns the registry of built-in plugins.
	PluginRegistry func() (*plugin.Registry, error)
	// PluginLoader loads plugin shared objects given with --load-plugin.
	PluginLoader func() plugin.Loader
}
