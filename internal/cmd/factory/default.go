package factory

import (
	"sync"

	"github.com/schmitthub/reactor/internal/cmdutil"
	"github.com/schmitthub/reactor/internal/config"
	"github.com/schmitthub/reactor/internal/docker"
	"github.com/schmitthub/reactor/internal/engine"
	"github.com/schmitthub/reactor/internal/iostreams"
	"github.com/schmitthub/reactor/internal/logger"
	"github.com/schmitthub/reactor/internal/plugin"
	"github.com/schmitthub/reactor/internal/plugins"
)

// New creates a fully-wired Factory with lazy-initialized dependency closures.
// Called exactly once at the CLI entry point (internal/reactor/cmd.go).
// Tests should NOT import this package; construct &cmdutil.Factory{} directly.
func New(version, commit string) *cmdutil.Factory {
	ios := iostreams.System()

	f := &cmdutil.Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: ios,
	}

	// --- Lazy dependency closures ---

	// Settings
	var (
		settingsOnce sync.Once
		settings     *config.Settings
		settingsErr  error
	)
	f.Settings = func() (*config.Settings, error) {
		settingsOnce.Do(func() {
			settings, settingsErr = config.LoadSettings()
		})
		return settings, settingsErr
	}

	// Logger. Built on first use, after the root command has parsed the
	// verbosity flags.
	var (
		logOnce sync.Once
		log     logger.Logger
		logFile *logger.Log
	)
	f.Logger = func() logger.Logger {
		logOnce.Do(func() {
			log, logFile = newLogger(f)
		})
		return log
	}
	f.CloseLogger = func() {
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	// Engine client
	var (
		engineOnce sync.Once
		client     *docker.Client
		engineErr  error
	)
	f.Engine = func() (engine.Engine, error) {
		engineOnce.Do(func() {
			client, engineErr = docker.NewClient(f.Logger())
		})
		if engineErr != nil {
			return nil, engineErr
		}
		return client, nil
	}
	f.CloseEngine = func() {
		if client != nil {
			_ = client.Close()
		}
	}

	// Plugins. Every call returns a fresh registry so --load-plugin
	// additions never leak between commands.
	f.PluginRegistry = func() (*plugin.Registry, error) {
		reg := plugin.NewRegistry()
		if err := plugins.Register(reg); err != nil {
			return nil, err
		}
		return reg, nil
	}
	f.PluginLoader = func() plugin.Loader {
		return plugin.SharedObjectLoader{}
	}

	return f
}

// newLogger builds the process logger from settings and the verbosity
// flags. File logging is dropped, with a warning, when it cannot be set up.
func newLogger(f *cmdutil.Factory) (logger.Logger, *logger.Log) {
	opts := logger.Options{
		Verbose: f.Verbose,
		Quiet:   f.Quiet,
		Out:     f.IOStreams.ErrOut,
		NoColor: !f.IOStreams.ColorEnabled(),
	}

	settings, settingsErr := f.Settings()
	if settingsErr == nil {
		opts.LogsDir = settings.LogsDir
		opts.File = settings.Logging.FileConfig()
	}

	l, err := logger.New(opts)
	if err != nil {
		opts.LogsDir = ""
		l, _ = logger.New(opts)
		l.Warn().Err(err).Msg("file logging unavailable")
		return l, l
	}
	if settingsErr != nil {
		l.Warn().Err(settingsErr).Msg("file logging unavailable: failed to load settings")
	}
	return l, l
}
