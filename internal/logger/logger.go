// Package logger builds the zerolog loggers handed to every component.
//
// There is no package-level logger: the factory creates one Log at startup
// and passes it down. Components depend on the Logger interface so tests can
// substitute loggertest.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the name of the rotating log file inside the logs directory.
const LogFileName = "reactor.log"

// Logger is the logging surface components depend on.
// *zerolog.Logger satisfies it directly.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// FileConfig configures file logging.
type FileConfig struct {
	Enabled    *bool
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// IsEnabled returns whether file logging is enabled.
// Defaults to true if not explicitly set.
func (c *FileConfig) IsEnabled() bool {
	if c == nil || c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *FileConfig) GetMaxSizeMB() int {
	if c == nil || c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *FileConfig) GetMaxAgeDays() int {
	if c == nil || c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *FileConfig) GetMaxBackups() int {
	if c == nil || c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// Options configures New.
type Options struct {
	Verbose bool      // debug level
	Quiet   bool      // warn level; ignored when Verbose is set
	Out     io.Writer // console destination, defaults to os.Stderr
	NoColor bool

	// LogsDir enables JSON file logging with rotation when non-empty.
	LogsDir string
	File    *FileConfig
}

// Log is a zerolog logger plus the file sink it may own.
type Log struct {
	zerolog.Logger
	file *lumberjack.Logger
}

var _ Logger = (*Log)(nil)

// New creates a Log writing human readable output to the console and,
// when configured, JSON to a rotating file in opts.LogsDir.
func New(opts Options) (*Log, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}

	l := &Log{}
	var w io.Writer = console

	if opts.LogsDir != "" && opts.File.IsEnabled() {
		if err := os.MkdirAll(opts.LogsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		l.file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogsDir, LogFileName),
			MaxSize:    opts.File.GetMaxSizeMB(),
			MaxAge:     opts.File.GetMaxAgeDays(),
			MaxBackups: opts.File.GetMaxBackups(),
			LocalTime:  true,
		}
		// Console stays human readable, the file gets JSON.
		w = io.MultiWriter(console, l.file)
	}

	l.Logger = zerolog.New(w).
		Level(level(opts)).
		With().
		Timestamp().
		Logger()

	return l, nil
}

func level(opts Options) zerolog.Level {
	switch {
	case opts.Verbose:
		return zerolog.DebugLevel
	case opts.Quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// FilePath returns the log file path, or "" when file logging is disabled.
func (l *Log) FilePath() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Filename
}

// Close closes the file sink if there is one.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	l := zerolog.Nop()
	return &l
}

// With returns a child of parent carrying an extra string field when parent
// is a zerolog logger; other Logger implementations are returned unchanged.
func With(parent Logger, key, value string) Logger {
	switch p := parent.(type) {
	case *Log:
		child := p.Logger.With().Str(key, value).Logger()
		return &child
	case *zerolog.Logger:
		child := p.With().Str(key, value).Logger()
		return &child
	default:
		return parent
	}
}
