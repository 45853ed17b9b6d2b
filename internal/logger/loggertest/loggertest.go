// Package loggertest provides test doubles for the logger package.
// TestLogger captures log output for assertions in tests.
package loggertest

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger satisfies logger.Logger and records JSON output in a buffer.
// It exposes only the interface methods, not zerolog's full API.
type TestLogger struct {
	logger zerolog.Logger
	buf    *syncBuffer
}

// New creates a test logger that captures all levels.
func New() *TestLogger {
	buf := &syncBuffer{}
	return &TestLogger{
		logger: zerolog.New(buf).Level(zerolog.DebugLevel),
		buf:    buf,
	}
}

// NewNop creates a test logger that discards all output.
func NewNop() *TestLogger {
	return &TestLogger{
		logger: zerolog.Nop(),
		buf:    &syncBuffer{},
	}
}

func (tl *TestLogger) Debug() *zerolog.Event { return tl.logger.Debug() }
func (tl *TestLogger) Info() *zerolog.Event  { return tl.logger.Info() }
func (tl *TestLogger) Warn() *zerolog.Event  { return tl.logger.Warn() }
func (tl *TestLogger) Error() *zerolog.Event { return tl.logger.Error() }

// Output returns captured log output as a string.
func (tl *TestLogger) Output() string { return tl.buf.String() }

// Contains reports whether the captured output contains s.
func (tl *TestLogger) Contains(s string) bool { return strings.Contains(tl.Output(), s) }

// Reset clears captured output.
func (tl *TestLogger) Reset() { tl.buf.Reset() }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
