package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileConfigDefaults(t *testing.T) {
	var nilCfg *FileConfig
	assert.True(t, nilCfg.IsEnabled())
	assert.Equal(t, 50, nilCfg.GetMaxSizeMB())
	assert.Equal(t, 7, nilCfg.GetMaxAgeDays())
	assert.Equal(t, 3, nilCfg.GetMaxBackups())

	disabled := false
	cfg := &FileConfig{Enabled: &disabled, MaxSizeMB: 10, MaxAgeDays: 1, MaxBackups: 9}
	assert.False(t, cfg.IsEnabled())
	assert.Equal(t, 10, cfg.GetMaxSizeMB())
	assert.Equal(t, 1, cfg.GetMaxAgeDays())
	assert.Equal(t, 9, cfg.GetMaxBackups())
}

func TestNew_ConsoleLevels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
	}{
		{name: "default", wantInfo: true},
		{name: "verbose", opts: Options{Verbose: true}, wantDebug: true, wantInfo: true},
		{name: "quiet", opts: Options{Quiet: true}},
		{name: "verbose wins over quiet", opts: Options{Verbose: true, Quiet: true}, wantDebug: true, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Out = &buf
			tt.opts.NoColor = true

			l, err := New(tt.opts)
			require.NoError(t, err)

			l.Debug().Msg("debug-line")
			l.Info().Msg("info-line")
			l.Warn().Msg("warn-line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug-line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info-line"))
			assert.Contains(t, out, "warn-line")
		})
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")

	var console bytes.Buffer
	l, err := New(Options{Out: &console, NoColor: true, LogsDir: logsDir})
	require.NoError(t, err)

	l.Info().Str("image", "myrepo:latest").Msg("building")
	assert.Equal(t, filepath.Join(logsDir, LogFileName), l.FilePath())
	require.NoError(t, l.Close())
	assert.Empty(t, l.FilePath())

	data, err := os.ReadFile(filepath.Join(logsDir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"image":"myrepo:latest"`)
	assert.Contains(t, console.String(), "building")
}

func TestNew_FileLoggingDisabled(t *testing.T) {
	disabled := false
	l, err := New(Options{Out: &bytes.Buffer{}, LogsDir: t.TempDir(), File: &FileConfig{Enabled: &disabled}})
	require.NoError(t, err)
	assert.Empty(t, l.FilePath())
	assert.NoError(t, l.Close())
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Out: &buf, NoColor: true})
	require.NoError(t, err)

	child := With(l, "plugin", "all_rpm_packages")
	child.Info().Msg("running")
	assert.Contains(t, buf.String(), "all_rpm_packages")

	other := otherLogger{Nop()}
	assert.Equal(t, other, With(other, "k", "v"))
}

type otherLogger struct{ Logger }
