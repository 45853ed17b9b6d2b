package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(state, "reactor", "logs"), s.LogsDir)
	assert.Equal(t, "reactor-build", s.BuildImage)

	fc := s.Logging.FileConfig()
	assert.True(t, fc.IsEnabled())
	assert.Equal(t, 50, fc.GetMaxSizeMB())
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("REACTOR_LOGS_DIR", "/var/log/reactor")
	t.Setenv("REACTOR_BUILD_IMAGE", "registry.example.com/reactor-build:2")
	t.Setenv("REACTOR_LOGGING_FILE_ENABLED", "false")
	t.Setenv("REACTOR_LOGGING_MAX_SIZE_MB", "10")
	t.Setenv("REACTOR_LOGGING_MAX_AGE_DAYS", "2")
	t.Setenv("REACTOR_LOGGING_MAX_BACKUPS", "1")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/var/log/reactor", s.LogsDir)
	assert.Equal(t, "registry.example.com/reactor-build:2", s.BuildImage)

	fc := s.Logging.FileConfig()
	assert.False(t, fc.IsEnabled())
	assert.Equal(t, 10, fc.GetMaxSizeMB())
	assert.Equal(t, 2, fc.GetMaxAgeDays())
	assert.Equal(t, 1, fc.GetMaxBackups())
}
