package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/schmitthub/reactor/internal/logger"
)

// Settings are process settings read from REACTOR_* environment variables.
type Settings struct {
	// LogsDir receives the rotating JSON log file. Empty disables it.
	LogsDir string `mapstructure:"logs_dir"`

	Logging LoggingSettings `mapstructure:"logging"`

	// BuildImage is the default build container image for the hostdocker
	// and privileged methods.
	BuildImage string `mapstructure:"build_image"`
}

// LoggingSettings tune file logging.
type LoggingSettings struct {
	FileEnabled *bool `mapstructure:"file_enabled"`
	MaxSizeMB   int   `mapstructure:"max_size_mb"`
	MaxAgeDays  int   `mapstructure:"max_age_days"`
	MaxBackups  int   `mapstructure:"max_backups"`
}

// FileConfig converts the logging settings for logger.New.
func (s LoggingSettings) FileConfig() *logger.FileConfig {
	return &logger.FileConfig{
		Enabled:    s.FileEnabled,
		MaxSizeMB:  s.MaxSizeMB,
		MaxAgeDays: s.MaxAgeDays,
		MaxBackups: s.MaxBackups,
	}
}

var settingsKeys = []string{
	"logs_dir",
	"build_image",
	"logging.file_enabled",
	"logging.max_size_mb",
	"logging.max_age_days",
	"logging.max_backups",
}

// LoadSettings reads settings from the environment. REACTOR_LOGS_DIR sets
// LogsDir and REACTOR_LOGGING_MAX_SIZE_MB sets Logging.MaxSizeMB.
func LoadSettings() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logs_dir", defaultLogsDir())
	v.SetDefault("build_image", "reactor-build")

	// AutomaticEnv only answers Get for known keys; Unmarshal needs them bound.
	for _, k := range settingsKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return &s, nil
}

func defaultLogsDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "reactor", "logs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "reactor", "logs")
}
