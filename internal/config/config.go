package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ning0612/devmanager/internal/domain"
)

// AppName names the config file, env prefix and default data directory
const AppName = "devmanager"

// Config represents the complete configuration for devmanager
type Config struct {
	// DataDir holds the history database and the default PID file
	DataDir string `mapstructure:"data_dir"`

	Serve ServeConfig `mapstructure:"serve"`
	GenID GenIDConfig `mapstructure:"genid"`
	Move  MoveConfig  `mapstructure:"move"`
	Log   LogConfig   `mapstructure:"log"`
}

// ServeConfig configures the debug HTTP server
type ServeConfig struct {
	Root            string        `mapstructure:"root"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Static          bool          `mapstructure:"static"`
	RedirectIndex   bool          `mapstructure:"redirect_index"`
	Metrics         bool          `mapstructure:"metrics"`
	LiveReload      bool          `mapstructure:"livereload"`
	PIDFile         string        `mapstructure:"pidfile"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GenIDConfig configures ID generation
type GenIDConfig struct {
	Length   int    `mapstructure:"length"`
	Template string `mapstructure:"template"`
	Lower    bool   `mapstructure:"lower"`
}

// MoveConfig configures staging runs
type MoveConfig struct {
	Manifest string        `mapstructure:"manifest"`
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("%w: serve.port out of range: %d", domain.ErrConfigInvalid, c.Serve.Port)
	}
	if c.Serve.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: serve.shutdown_timeout cannot be negative", domain.ErrConfigInvalid)
	}
	if c.GenID.Length < 1 || c.GenID.Length > 32 {
		return fmt.Errorf("%w: genid.length must be 1..32, got %d", domain.ErrConfigInvalid, c.GenID.Length)
	}
	if c.Move.Manifest == "" {
		return fmt.Errorf("%w: move.manifest cannot be empty", domain.ErrConfigInvalid)
	}
	if c.Move.Interval < 0 {
		return fmt.Errorf("%w: move.interval cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Move.Debounce < 0 {
		return fmt.Errorf("%w: move.debounce cannot be negative", domain.ErrConfigInvalid)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log.level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}

	return nil
}

// HistoryPath returns the staging history database path
func (c *Config) HistoryPath() string {
	return filepath.Join(ExpandPath(c.DataDir), AppName+".db")
}

// PIDFilePath returns the configured PID file, or the default one inside
// the data directory
func (c *Config) PIDFilePath() string {
	if c.Serve.PIDFile != "" {
		return ExpandPath(c.Serve.PIDFile)
	}
	return filepath.Join(ExpandPath(c.DataDir), "serve.pid")
}

// DefaultDataDir returns the per-user data directory
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, AppName)
	}
	return filepath.Join(".", "."+AppName)
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
