// Package config loads objwatch.toml, the configuration for the objwatch
// command line tool.
//
// Values resolve in four layers: defaults, then the config file, then
// OBJWATCH_* environment variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultConfigFile is the file name looked up in the working directory
// when no path is given.
const DefaultConfigFile = "objwatch.toml"

// Default values for configuration options.
const (
	defaultLogLevel    = "info"
	defaultFormat      = "text"
	defaultParallel    = 4
	defaultJournalPath = "objwatch.db"
	defaultMaxDepth    = 0
)

// Config is the decoded objwatch.toml.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Format is the output format, text or json.
	Format string `toml:"format"`
	// Parallel bounds how many scenarios `test` runs at once.
	Parallel int `toml:"parallel"`
	// JournalPath is the SQLite journal used by record and replay.
	JournalPath string `toml:"journal_path"`
	// GoldenDir holds golden traces for `test`. Empty disables golden
	// comparison.
	GoldenDir string `toml:"golden_dir"`
	// MaxDepth bounds deep operations; 0 keeps the engine default.
	MaxDepth int `toml:"max_depth"`
}

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    defaultLogLevel,
		Format:      defaultFormat,
		Parallel:    defaultParallel,
		JournalPath: defaultJournalPath,
		MaxDepth:    defaultMaxDepth,
	}
}

// ErrInvalidLogLevel is returned for a log level slog does not know.
var ErrInvalidLogLevel = errors.New("invalid log level")

// ParseLogLevel maps a config log level to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}
