package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for overrides.
const (
	EnvConfig      = "OBJWATCH_CONFIG"
	EnvLogLevel    = "OBJWATCH_LOG_LEVEL"
	EnvFormat      = "OBJWATCH_FORMAT"
	EnvParallel    = "OBJWATCH_PARALLEL"
	EnvJournalPath = "OBJWATCH_JOURNAL"
	EnvGoldenDir   = "OBJWATCH_GOLDEN_DIR"
)

// EnvOverrides holds values read from the environment. Empty means unset.
type EnvOverrides struct {
	ConfigPath  string // OBJWATCH_CONFIG
	LogLevel    string // OBJWATCH_LOG_LEVEL
	Format      string // OBJWATCH_FORMAT
	Parallel    string // OBJWATCH_PARALLEL
	JournalPath string // OBJWATCH_JOURNAL
	GoldenDir   string // OBJWATCH_GOLDEN_DIR
}

// ReadEnvOverrides reads the OBJWATCH_* environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		LogLevel:    os.Getenv(EnvLogLevel),
		Format:      os.Getenv(EnvFormat),
		Parallel:    os.Getenv(EnvParallel),
		JournalPath: os.Getenv(EnvJournalPath),
		GoldenDir:   os.Getenv(EnvGoldenDir),
	}
}

func (e EnvOverrides) apply(cfg *Config) error {
	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}
	if e.Format != "" {
		cfg.Format = e.Format
	}
	if e.Parallel != "" {
		n, err := strconv.Atoi(e.Parallel)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		cfg.Parallel = n
	}
	if e.JournalPath != "" {
		cfg.JournalPath = e.JournalPath
	}
	if e.GoldenDir != "" {
		cfg.GoldenDir = e.GoldenDir
	}
	return nil
}
