package config

import (
	"errors"
	"fmt"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Validate checks every field and returns all problems joined.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %q is not one of debug, info, warn, error", cfg.LogLevel))
	}
	if !IsValidFormat(cfg.Format) {
		errs = append(errs, fmt.Errorf("format: %q is not one of %v", cfg.Format, ValidFormats))
	}
	if cfg.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel: must be at least 1, got %d", cfg.Parallel))
	}
	if cfg.JournalPath == "" {
		errs = append(errs, errors.New("journal_path: must not be empty"))
	}
	if cfg.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth: must not be negative, got %d", cfg.MaxDepth))
	}

	return errors.Join(errs...)
}

// IsValidFormat reports whether format is one of ValidFormats.
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
