package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads, decodes and validates a TOML config file. Unknown keys are
// errors.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists and returns the defaults
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Overrides holds global flag values. Pointer fields are nil when the flag
// was not given. Command specific flags (--db, --parallel) fall back to the
// resolved Config in the command itself.
type Overrides struct {
	ConfigPath string
	LogLevel   *string
	Format     *string
	MaxDepth   *int
}

// Resolve applies the override chain: defaults, config file, environment,
// flags. An explicitly named config file must exist; the default file is
// optional.
func Resolve(env EnvOverrides, flags Overrides) (*Config, error) {
	path := DefaultConfigFile
	explicit := false
	if env.ConfigPath != "" {
		path, explicit = env.ConfigPath, true
	}
	if flags.ConfigPath != "" {
		path, explicit = flags.ConfigPath, true
	}

	var (
		cfg *Config
		err error
	)
	if explicit {
		cfg, err = Load(path)
	} else {
		cfg, err = LoadOrDefault(path)
	}
	if err != nil {
		return nil, err
	}

	if err := env.apply(cfg); err != nil {
		return nil, err
	}
	flags.apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (o Overrides) apply(cfg *Config) {
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.Format != nil {
		cfg.Format = *o.Format
	}
	if o.MaxDepth != nil {
		cfg.MaxDepth = *o.MaxDepth
	}
}
