package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "objwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 4, cfg.Parallel)
	assert.Equal(t, "objwatch.db", cfg.JournalPath)
	assert.Empty(t, cfg.GoldenDir)
	assert.Zero(t, cfg.MaxDepth)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeTestConfig(t, `
log_level = "debug"
format = "json"
parallel = 8
journal_path = "/tmp/journal.db"
golden_dir = "testdata/golden"
max_depth = 64
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		LogLevel:    "debug",
		Format:      "json",
		Parallel:    8,
		JournalPath: "/tmp/journal.db",
		GoldenDir:   "testdata/golden",
		MaxDepth:    64,
	}, cfg)
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, `parallel = 2`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Parallel)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "objwatch.db", cfg.JournalPath)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeTestConfig(t, `
paralel = 2
colour = "blue"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "paralel", did you mean "parallel"?`)
	assert.Contains(t, err.Error(), `unknown config key "colour"`)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeTestConfig(t, `parallel = [`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, `
format = "yaml"
parallel = 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
	assert.Contains(t, err.Error(), "parallel: must be at least 1")
}

func TestLoadOrDefault_FileNotFound(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeTestConfig(t, `
log_level = "warn"
parallel = 2
journal_path = "file.db"
format = "text"
`)
	env := EnvOverrides{
		ConfigPath:  path,
		Parallel:    "3",
		JournalPath: "env.db",
		Format:      "json",
	}
	format := "text"
	depth := 16
	cfg, err := Resolve(env, Overrides{Format: &format, MaxDepth: &depth})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel, "file beats default")
	assert.Equal(t, 3, cfg.Parallel, "env beats file")
	assert.Equal(t, "env.db", cfg.JournalPath, "env beats file")
	assert.Equal(t, "text", cfg.Format, "flag beats env")
	assert.Equal(t, 16, cfg.MaxDepth)
}

func TestResolve_ExplicitConfigMustExist(t *testing.T) {
	_, err := Resolve(EnvOverrides{}, Overrides{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestResolve_BadEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Resolve(EnvOverrides{Parallel: "many"}, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvParallel)

	_, err = Resolve(EnvOverrides{Format: "xml"}, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation")
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/objwatch.toml")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvGoldenDir, "golden")

	env := ReadEnvOverrides()
	assert.Equal(t, "/etc/objwatch.toml", env.ConfigPath)
	assert.Equal(t, "json", env.Format)
	assert.Equal(t, "golden", env.GoldenDir)
	assert.Empty(t, env.Parallel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "golden_dir", closestMatch("goldendir", knownKeys))
	assert.Equal(t, "", closestMatch("something_else", knownKeys))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
