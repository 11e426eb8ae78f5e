package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "objwatch", cmd.Use)
	assert.Contains(t, cmd.Long, "replay")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "test", "record", "replay", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("max-depth"))
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := []struct {
		command string
		flags   []string
	}{
		{"run", []string{"quiet"}},
		{"test", []string{"parallel", "golden", "update"}},
		{"record", []string{"db", "stream", "overwrite"}},
		{"replay", []string{"db", "stream", "initial"}},
	}
	for _, tt := range tests {
		sub, _, err := cmd.Find([]string{tt.command})
		require.NoError(t, err)
		for _, name := range tt.flags {
			assert.NotNil(t, sub.Flags().Lookup(name), "%s --%s", tt.command, name)
		}
	}
}

func TestRootInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "cart.yaml", passingScenario)

	_, err := execute(t, NewRootCommand(), "--format", "xml", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "cart.yaml", passingScenario)
	cfgPath := filepath.Join(dir, "objwatch.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format = \"json\"\n"), 0o600))

	out, err := execute(t, NewRootCommand(), "--config", cfgPath, "validate", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
}

func TestRootBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "cart.yaml", passingScenario)
	cfgPath := filepath.Join(dir, "objwatch.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("formt = \"json\"\n"), 0o600))

	_, err := execute(t, NewRootCommand(), "--config", cfgPath, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `did you mean "format"?`)
}
