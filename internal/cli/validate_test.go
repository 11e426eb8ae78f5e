package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandValid(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "cart.yaml", passingScenario)
	writeScenarioFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err, "a failing scenario is still a valid one")
	assert.Contains(t, out, "2 scenario(s) valid")
}

func TestValidateCommandInvalid(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "cart.yaml", passingScenario)
	bad := writeScenarioFile(t, dir, "bad.yaml", "name: bad\ndescription: x\nstepz: []\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeInvalidScenario+"]: "+bad)
	assert.Contains(t, out, "stepz")
}

func TestValidateCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "bad.yaml", "name: [")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Error)
}

func TestValidateCommandMissingPath(t *testing.T) {
	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/x.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
