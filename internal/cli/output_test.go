package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"stream": "cart"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeInvalidScenario, "scenario invalid", []string{"steps: required"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidScenario, resp.Error.Code)
	assert.Equal(t, "scenario invalid", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			err := formatter.Error("E001", "journal unreadable", map[string]string{"db": "x.db"})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E001]: journal unreadable")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("loaded %d scenario(s)", 3)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "loaded 3 scenario(s)")

	formatter.Verbose = false
	formatter.VerboseLog("dropped")
	assert.NotContains(t, errOut.String(), "dropped")
}

func TestOutputFormatter_Result(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}

		rendered := false
		require.NoError(t, formatter.Result(map[string]int{"passed": 1}, &CLIError{
			Code:    ErrCodeTestFailed,
			Message: "1 scenario(s) failed",
		}, func(io.Writer) error {
			rendered = true
			return nil
		}))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.False(t, rendered)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
		assert.Contains(t, buf.String(), "\n  \"status\"", "indented")
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, formatter.Result(nil, nil, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "Replay Summary")
			return err
		}))
		assert.Equal(t, "Replay Summary\n", buf.String())
	})
}

func TestGetExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(base))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "open", base)))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))

	wrapped := WrapExitError(ExitFailure, "replay", base)
	assert.Equal(t, "replay: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}
