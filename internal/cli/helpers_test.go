package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: cart
description: "cart edits"
initial:
  cart:
    items:
      - name: a
listeners:
  - id: root
    kind: recursive
steps:
  - op: set
    at: cart
    prop: total
    value: 3
  - op: push
    at: cart.items
    values: [{name: b}]
  - op: delete
    at: cart.items.0
    prop: name
assertions:
  - type: final_state
    path: cart.total
    value: 3
  - type: trace_count
    listener: root
    count: 3
`

const failingScenario = `
name: wrong
description: "expects the wrong value"
steps:
  - op: set
    prop: a
    value: 1
assertions:
  - type: final_state
    path: a
    value: 2
`

func writeScenarioFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
