package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/harness"
	"github.com/roach88/objwatch/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Quiet bool // omit the trace in text output
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario string `json:"scenario"`
	*harness.Result
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario and print every listener delivery, the final state and
its hash.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (scenario not found, invalid scenario, etc.)

Examples:
  objwatch run testdata/scenarios/array_ops.yaml
  objwatch run cart.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "omit the trace from text output")

	return cmd
}

func runScenario(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f := opts.formatter(cmd)
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	f.VerboseLog("Loaded scenario %s from %s", scenario.Name, path)

	result, err := harness.RunContext(ctx, scenario, opts.harnessOptions()...)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s could not run", scenario.Name), err)
	}

	var cliErr *CLIError
	if !result.Pass {
		cliErr = &CLIError{
			Code:    ErrCodeScenarioFailed,
			Message: fmt.Sprintf("scenario %s failed", scenario.Name),
		}
	}
	out := RunOutput{Scenario: scenario.Name, Result: result}
	if err := f.Result(out, cliErr, func(w io.Writer) error {
		return writeRunText(w, scenario, result, opts.Quiet)
	}); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRunText(w io.Writer, scenario *harness.Scenario, result *harness.Result, quiet bool) error {
	fmt.Fprintf(w, "Scenario: %s\n", scenario.Name)
	if !quiet {
		fmt.Fprintf(w, "Trace (%d deliveries):\n", len(result.Trace))
		for _, e := range result.Trace {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	state, err := ir.FromAny(result.State)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	canonical, err := ir.MarshalCanonical(state)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	fmt.Fprintf(w, "State: %s\n", canonical)
	fmt.Fprintf(w, "State hash: %s\n", result.StateHash)

	if m := result.Mirror; m != nil {
		status := "in sync"
		if !m.InSync {
			status = "OUT OF SYNC"
		}
		fmt.Fprintf(w, "Mirror: %s (%d applied, %d out of sync)\n", status, m.Applied, m.OutOfSync)
	}
	if result.Writes > 0 || result.Rejected > 0 {
		fmt.Fprintf(w, "Bindings: %d writes, %d rejected\n", result.Writes, result.Rejected)
	}

	if result.Pass {
		fmt.Fprintln(w, "✓ passed")
		return nil
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
