package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/harness"
	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/journal"
	"github.com/roach88/objwatch/internal/watch"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database  string // "" uses the config
	Stream    string // "" uses the scenario name
	Overwrite bool
}

// RecordOutput is the result of recording one scenario.
type RecordOutput struct {
	Stream    string `json:"stream"`
	Scenario  string `json:"scenario"`
	Events    int64  `json:"events"`
	StateHash string `json:"state_hash"`
	Pass      bool   `json:"pass"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <scenario.yaml>",
		Short: "Run a scenario and journal its events",
		Long: `Run a scenario and append every recursive event of its root to a journal
stream, between an initial and a final snapshot of the root. The stream can
later be checked with replay.

Exit codes:
  0 - Recorded, scenario passed
  1 - Recorded, scenario failed
  2 - Command error (journal unavailable, stream exists, etc.)

Examples:
  objwatch record cart.yaml --db ./objwatch.db
  objwatch record cart.yaml --db ./objwatch.db --stream cart-1 --overwrite`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "stream name (default: scenario name)")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing stream")

	return cmd
}

func runRecord(ctx context.Context, opts *RecordOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.config().JournalPath
	}
	stream := opts.Stream
	if stream == "" {
		stream = scenario.Name
	}

	f := opts.formatter(cmd)
	f.VerboseLog("Recording scenario %s to stream %q in %s", scenario.Name, stream, dbPath)
	st, err := journal.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	exists, err := st.StreamExists(ctx, stream)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if exists {
		if !opts.Overwrite {
			return NewExitError(ExitCommandError, fmt.Sprintf("stream %q already exists (use --overwrite)", stream))
		}
		if err := st.DeleteStream(ctx, stream); err != nil {
			return WrapExitError(ExitCommandError, "failed to delete stream", err)
		}
	}

	capture := journal.NewCapture(st, stream)
	var final journal.Snapshot
	runOpts := append(opts.harnessOptions(),
		harness.WithRootHook(func(ctx context.Context, reg *watch.Registry, root *ir.Object) error {
			return capture.Start(ctx, reg, root)
		}),
		harness.WithAfterHook(func(ctx context.Context, _ *watch.Registry, _ *ir.Object) error {
			snap, stopErr := capture.Stop(ctx)
			final = snap
			return stopErr
		}),
	)

	result, err := harness.RunContext(ctx, scenario, runOpts...)
	if err != nil {
		// A partial stream has no final snapshot and would never match.
		_ = st.DeleteStream(context.WithoutCancel(ctx), stream)
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s could not run", scenario.Name), err)
	}

	out := RecordOutput{
		Stream:    stream,
		Scenario:  scenario.Name,
		Events:    final.EventSeq,
		StateHash: final.StateHash,
		Pass:      result.Pass,
	}

	var cliErr *CLIError
	if !result.Pass {
		cliErr = &CLIError{
			Code:    ErrCodeScenarioFailed,
			Message: fmt.Sprintf("scenario %s failed", scenario.Name),
			Details: result.Errors,
		}
	}
	if err := f.Result(out, cliErr, func(w io.Writer) error {
		fmt.Fprintf(w, "Recorded %d event(s) to stream %q in %s\n", out.Events, stream, dbPath)
		fmt.Fprintf(w, "Final state hash: %s\n", out.StateHash)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return nil
	}); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
