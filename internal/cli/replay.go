package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/journal"
	"github.com/roach88/objwatch/internal/mirror"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string // "" uses the config
	Stream   string // optional - specific stream only
	Initial  string // optional JSON file replacing the recorded initial snapshot
}

// ReplayStreamResult holds the replay result for a single stream.
type ReplayStreamResult struct {
	Stream       string `json:"stream"`
	Events       int    `json:"events"`
	Applied      int    `json:"applied"`
	OutOfSync    int    `json:"out_of_sync"`
	ExpectedHash string `json:"expected_hash,omitempty"`
	ActualHash   string `json:"actual_hash"`
	Match        bool   `json:"match"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Streams      []ReplayStreamResult `json:"streams"`
	TotalStreams int                  `json:"total_streams"`
	AllMatch     bool                 `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journal streams through a mirror",
		Long: `Replay recorded event streams onto a fresh copy of their initial state
through a mirror, and compare the resulting state hash with the hash
recorded when the stream was closed.

Exit codes:
  0 - Every replayed stream reproduced its final state
  1 - A stream diverged, or has no final snapshot
  2 - Command error (journal not found, unknown stream, etc.)

Examples:
  objwatch replay --db ./objwatch.db
  objwatch replay --db ./objwatch.db --stream cart-1
  objwatch replay --db ./objwatch.db --stream cart-1 --initial start.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "replay specific stream only")
	cmd.Flags().StringVar(&opts.Initial, "initial", "", "JSON file to replay onto instead of the initial snapshot (needs --stream)")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Initial != "" && opts.Stream == "" {
		return NewExitError(ExitCommandError, "--initial needs --stream")
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.config().JournalPath
	}
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", dbPath))
	}

	st, err := journal.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	var streams []string
	if opts.Stream != "" {
		exists, err := st.StreamExists(ctx, opts.Stream)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		if !exists {
			return NewExitError(ExitCommandError, fmt.Sprintf("stream not found: %s", opts.Stream))
		}
		streams = []string{opts.Stream}
	} else {
		streams, err = st.Streams(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list streams", err)
		}
	}

	f := opts.formatter(cmd)
	if len(streams) == 0 {
		return f.Result(ReplayResult{Streams: []ReplayStreamResult{}, AllMatch: true}, nil, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "No streams found in journal.")
			return err
		})
	}
	f.VerboseLog("Replaying %d stream(s) from %s", len(streams), dbPath)

	var initial ir.Value
	if opts.Initial != "" {
		initial, err = readInitial(opts.Initial)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read initial state", err)
		}
	}

	mirrorOpts := []mirror.Option{}
	if opts.Verbose {
		mirrorOpts = append(mirrorOpts, mirror.WithLogger(slog.Default()))
	}

	result := ReplayResult{
		Streams:      make([]ReplayStreamResult, 0, len(streams)),
		TotalStreams: len(streams),
		AllMatch:     true,
	}
	for _, stream := range streams {
		var rr journal.ReplayResult
		if initial != nil {
			rr, err = st.ReplayOnto(ctx, stream, initial, mirrorOpts...)
		} else {
			rr, err = st.Replay(ctx, stream, mirrorOpts...)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay stream %s", stream), err)
		}

		sr := ReplayStreamResult{
			Stream:       stream,
			Events:       rr.Events,
			Applied:      rr.Applied,
			OutOfSync:    rr.OutOfSync,
			ExpectedHash: rr.ExpectedHash,
			ActualHash:   rr.ActualHash,
			Match:        rr.Match(),
		}
		result.Streams = append(result.Streams, sr)
		if !sr.Match {
			result.AllMatch = false
		}
	}

	var cliErr *CLIError
	if !result.AllMatch {
		cliErr = &CLIError{Code: ErrCodeReplayMismatch, Message: "replay did not reproduce the recorded state"}
	}
	if err := f.Result(result, cliErr, func(w io.Writer) error {
		writeReplayText(w, result, opts.Verbose)
		return nil
	}); err != nil {
		return err
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "replay did not reproduce the recorded state")
	}
	return nil
}

// readInitial decodes a JSON file into an object or array.
func readInitial(path string) (ir.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !ir.IsAggregate(v) {
		return nil, fmt.Errorf("%s: %w", path, journal.ErrNotAggregate)
	}
	return v, nil
}

func writeReplayText(w io.Writer, result ReplayResult, verbose bool) {
	fmt.Fprintf(w, "Replay Summary: %d stream(s)\n", result.TotalStreams)
	fmt.Fprintln(w)

	for _, s := range result.Streams {
		status := "✓"
		if !s.Match {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Stream: %s\n", status, s.Stream)
		fmt.Fprintf(w, "  Events: %d applied, %d out of sync (%d total)\n", s.Applied, s.OutOfSync, s.Events)
		if verbose || !s.Match {
			expected := s.ExpectedHash
			if expected == "" {
				expected = "(no final snapshot)"
			}
			fmt.Fprintf(w, "  Expected: %s\n", expected)
			fmt.Fprintf(w, "  Actual:   %s\n", s.ActualHash)
		}
		fmt.Fprintln(w)
	}

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All streams reproduced their final state")
		return
	}
	fmt.Fprintln(w, "✗ Replay verification failed")
}
