package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Parallel  int    // scenarios run at once; 0 uses the config
	GoldenDir string // golden trace directory; "" uses the config
	Update    bool   // regenerate golden files
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <dir|scenario.yaml>...",
		Short: "Run scenarios in parallel",
		Long: `Run every scenario found in the given files and directories.

Directories contribute their *.yaml and *.yml files. Scenarios run in
parallel, each on its own registry. With a golden directory, each trace is
also compared against <golden-dir>/<scenario name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  objwatch test ./scenarios
  objwatch test ./scenarios --parallel 8
  objwatch test ./scenarios --golden ./scenarios/golden --update
  objwatch test a.yaml b.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 0, "scenarios to run at once (default from config)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden trace directory (default from config)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.config()

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = cfg.Parallel
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = cfg.GoldenDir
	}
	if opts.Update && goldenDir == "" {
		return NewExitError(ExitCommandError, "--update needs a golden directory (--golden or golden_dir)")
	}

	files, err := harness.DiscoverScenarios(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	f := opts.formatter(cmd)
	if len(files) == 0 {
		return f.Result(&harness.SuiteResult{}, nil, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "No scenarios found.")
			return err
		})
	}
	f.VerboseLog("Running %d scenario(s), %d at a time", len(files), parallel)

	runOpts := opts.harnessOptions()
	golden := &goldenCheck{dir: goldenDir, update: opts.Update}
	if goldenDir != "" {
		runOpts = append(runOpts, harness.WithCheck(golden.check))
	}

	result, err := harness.RunSuite(ctx, files, parallel, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "test run aborted", err)
	}

	var cliErr *CLIError
	if !result.Pass() {
		cliErr = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := f.Result(result, cliErr, func(w io.Writer) error {
		writeTestText(w, result, golden.updatedCount())
		return nil
	}); err != nil {
		return err
	}

	if !result.Pass() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func writeTestText(w io.Writer, result *harness.SuiteResult, updated int) {
	for _, f := range result.Failures {
		name := f.Scenario
		if name == "" {
			name = filepath.Base(f.ScenarioPath)
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", name, f.ScenarioPath)
		if f.Error != "" {
			fmt.Fprintf(w, "  %s\n", f.Error)
		}
		for _, e := range f.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if updated > 0 {
		fmt.Fprintf(w, "Golden files updated: %d\n", updated)
	}
	if result.Pass() {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}

// goldenCheck compares each run with <dir>/<scenario>.golden, or rewrites
// the file when update is set. A missing golden file is not a failure.
type goldenCheck struct {
	dir    string
	update bool

	mu      sync.Mutex
	updated int
}

func (g *goldenCheck) check(scenario *harness.Scenario, result *harness.Result) []string {
	snapshot := harness.NewTraceSnapshot(scenario.Name, result)
	current, err := snapshot.MarshalCanonical()
	if err != nil {
		return []string{fmt.Sprintf("golden: failed to marshal trace: %v", err)}
	}

	path := filepath.Join(g.dir, scenario.Name+".golden")
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			return []string{fmt.Sprintf("golden: failed to create directory: %v", err)}
		}
		if err := os.WriteFile(path, current, 0644); err != nil {
			return []string{fmt.Sprintf("golden: failed to write %s: %v", path, err)}
		}
		g.mu.Lock()
		g.updated++
		g.mu.Unlock()
		return nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("golden: failed to read %s: %v", path, err)}
	}
	if !bytes.Equal(want, current) {
		return []string{fmt.Sprintf("golden: trace does not match %s (run with --update to regenerate)", path)}
	}
	return nil
}

func (g *goldenCheck) updatedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updated
}
