package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/harness"
)

// ScenarioValidation is the validation outcome of one file.
type ScenarioValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Scenarios []ScenarioValidation `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dir|scenario.yaml>...",
		Short: "Validate scenarios without running them",
		Long: `Decode scenario files strictly and check their structure: unknown
fields, missing names, listener kinds, step ops and assertion types.
Nothing is executed.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid
  2 - Command error (path not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := harness.DiscoverScenarios(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	formatter.VerboseLog("Found %d scenario file(s)", len(files))

	result := ValidationResult{
		Valid:     true,
		Scenarios: make([]ScenarioValidation, 0, len(files)),
	}
	invalid := 0
	for _, file := range files {
		v := ScenarioValidation{Path: file, Valid: true}
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			result.Valid = false
			invalid++
		} else {
			v.Name = scenario.Name
		}
		result.Scenarios = append(result.Scenarios, v)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Valid {
			cliErr = &CLIError{
				Code:    ErrCodeInvalidScenario,
				Message: fmt.Sprintf("%d scenario(s) invalid", invalid),
			}
		}
		if err := formatter.Result(result, cliErr, nil); err != nil {
			return err
		}
	} else {
		for _, v := range result.Scenarios {
			if v.Valid {
				formatter.VerboseLog("✓ %s", v.Path)
				continue
			}
			_ = formatter.Error(ErrCodeInvalidScenario, v.Path, nil)
			fmt.Fprintf(formatter.Writer, "  %s\n", v.Error)
		}
		if result.Valid {
			_ = formatter.Success(fmt.Sprintf("✓ %d scenario(s) valid", len(files)))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) invalid", invalid))
	}
	return nil
}
