package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/objwatch/internal/config"
	"github.com/roach88/objwatch/internal/harness"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	MaxDepth   int

	// Config is resolved before any subcommand runs. Commands built on
	// their own (tests) fall back to the defaults.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the objwatch CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "objwatch",
		Short: "objwatch - recursive object watching",
		Long: `Run, record and replay objwatch scenarios.

A scenario builds an object graph, watches it, mutates it and checks the
events every listener saw. Recorded event streams can be replayed onto a
fresh graph to verify that replication reproduces the same state.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to objwatch.toml")
	cmd.PersistentFlags().IntVar(&opts.MaxDepth, "max-depth", 0, "bound on deep operations (0 = config or engine default)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// resolve applies the config override chain and installs the default
// logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	flags := config.Overrides{ConfigPath: o.ConfigPath}
	if changed(cmd, "format") {
		if !isValidFormat(o.Format) {
			return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
		}
		flags.Format = &o.Format
	}
	if o.Verbose {
		level := "debug"
		flags.LogLevel = &level
	}
	if changed(cmd, "max-depth") {
		flags.MaxDepth = &o.MaxDepth
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), flags)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg
	o.Format = cfg.Format

	slog.SetDefault(newLogger(os.Stderr, cfg.LogLevel))
	return nil
}

// config returns the resolved config, or the defaults.
func (o *RootOptions) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.DefaultConfig()
}

// formatter builds the output formatter for one command invocation.
// Diagnostics go to stderr so JSON on stdout stays parseable.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// harnessOptions turns the resolved config into harness run options.
func (o *RootOptions) harnessOptions() []harness.Option {
	cfg := o.config()
	opts := []harness.Option{}
	if o.Verbose {
		opts = append(opts, harness.WithLogger(slog.Default()))
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, harness.WithMaxDepth(cfg.MaxDepth))
	}
	return opts
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return config.IsValidFormat(format)
}
