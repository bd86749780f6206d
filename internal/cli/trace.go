package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovelang/grove/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// NewTraceCommand creates the trace command with its subcommands.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newTraceListCommand(opts))
	cmd.AddCommand(newTraceShowCommand(opts))

	return cmd
}

func newTraceListCommand(opts *TraceOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openTraceStore(opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list runs", err)
			}

			formatter := newFormatter(opts.RootOptions, cmd)
			if opts.Format == "json" {
				return formatter.Success(runs)
			}
			for _, run := range runs {
				fmt.Fprintf(formatter.Writer, "%s  %s  steps=%d violations=%d\n",
					run.Token, run.CreatedAt, run.Steps, run.Violations)
			}
			return nil
		},
	}
}

func newTraceShowCommand(opts *TraceOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-token>",
		Short:         "Show the steps of one run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openTraceStore(opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			steps, err := st.ReadRun(commandContext(cmd), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read run", err)
			}
			if len(steps) == 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("no steps recorded for run %q", args[0]))
			}

			formatter := newFormatter(opts.RootOptions, cmd)
			if opts.Format == "json" {
				return formatter.Success(steps)
			}
			for _, step := range steps {
				fmt.Fprintf(formatter.Writer, "%4d  %-6s perm=%s", step.Seq, step.Op, step.Perm)
				if step.Result != 0 {
					fmt.Fprintf(formatter.Writer, " -> %s", step.Result)
				}
				if step.Violation != "" {
					fmt.Fprintf(formatter.Writer, "  [%s] %s", step.Violation, step.Message)
				}
				fmt.Fprintf(formatter.Writer, "  (%s)\n", step.Span)
				if opts.Verbose {
					fmt.Fprintf(formatter.Writer, "      before %s\n      after  %s\n", step.BeforeHash, step.AfterHash)
				}
			}
			return nil
		},
	}
}

func openTraceStore(path string) (*trace.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("trace database not found: %s", path))
	}
	st, err := trace.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	return st, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
