package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/harness"
	"github.com/grovelang/grove/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunToken string
}

// ScenarioReport is the per-scenario result in run output.
type ScenarioReport struct {
	Name        string   `json:"name"`
	Passed      bool     `json:"passed"`
	Output      []string `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Failures    []string `json:"failures,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run conformance scenarios",
		Long: `Run one or more scenario files against a fresh permission forest each
and check their expectations.

With --db, every engine step is recorded into a SQLite trace database
for later inspection with "grove trace".

Example:
  grove run scenarios/lease_share_revoke.yaml
  grove run --db ./trace.db scenarios/*.yaml --verbose`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (optional)")
	cmd.Flags().StringVar(&opts.RunToken, "run-token", "", "fixed run token (defaults to per-scenario tokens)")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	runOpts := []harness.Option{harness.WithTokenGenerator(engine.UUIDv7Generator{})}
	if opts.Database != "" {
		slog.Info("opening trace database", "path", opts.Database)
		st, err := trace.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing trace database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithEngineOptions(engine.WithRecorder(trace.NewRecorder(ctx, st))))
	}

	var reports []ScenarioReport
	failed := 0
	for _, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}
		if opts.RunToken != "" {
			scenario.RunToken = opts.RunToken
		}

		slog.Info("running scenario", "name", scenario.Name)
		result, err := harness.Run(scenario, runOpts...)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s faulted", scenario.Name), err)
		}

		report := buildReport(scenario, result)
		if !report.Passed {
			failed++
		}
		reports = append(reports, report)
	}

	if opts.Format == "json" {
		if err := formatter.Success(reports); err != nil {
			return err
		}
	} else {
		printReports(formatter, reports)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(reports)))
	}
	return nil
}

func buildReport(s *harness.Scenario, r *harness.Result) ScenarioReport {
	report := ScenarioReport{
		Name:   s.Name,
		Output: r.Output,
	}
	if r.Err != nil {
		report.Error = engine.ViolationMessage(r.Err)
	}
	for _, d := range r.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, d.Message)
	}
	for _, err := range harness.CheckExpectations(s, r) {
		report.Failures = append(report.Failures, err.Error())
	}
	report.Passed = len(report.Failures) == 0
	return report
}

func printReports(f *OutputFormatter, reports []ScenarioReport) {
	for _, report := range reports {
		status := "PASS"
		if !report.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(f.Writer, "%s  %s\n", status, report.Name)
		for _, line := range report.Output {
			f.VerboseLog("  output: %s", line)
		}
		if report.Error != "" {
			f.VerboseLog("  runtime error: %s", report.Error)
		}
		for _, d := range report.Diagnostics {
			f.VerboseLog("  diagnostic: %s", d)
		}
		for _, failure := range report.Failures {
			fmt.Fprintf(f.Writer, "  %s\n", failure)
		}
	}
}

// configureLogging sets the default slog handler from the verbose flag.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
