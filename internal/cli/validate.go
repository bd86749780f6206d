package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovelang/grove/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the per-file result in validate output.
type ValidationReport struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Parse scenario files, reject unknown fields and malformed steps, and
resolve their signature specs. Nothing is executed.

Example:
  grove validate scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateScenarios(opts, args, cmd)
		},
	}

	return cmd
}

func validateScenarios(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var reports []ValidationReport
	invalid := 0
	for _, path := range paths {
		report := ValidationReport{Path: path, Valid: true}
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			report.Valid = false
			report.Error = err.Error()
			invalid++
		} else {
			report.Name = scenario.Name
		}
		reports = append(reports, report)
	}

	if opts.Format == "json" {
		if err := formatter.Success(reports); err != nil {
			return err
		}
	} else {
		for _, report := range reports {
			if report.Valid {
				fmt.Fprintf(formatter.Writer, "OK    %s (%s)\n", report.Path, report.Name)
			} else {
				fmt.Fprintf(formatter.Writer, "ERROR %s: %s\n", report.Path, report.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d files invalid", invalid, len(reports)))
	}
	return nil
}
