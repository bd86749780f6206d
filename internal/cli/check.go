package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovelang/grove/internal/harness"
	"github.com/grovelang/grove/internal/match"
	"github.com/grovelang/grove/internal/sigspec"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// SignatureReport is the per-signature entry in check output.
type SignatureReport struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
	Return string   `json:"return,omitempty"`
}

// DiagnosticReport is one call-site finding in check output.
type DiagnosticReport struct {
	Code    string   `json:"code"`
	Span    string   `json:"span"`
	Message string   `json:"message"`
	Related []string `json:"related,omitempty"`
}

// CheckReport is the full output of a check run over a scenario.
type CheckReport struct {
	Signatures  []SignatureReport  `json:"signatures"`
	Diagnostics []DiagnosticReport `json:"diagnostics,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <signatures.cue> [scenario.yaml]",
		Short: "Compile a CUE signature spec and check call sites",
		Long: `Compile a CUE signature file and report every declared signature or
every compile error. Errors accumulate: one malformed pattern does not
hide the rest of the file.

With a scenario, additionally check every call step against its
signature and report the unsatisfied where clauses, each with the spans
where the offending permissions were established.

Examples:
  grove check signatures.cue
  grove check signatures.cue scenario.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := ""
			if len(args) == 2 {
				scenario = args[1]
			}
			return checkSignatures(opts, args[0], scenario, cmd)
		},
	}

	return cmd
}

func checkSignatures(opts *CheckOptions, sigPath, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sigs, errs := sigspec.CompileFile(sigPath)
	if len(errs) > 0 {
		details := make([]string, len(errs))
		for i, err := range errs {
			details[i] = err.Error()
		}
		if err := formatter.Error(ErrCodeLoad, fmt.Sprintf("%d error(s) in %s", len(errs), sigPath), details); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d error(s) in %s", len(errs), sigPath))
	}

	report := CheckReport{Signatures: make([]SignatureReport, len(sigs))}
	for i, sig := range sigs {
		entry := SignatureReport{Name: sig.Name}
		for _, param := range sig.Params {
			entry.Params = append(entry.Params, fmt.Sprintf("%s: %s", param.Name, param.Pattern))
		}
		if sig.Return != nil {
			entry.Return = sig.Return.String()
		}
		report.Signatures[i] = entry
	}

	if scenarioPath != "" {
		diags, err := checkScenarioCalls(sigPath, scenarioPath)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to check %s", scenarioPath), err)
		}
		for _, d := range diags {
			entry := DiagnosticReport{
				Code:    d.Code,
				Span:    d.Span.String(),
				Message: d.Message,
			}
			for _, rel := range d.Related {
				entry.Related = append(entry.Related, fmt.Sprintf("%s: %s", rel.Span, rel.Message))
			}
			report.Diagnostics = append(report.Diagnostics, entry)
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		printCheckReport(formatter, report)
	}

	if n := len(report.Diagnostics); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unsatisfied where clause(s) in %s", n, scenarioPath))
	}
	return nil
}

// checkScenarioCalls runs the scenario's call steps against the given
// signature file, accumulating where-clause diagnostics. The explicit
// signature file wins over the one the scenario names.
func checkScenarioCalls(sigPath, scenarioPath string) ([]match.Diagnostic, error) {
	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	scenario.Signatures = sigPath

	result, err := harness.Run(scenario)
	if err != nil {
		return nil, err
	}
	return result.Diagnostics, nil
}

func printCheckReport(formatter *OutputFormatter, report CheckReport) {
	for _, entry := range report.Signatures {
		fmt.Fprintf(formatter.Writer, "%s\n", entry.Name)
		for _, p := range entry.Params {
			fmt.Fprintf(formatter.Writer, "  param %s\n", p)
		}
		if entry.Return != "" {
			fmt.Fprintf(formatter.Writer, "  return %s\n", entry.Return)
		}
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(formatter.Writer, "[%s] %s: %s\n", d.Code, d.Span, d.Message)
		for _, rel := range d.Related {
			fmt.Fprintf(formatter.Writer, "  %s\n", rel)
		}
	}
}
