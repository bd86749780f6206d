package harness

import (
	"fmt"
	"regexp"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/perm"
)

// CheckExpectations validates a result against the scenario's expect
// clause and assertions. All failures are collected and returned
// together.
func CheckExpectations(s *Scenario, r *Result) []error {
	var errs []error

	if s.Expect != nil {
		errs = append(errs, checkOutput(s.Expect.Output, r.Output)...)
		errs = append(errs, checkError(s.Expect.Error, r.Err)...)
		errs = append(errs, checkDiagnostics(s.Expect.Diagnostics, r)...)
	}

	for i, a := range s.Assertions {
		if err := checkAssertion(a, r); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}

	return errs
}

// checkOutput matches expected patterns one-to-one, in order, against
// printed lines.
func checkOutput(patterns []string, output []string) []error {
	var errs []error
	if len(patterns) != len(output) {
		errs = append(errs, fmt.Errorf("expected %d output lines, got %d: %v", len(patterns), len(output), output))
		return errs
	}
	for i, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, fmt.Errorf("output[%d]: bad pattern %q: %w", i, pat, err))
			continue
		}
		if !re.MatchString(output[i]) {
			errs = append(errs, fmt.Errorf("output[%d] %q does not match %q", i, output[i], pat))
		}
	}
	return errs
}

// checkError compares the runtime violation message exactly. Runtime
// messages are part of the engine's contract, so no pattern matching.
func checkError(want string, got error) []error {
	switch {
	case want == "" && got != nil:
		return []error{fmt.Errorf("unexpected runtime violation: %s", engine.ViolationMessage(got))}
	case want != "" && got == nil:
		return []error{fmt.Errorf("expected runtime violation %q, run completed", want)}
	case want != "" && engine.ViolationMessage(got) != want:
		return []error{fmt.Errorf("expected runtime violation %q, got %q", want, engine.ViolationMessage(got))}
	}
	return nil
}

func checkDiagnostics(patterns []string, r *Result) []error {
	var errs []error
	if len(patterns) != len(r.Diagnostics) {
		msgs := make([]string, len(r.Diagnostics))
		for i, d := range r.Diagnostics {
			msgs[i] = d.Message
		}
		return []error{fmt.Errorf("expected %d diagnostics, got %d: %v", len(patterns), len(r.Diagnostics), msgs)}
	}
	for i, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, fmt.Errorf("diagnostics[%d]: bad pattern %q: %w", i, pat, err))
			continue
		}
		if !re.MatchString(r.Diagnostics[i].Message) {
			errs = append(errs, fmt.Errorf("diagnostics[%d] %q does not match %q", i, r.Diagnostics[i].Message, pat))
		}
	}
	return errs
}

func checkAssertion(a Assertion, r *Result) error {
	switch a.Type {
	case AssertPermStatus:
		place, ok := r.Env.Lookup(a.Var)
		if !ok {
			return fmt.Errorf("variable %q is not bound", a.Var)
		}
		node, ok := r.Forest.Node(place.Perm)
		if !ok {
			return fmt.Errorf("variable %q has no permission node", a.Var)
		}
		var want perm.Status
		switch a.Status {
		case "active":
			want = perm.Active
		case "cancelled":
			want = perm.Cancelled
		default:
			return fmt.Errorf("unknown status %q", a.Status)
		}
		if node.Status != want {
			return fmt.Errorf("%s: expected %s, got %s", a.Var, want, node.Status)
		}
		return nil

	case AssertWellFormed:
		return r.Forest.WellFormed()

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}
