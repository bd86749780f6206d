package match

import (
	"fmt"

	"github.com/grovelang/grove/internal/forest"
	"github.com/grovelang/grove/internal/perm"
)

// Static-check diagnostic codes (E200-E299).
const (
	// ErrWhereClauseUnsatisfied: a pattern rejected the permission
	// supplied or produced at a call boundary.
	ErrWhereClauseUnsatisfied = "E200"
	// ErrMissingArgument: a call site supplies no permission for a
	// declared parameter.
	ErrMissingArgument = "E201"
	// ErrUnresolvedPath: a pattern path has no call-site resolution.
	ErrUnresolvedPath = "E202"
)

// Related is a secondary span attached to a diagnostic, e.g. "lease
// established here" alongside the primary "violation here" span.
type Related struct {
	Message string    `json:"message"`
	Span    perm.Span `json:"span"`
}

// Diagnostic is one static-check failure. The checker accumulates
// diagnostics across a compilation unit and reports them together; a
// diagnostic never aborts the check.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    perm.Span `json:"span"`
	Related []Related `json:"related,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if !d.Span.IsZero() {
		return fmt.Sprintf("[%s] %s: %s", d.Code, d.Span, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// Signature is a declared function signature: permission patterns on
// parameters and, optionally, on the return value.
type Signature struct {
	Name   string
	Params []Param
	Return *Pattern
}

// Param is one declared parameter with its pattern.
type Param struct {
	Name    string
	Pattern Pattern
}

// CallSite is one concrete call to validate: the permissions bound to
// each parameter, the call-site resolution of every pattern path, and
// the permission the callee actually produced (if the return is
// checked).
type CallSite struct {
	Func string
	Args map[string]perm.ID
	// Resolutions maps each pattern path to the concrete permissions it
	// names at this site. One path may resolve to several permissions
	// when a permission variable merges multiple arguments.
	Resolutions map[string][]perm.ID
	Return      perm.ID // perm.None when the return is not validated
	Span        perm.Span
}

// CheckCall validates one call site against a signature, returning every
// diagnostic found. An empty slice means the site is well-typed.
func CheckCall(f *forest.Forest, sig Signature, call CallSite) []Diagnostic {
	var diags []Diagnostic

	for _, param := range sig.Params {
		target, ok := call.Args[param.Name]
		if !ok {
			diags = append(diags, Diagnostic{
				Code:    ErrMissingArgument,
				Message: fmt.Sprintf("call to `%s` supplies no permission for parameter `%s`", sig.Name, param.Name),
				Span:    call.Span,
			})
			continue
		}
		diags = append(diags, checkPattern(f, sig, call, param.Pattern, target, fmt.Sprintf("argument `%s`", param.Name))...)
	}

	if sig.Return != nil && call.Return != perm.None {
		diags = append(diags, checkPattern(f, sig, call, *sig.Return, call.Return, "return value")...)
	}

	return diags
}

// checkPattern resolves the pattern's paths at the call site and runs
// the family predicate against the target permission.
func checkPattern(f *forest.Forest, sig Signature, call CallSite, pat Pattern, target perm.ID, subject string) []Diagnostic {
	var diags []Diagnostic

	var resolved []perm.ID
	for _, path := range pat.Paths {
		perms, ok := call.Resolutions[path]
		if !ok {
			diags = append(diags, Diagnostic{
				Code:    ErrUnresolvedPath,
				Message: fmt.Sprintf("path `%s` in pattern `%s` of `%s` has no permission at this call site", path, pat, sig.Name),
				Span:    call.Span,
			})
			continue
		}
		resolved = append(resolved, perms...)
	}

	if pat.Matches(f, target, resolved) {
		return diags
	}

	d := Diagnostic{
		Code:    ErrWhereClauseUnsatisfied,
		Message: fmt.Sprintf("where clause `%s` not satisfied for %s of `%s`", pat, subject, sig.Name),
		Span:    call.Span,
	}
	if tn, ok := f.Node(target); ok && !tn.Grant.IsZero() {
		d.Related = append(d.Related, Related{
			Message: "permission established here",
			Span:    tn.Grant,
		})
	}
	for _, p := range resolved {
		if pn, ok := f.Node(p); ok && pn.Leased() && !pn.Grant.IsZero() {
			d.Related = append(d.Related, Related{
				Message: "lease established here",
				Span:    pn.Grant,
			})
		}
	}
	return append(diags, d)
}
