package sigspec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/grovelang/grove/internal/match"
)

// CompileError is a signature-spec compilation error with source
// position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileFile loads one CUE file of function signatures.
func CompileFile(path string) ([]match.Signature, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("reading signature spec: %w", err)}
	}
	return compile(cuecontext.New().CompileBytes(data, cue.Filename(path)))
}

// CompileString compiles CUE source text of function signatures.
func CompileString(src string) ([]match.Signature, []error) {
	return compile(cuecontext.New().CompileString(src))
}

// compile walks the "signatures" struct:
//
//	signatures: {
//		store: {
//			params: {src: "given{src}", dst: "leased{self}"}
//			return: "shared{self}"
//		}
//	}
//
// Errors accumulate across signatures so one bad pattern does not hide
// the rest.
func compile(v cue.Value) ([]match.Signature, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	sigsVal := v.LookupPath(cue.ParsePath("signatures"))
	if !sigsVal.Exists() {
		return nil, []error{&CompileError{
			Field:   "signatures",
			Message: "signatures struct is required",
			Pos:     v.Pos(),
		}}
	}

	iter, err := sigsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var sigs []match.Signature
	var errs []error
	for iter.Next() {
		sig, sigErrs := compileSignature(iter.Label(), iter.Value())
		if len(sigErrs) > 0 {
			errs = append(errs, sigErrs...)
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs, errs
}

func compileSignature(name string, v cue.Value) (match.Signature, []error) {
	sig := match.Signature{Name: name}
	var errs []error

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		iter, err := paramsVal.Fields()
		if err != nil {
			return sig, []error{formatCUEError(err)}
		}
		for iter.Next() {
			paramName := iter.Label()
			pat, patErr := compilePattern(fmt.Sprintf("%s.params.%s", name, paramName), iter.Value())
			if patErr != nil {
				errs = append(errs, patErr)
				continue
			}
			sig.Params = append(sig.Params, match.Param{Name: paramName, Pattern: pat})
		}
	}

	retVal := v.LookupPath(cue.ParsePath("return"))
	if retVal.Exists() {
		pat, patErr := compilePattern(fmt.Sprintf("%s.return", name), retVal)
		if patErr != nil {
			errs = append(errs, patErr)
		} else {
			sig.Return = &pat
		}
	}

	return sig, errs
}

func compilePattern(field string, v cue.Value) (match.Pattern, error) {
	s, err := v.String()
	if err != nil {
		return match.Pattern{}, formatCUEError(err)
	}
	pat, err := match.ParsePattern(s)
	if err != nil {
		return match.Pattern{}, &CompileError{
			Field:   field,
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return pat, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
