package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a straight-line program of
// permission-relevant steps plus expectations on its output, runtime
// errors, static diagnostics, and final permission state.
type Scenario struct {
	// Name uniquely identifies this scenario. Synthetic source spans use
	// "<name>.gv" as their file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Signatures is an optional path to a CUE signature file, relative
	// to the scenario file. Required when the scenario uses call steps.
	Signatures string `yaml:"signatures,omitempty"`

	// Steps is the program, executed in order. Execution stops at the
	// first runtime violation; the remaining steps are skipped.
	Steps []Step `yaml:"steps"`

	// Expect validates the run's observable outcome.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions validate final permission state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunToken is an optional fixed run token for deterministic golden
	// output. Defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`
}

// Step is one program step. Exactly one of the fields is set.
type Step struct {
	New    *NewStep   `yaml:"new,omitempty"`
	Bind   *BindStep  `yaml:"bind,omitempty"`
	Print  string     `yaml:"print,omitempty"`
	Write  *WriteStep `yaml:"write,omitempty"`
	Drop   string     `yaml:"drop,omitempty"`
	Call   *CallStep  `yaml:"call,omitempty"`
	Atomic []Step     `yaml:"atomic,omitempty"`
}

// NewStep allocates an object and binds it to a variable with a fresh
// owned unique permission.
type NewStep struct {
	Var    string     `yaml:"var"`
	Class  string     `yaml:"class"`
	Fields []FieldVal `yaml:"fields,omitempty"`
}

// FieldVal declares one field at allocation: a scalar value or a
// reference to an already-bound variable.
type FieldVal struct {
	Name   string `yaml:"name"`
	Atomic bool   `yaml:"atomic,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
}

// BindStep derives a new binding from an existing place through a
// permission transition. From may be a variable or a dotted field path
// like "p.item"; Via is "give", "lease", or "share".
type BindStep struct {
	Var  string `yaml:"var"`
	From string `yaml:"from"`
	Via  string `yaml:"via"`
}

// WriteStep stores into a field through the target's permission.
type WriteStep struct {
	Target string `yaml:"target"`
	Field  string `yaml:"field"`
	Value  any    `yaml:"value,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
}

// CallStep statically checks a call site against a declared signature.
// Args maps parameter names to bound variables. Result, when set, binds
// a fresh owned object standing in for the callee's return value and
// checks it against the signature's return pattern.
type CallStep struct {
	Func   string            `yaml:"func"`
	Args   map[string]string `yaml:"args"`
	Result string            `yaml:"result,omitempty"`
}

// Expect validates a run's outcome.
type Expect struct {
	// Output is a list of regular expressions matched one-to-one, in
	// order, against the printed lines.
	Output []string `yaml:"output,omitempty"`

	// Error is the exact runtime violation message the run must end
	// with. Empty means the run must complete without violation.
	Error string `yaml:"error,omitempty"`

	// Diagnostics is a list of regular expressions matched one-to-one,
	// in order, against static diagnostics raised by call steps.
	Diagnostics []string `yaml:"diagnostics,omitempty"`
}

// Assertion validates final permission state.
type Assertion struct {
	// Type is "perm_status" or "well_formed".
	Type string `yaml:"type"`

	// Var names the binding to inspect (perm_status).
	Var string `yaml:"var,omitempty"`

	// Status is the expected status, "active" or "cancelled"
	// (perm_status).
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertPermStatus = "perm_status"
	AssertWellFormed = "well_formed"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo like "expect:" vs "expected:" fails loudly.
// A Signatures path resolves relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Signatures != "" && !filepath.IsAbs(scenario.Signatures) {
		scenario.Signatures = filepath.Join(filepath.Dir(path), scenario.Signatures)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Signatures != "" {
		if _, err := os.Stat(s.Signatures); os.IsNotExist(err) {
			return fmt.Errorf("signature file not found: %s", s.Signatures)
		}
	}
	return validateSteps(s.Steps, s.Signatures != "")
}

func validateSteps(steps []Step, haveSigs bool) error {
	for i, step := range steps {
		n := 0
		if step.New != nil {
			n++
			if step.New.Var == "" || step.New.Class == "" {
				return fmt.Errorf("steps[%d]: new requires var and class", i)
			}
			for _, fv := range step.New.Fields {
				if fv.Name == "" {
					return fmt.Errorf("steps[%d]: field name is required", i)
				}
				if fv.Value != nil && fv.Ref != "" {
					return fmt.Errorf("steps[%d]: field %q sets both value and ref", i, fv.Name)
				}
			}
		}
		if step.Bind != nil {
			n++
			switch step.Bind.Via {
			case "give", "lease", "share":
			default:
				return fmt.Errorf("steps[%d]: via must be give, lease, or share", i)
			}
			if step.Bind.Var == "" || step.Bind.From == "" {
				return fmt.Errorf("steps[%d]: bind requires var and from", i)
			}
		}
		if step.Print != "" {
			n++
		}
		if step.Write != nil {
			n++
			if step.Write.Target == "" || step.Write.Field == "" {
				return fmt.Errorf("steps[%d]: write requires target and field", i)
			}
			if step.Write.Value != nil && step.Write.Ref != "" {
				return fmt.Errorf("steps[%d]: write sets both value and ref", i)
			}
		}
		if step.Drop != "" {
			n++
		}
		if step.Call != nil {
			n++
			if !haveSigs {
				return fmt.Errorf("steps[%d]: call requires a signatures file", i)
			}
			if step.Call.Func == "" {
				return fmt.Errorf("steps[%d]: call requires func", i)
			}
		}
		if step.Atomic != nil {
			n++
			if err := validateSteps(step.Atomic, haveSigs); err != nil {
				return err
			}
		}
		if n != 1 {
			return fmt.Errorf("steps[%d]: exactly one of new, bind, print, write, drop, call, atomic is required", i)
		}
	}
	return nil
}
