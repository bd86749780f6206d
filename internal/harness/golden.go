package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/perm"
)

// RunWithGolden executes a scenario and compares its outcome snapshot
// against testdata/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The snapshot is canonical JSON, so a golden mismatch is always a
// semantic difference and never a formatting one.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	data, err := perm.MarshalCanonical(snapshotMap(scenario, result))
	if err != nil {
		return err
	}

	g := goldie.New(t)
	g.Assert(t, scenario.Name, data)
	return nil
}

// snapshotMap renders the run outcome in the map form accepted by
// perm.MarshalCanonical.
func snapshotMap(s *Scenario, r *Result) map[string]any {
	output := make([]any, len(r.Output))
	for i, line := range r.Output {
		output[i] = line
	}

	diags := make([]any, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		diags[i] = map[string]any{
			"code":    d.Code,
			"message": d.Message,
		}
	}

	m := map[string]any{
		"scenario":    s.Name,
		"output":      output,
		"diagnostics": diags,
		"forest":      r.Forest.Snapshot().CanonicalMap(),
	}
	if r.Err != nil {
		m["error"] = engine.ViolationMessage(r.Err)
	}
	return m
}
