package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSignatureFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigs.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckCommand_ValidSpec(t *testing.T) {
	path := writeSignatureFile(t, `
signatures: {
	store: {
		params: {src: "given{src}"}
		return: "shared{self}"
	}
}
`)

	out, _, err := executeCommand(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "store")
	assert.Contains(t, out, "param src: given{src}")
	assert.Contains(t, out, "return shared{self}")
}

func TestCheckCommand_ReportsAllErrors(t *testing.T) {
	path := writeSignatureFile(t, `
signatures: {
	bad: {params: {x: "owned{x}"}}
	worse: {return: "leased{1x}"}
}
`)

	out, _, err := executeCommand(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "2 error(s)")
}

func TestCheckCommand_MissingFile(t *testing.T) {
	_, _, err := executeCommand(t, "check", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
}

const checkCallSigs = `
signatures: {
	fn: {
		params: {c: "given{c}"}
		return: "given{c}"
	}
}
`

// writeCheckFixture writes a signature file and a scenario referencing
// it into one temp dir.
func writeCheckFixture(t *testing.T, sigs, scenario string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	sigPath := filepath.Join(dir, "sigs.cue")
	require.NoError(t, os.WriteFile(sigPath, []byte(sigs), 0o644))
	scenarioPath := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(scenario), 0o644))
	return sigPath, scenarioPath
}

const checkCallScenario = `
name: check-call
signatures: sigs.cue
steps:
  - new:
      var: c
      class: Box
      fields:
        - name: a
          value: 1
  - bind: {var: %s, from: c, via: %s}
  - call:
      func: fn
      args: {c: %s}
      result: r
`

func TestCheckCommand_ScenarioReportsUnsatisfiedWhereClause(t *testing.T) {
	sigPath, scenario := writeCheckFixture(t, checkCallSigs, fmt.Sprintf(checkCallScenario, "l", "lease", "l"))

	out, _, err := executeCommand(t, "check", sigPath, scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[E200]")
	assert.Contains(t, out, "where clause `given{c}` not satisfied for return value of `fn`")
	assert.Contains(t, out, "lease established here")
}

func TestCheckCommand_ScenarioWithCleanCallsPasses(t *testing.T) {
	sigPath, scenario := writeCheckFixture(t, checkCallSigs, fmt.Sprintf(checkCallScenario, "g", "give", "g"))

	out, _, err := executeCommand(t, "check", sigPath, scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "fn")
	assert.NotContains(t, out, "[E200]")
}

func TestCheckCommand_ScenarioLoadFaultIsCommandError(t *testing.T) {
	sigPath := writeSignatureFile(t, checkCallSigs)

	_, _, err := executeCommand(t, "check", sigPath, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
