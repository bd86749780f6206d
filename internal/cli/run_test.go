package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovelang/grove/internal/trace"
)

func TestRunCommand_PassingScenario(t *testing.T) {
	path := writeTestScenario(t, passingScenario)

	out, _, err := executeCommand(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  smoke")
}

func TestRunCommand_FailingScenarioExitsOne(t *testing.T) {
	path := writeTestScenario(t, failingScenario)

	out, _, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  mismatch")
	assert.Contains(t, out, "does not match")
}

func TestRunCommand_LoadErrorExitsTwo(t *testing.T) {
	_, _, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_JSONOutput(t *testing.T) {
	path := writeTestScenario(t, passingScenario)

	out, _, err := executeCommand(t, "--format", "json", "run", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	reports, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, reports, 1)
	report := reports[0].(map[string]any)
	assert.Equal(t, "smoke", report["name"])
	assert.Equal(t, true, report["passed"])
}

func TestRunCommand_RecordsTrace(t *testing.T) {
	path := writeTestScenario(t, passingScenario)
	dbPath := filepath.Join(t.TempDir(), "trace.db")

	_, _, err := executeCommand(t, "run", "--db", dbPath, "--run-token", "cli-run", path)
	require.NoError(t, err)

	st, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	steps, err := st.ReadRun(context.Background(), "cli-run")
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	assert.Equal(t, "read", steps[0].Op)
}

func TestRunCommand_MultipleScenarios(t *testing.T) {
	pass := writeTestScenario(t, passingScenario)
	fail := writeTestScenario(t, failingScenario)

	out, _, err := executeCommand(t, "run", pass, fail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 scenarios failed")
	assert.Contains(t, out, "PASS  smoke")
	assert.Contains(t, out, "FAIL  mismatch")
}
