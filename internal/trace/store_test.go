package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovelang/grove/internal/engine"
	"github.com/grovelang/grove/internal/forest"
	"github.com/grovelang/grove/internal/perm"
	"github.com/grovelang/grove/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestStep(t *testing.T) engine.Step {
	t.Helper()
	f := forest.New()
	p := f.NewRoot(perm.Unique, perm.Span{File: "main.gv", Line: 1, Column: 5})
	before := f.Snapshot()

	q, err := f.NewTenant(p, perm.Unique, perm.Span{File: "main.gv", Line: 2, Column: 5})
	require.NoError(t, err)
	after := f.Snapshot()

	return engine.Step{
		Seq:      1,
		RunToken: "run-1",
		Op:       "lease",
		Perm:     p,
		Result:   q,
		Span:     perm.Span{File: "main.gv", Line: 2, Column: 5},
		Before:   before,
		After:    after,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestWriteStep_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	step := makeTestStep(t)

	require.NoError(t, s.WriteStep(ctx, step))

	steps, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)

	rec := steps[0]
	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, "lease", rec.Op)
	assert.Equal(t, step.Perm, rec.Perm)
	assert.Equal(t, step.Result, rec.Result)
	assert.Equal(t, step.Span, rec.Span)
	assert.Empty(t, rec.Violation)

	// Snapshot columns hold canonical JSON and its content hash.
	wantBeforeHash, err := step.Before.Hash()
	require.NoError(t, err)
	assert.Equal(t, wantBeforeHash, rec.BeforeHash)
	assert.Contains(t, rec.BeforeState, `"nodes"`)
	assert.NotEqual(t, rec.BeforeHash, rec.AfterHash)
}

func TestWriteStep_IdempotentOnReplay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	step := makeTestStep(t)

	require.NoError(t, s.WriteStep(ctx, step))
	require.NoError(t, s.WriteStep(ctx, step))

	steps, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestWriteStep_NilSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	step := makeTestStep(t)
	step.Before = nil
	step.After = nil
	require.NoError(t, s.WriteStep(ctx, step))

	steps, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Empty(t, steps[0].BeforeHash)
	assert.Empty(t, steps[0].BeforeState)
}

func TestReadRun_OrdersBySeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := makeTestStep(t)
	for _, seq := range []int64{3, 1, 2} {
		step := base
		step.Seq = seq
		require.NoError(t, s.WriteStep(ctx, step))
	}

	steps, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, int64(1), steps[0].Seq)
	assert.Equal(t, int64(2), steps[1].Seq)
	assert.Equal(t, int64(3), steps[2].Seq)
}

func TestWriteStep_ReplayWithResetClock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	clk := testutil.NewDeterministicClock()

	writeRun := func() {
		for i := 0; i < 3; i++ {
			step := makeTestStep(t)
			step.Seq = clk.Next()
			require.NoError(t, s.WriteStep(ctx, step))
		}
	}

	// Same run replayed with a reset clock lands on the same
	// (run_token, seq) rows and changes nothing.
	writeRun()
	clk.Reset()
	writeRun()

	steps, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, clk.Current(), steps[len(steps)-1].Seq)
}

func TestListRuns_CountsViolations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok := makeTestStep(t)
	require.NoError(t, s.WriteStep(ctx, ok))

	bad := makeTestStep(t)
	bad.Seq = 2
	bad.Result = perm.None
	bad.Violation = string(engine.CodeUseAfterCancel)
	bad.Message = engine.MsgLeaseCancelled
	require.NoError(t, s.WriteStep(ctx, bad))

	other := makeTestStep(t)
	other.RunToken = "run-2"
	require.NoError(t, s.WriteStep(ctx, other))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byToken := map[string]RunInfo{}
	for _, r := range runs {
		byToken[r.Token] = r
	}
	assert.Equal(t, int64(2), byToken["run-1"].Steps)
	assert.Equal(t, int64(1), byToken["run-1"].Violations)
	assert.Equal(t, int64(1), byToken["run-2"].Steps)
	assert.Equal(t, int64(0), byToken["run-2"].Violations)
}

func TestRecorder_FeedsEngineStepsIntoStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	f := forest.New()
	e := engine.New(f, engine.WithRunToken("run-rec"), engine.WithRecorder(NewRecorder(ctx, s)))

	p := f.NewRoot(perm.Unique, perm.Span{File: "main.gv", Line: 1})
	_, err := e.Lease(p, perm.Span{File: "main.gv", Line: 2})
	require.NoError(t, err)

	steps, readErr := s.ReadRun(ctx, "run-rec")
	require.NoError(t, readErr)
	require.Len(t, steps, 1)
	assert.Equal(t, "lease", steps[0].Op)
	assert.Equal(t, p, steps[0].Perm)
	assert.NotEmpty(t, steps[0].BeforeHash)
	assert.NotEmpty(t, steps[0].AfterHash)
}

func TestListRuns_Empty(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
