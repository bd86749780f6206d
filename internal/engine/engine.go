package engine

import (
	"log/slog"

	"github.com/grovelang/grove/internal/forest"
	"github.com/grovelang/grove/internal/perm"
)

// Step is one recorded engine event: a transition or guarded access with
// its logical seq, the permissions involved, and the forest snapshots
// taken immediately before and after. Violations are recorded too - a
// failed access is exactly the kind of step the debug tooling wants to
// show.
type Step struct {
	Seq       int64
	RunToken  string
	Op        string // "give", "lease", "share", "drop", "read", "write"
	Perm      perm.ID
	Result    perm.ID // permission produced, if any
	Span      perm.Span
	Violation string // violation code, empty on success
	Message   string // violation message, empty on success
	Before    *forest.Snapshot
	After     *forest.Snapshot
}

// Recorder receives engine steps. Implemented by the SQLite trace store;
// nil disables recording (and the snapshot overhead with it).
type Recorder interface {
	Record(step Step) error
}

// Engine applies permission transitions and cancellation to one forest.
//
// Not safe for concurrent use. One engine serves one evaluation; the
// evaluator drives it from a single goroutine in program order.
type Engine struct {
	forest   *forest.Forest
	clock    *Clock
	recorder Recorder
	runToken string
	tokenGen RunTokenGenerator

	atomicSeq int64 // scope ids, diagnostic only
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a trace recorder. Each recorded step carries
// before/after forest snapshots, so recording is strictly more expensive
// than running bare; the interpreter only attaches a recorder when the
// debug surface asks for it.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunToken fixes the run token outright, bypassing any generator.
func WithRunToken(token string) Option {
	return func(e *Engine) {
		e.runToken = token
	}
}

// WithTokenGenerator sets the generator used when no run token is fixed.
// Defaults to UUIDv7Generator; tests pass a FixedGenerator for
// deterministic traces.
func WithTokenGenerator(g RunTokenGenerator) Option {
	return func(e *Engine) {
		e.tokenGen = g
	}
}

// New creates an engine over the given forest.
func New(f *forest.Forest, opts ...Option) *Engine {
	e := &Engine{
		forest: f,
		clock:  NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runToken == "" {
		if e.tokenGen == nil {
			e.tokenGen = UUIDv7Generator{}
		}
		e.runToken = e.tokenGen.Generate()
	}
	return e
}

// Forest returns the engine's forest. The caller shares the engine's
// single logical thread; this is how the evaluator resolves places and
// takes ad-hoc snapshots.
func (e *Engine) Forest() *forest.Forest {
	return e.forest
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// RunToken returns the token correlating this evaluation's trace steps.
func (e *Engine) RunToken() string {
	return e.runToken
}

// AtomicScope is the token proving an access occurs inside an atomic
// section. The evaluator passes it explicitly down the call chain; there
// is no ambient "current scope" state in the engine.
type AtomicScope struct {
	id int64
}

// ID returns the scope's diagnostic id.
func (s *AtomicScope) ID() int64 {
	return s.id
}

// EnterAtomic opens an atomic section and returns its scope token. The
// evaluator holds the token for the section's extent and discards it on
// exit; the engine never tracks whether a scope is "still open".
func (e *Engine) EnterAtomic() *AtomicScope {
	e.atomicSeq++
	return &AtomicScope{id: e.atomicSeq}
}

// snapshotIfRecording takes a forest snapshot only when a recorder is
// attached.
func (e *Engine) snapshotIfRecording() *forest.Snapshot {
	if e.recorder == nil {
		return nil
	}
	return e.forest.Snapshot()
}

// record logs a step to the recorder, if any. Recorder failures are
// logged and dropped: the trace log is a diagnostic surface, and a
// diagnostic failure must never change evaluation semantics.
func (e *Engine) record(seq int64, op string, p, result perm.ID, span perm.Span, before *forest.Snapshot, violation error) {
	if e.recorder == nil {
		return
	}

	step := Step{
		Seq:      seq,
		RunToken: e.runToken,
		Op:       op,
		Perm:     p,
		Result:   result,
		Span:     span,
		Before:   before,
		After:    e.forest.Snapshot(),
	}
	if violation != nil {
		step.Message = ViolationMessage(violation)
		switch v := violation.(type) {
		case *PermissionViolation:
			step.Violation = string(v.Code)
		case *AtomicFieldViolation:
			step.Violation = "ATOMIC_OUTSIDE_SECTION"
		default:
			step.Violation = "ERROR"
		}
	}

	if err := e.recorder.Record(step); err != nil {
		slog.Error("trace recording failed",
			"error", err,
			"op", op,
			"perm", int64(p),
			"seq", step.Seq,
			"run_token", e.runToken,
		)
	}
}

// active returns the node for p if it is active, or the violation that
// forbids the operation. Unknown ids are a programmer error in the
// evaluator and panic.
func (e *Engine) active(p perm.ID, span perm.Span) (perm.Node, *PermissionViolation) {
	n := e.forest.MustNode(p)
	if n.Cancelled() {
		return n, useAfterCancel(n, span)
	}
	return n, nil
}
