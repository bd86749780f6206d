package engine

import (
	"log/slog"

	"github.com/grovelang/grove/internal/perm"
)

// Field carries the slice of field metadata the guard needs: whether the
// target field was declared atomic. The evaluator owns field resolution;
// the guard never sees the heap.
type Field struct {
	Name   string
	Atomic bool
}

// Guard is the checkpoint every value access passes through. It verifies
// the permission is still active, enforces the atomic-field rules, and
// triggers the cancellation side effects of the access.
type Guard struct {
	eng *Engine
}

// Guard returns the engine's access guard.
func (e *Engine) Guard() *Guard {
	return &Guard{eng: e}
}

// Read authorizes a read through p. On success the read's cancellation
// rule has been applied: unique tenants of p (and of each lessor above p,
// off the access path) are revoked; joint tenants survive.
func (g *Guard) Read(p perm.ID, span perm.Span) error {
	e := g.eng
	seq := e.clock.Next()
	n, viol := e.active(p, span)
	if viol != nil {
		e.record(seq, "read", p, perm.None, span, e.snapshotIfRecording(), viol)
		return viol
	}
	before := e.snapshotIfRecording()

	e.applyAccess(p, triggerRead)

	slog.Debug("read", "perm", int64(p), "kind", n.Kind().String(), "seq", seq)
	e.record(seq, "read", p, perm.None, span, before, nil)
	return nil
}

// Write authorizes a write to field through p.
//
// Rules, checked in order:
//  1. p must be active (PermissionViolation otherwise)
//  2. an atomic field requires an atomic scope token, whatever p's
//     jointness (AtomicFieldViolation otherwise)
//  3. a non-atomic field requires a Unique permission - Joint access is
//     read-only outside atomic fields (PermissionViolation otherwise)
//
// On success every tenant of p (and off-path tenants of each lessor
// above) is revoked: after a write, no outstanding lease's view of the
// value can be trusted.
func (g *Guard) Write(p perm.ID, field Field, scope *AtomicScope, span perm.Span) error {
	e := g.eng
	seq := e.clock.Next()
	n, viol := e.active(p, span)
	if viol != nil {
		e.record(seq, "write", p, perm.None, span, e.snapshotIfRecording(), viol)
		return viol
	}

	if field.Atomic && scope == nil {
		av := &AtomicFieldViolation{Field: field.Name, Perm: p, Span: span}
		e.record(seq, "write", p, perm.None, span, e.snapshotIfRecording(), av)
		return av
	}
	if !field.Atomic && n.Jointness == perm.Joint {
		pv := &PermissionViolation{
			Code:    CodeSharedWrite,
			Message: "cannot write to a shared object outside an atomic field",
			Perm:    p,
			Span:    span,
			Grant:   n.Grant,
		}
		e.record(seq, "write", p, perm.None, span, e.snapshotIfRecording(), pv)
		return pv
	}
	before := e.snapshotIfRecording()

	e.applyAccess(p, triggerWrite)

	slog.Debug("write",
		"perm", int64(p),
		"kind", n.Kind().String(),
		"field", field.Name,
		"atomic", field.Atomic,
		"seq", seq,
	)
	e.record(seq, "write", p, perm.None, span, before, nil)
	return nil
}
