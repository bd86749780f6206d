package engine

import (
	"log/slog"

	"github.com/grovelang/grove/internal/perm"
)

// Give transfers or duplicates p, returning the resulting permission.
//
// The effect depends on p's cell in the ownership x jointness grid:
//
//	my (Owned-Unique):   the result takes over p's identity; p and every
//	                     permission p granted are cancelled. This is the
//	                     only transition that revokes its source.
//	our (Owned-Joint):   duplicate. A new owned-joint root; nothing is
//	                     cancelled.
//	leased (L-Unique):   a fresh unique sublease of p; p's existing
//	                     tenants are cancelled first (the transfer
//	                     extinguishes everything the old handle granted).
//	shleased (L-Joint):  duplicate at the same tree position.
func (e *Engine) Give(p perm.ID, span perm.Span) (perm.ID, error) {
	seq := e.clock.Next()
	n, viol := e.active(p, span)
	if viol != nil {
		e.record(seq, "give", p, perm.None, span, e.snapshotIfRecording(), viol)
		return perm.None, viol
	}
	before := e.snapshotIfRecording()

	var q perm.ID
	switch n.Kind() {
	case perm.OwnedUnique:
		e.cancelSubtree(p)
		q = e.forest.NewRoot(perm.Unique, span)

	case perm.OwnedJoint:
		q = e.forest.NewRoot(perm.Joint, span)

	case perm.LeasedUnique:
		e.cancelTenants(p, triggerTransfer, perm.None)
		q = e.mustTenant(p, perm.Unique, span)

	case perm.LeasedJoint:
		q = e.mustTenant(n.Lessor, perm.Joint, span)
	}

	slog.Debug("give", "perm", int64(p), "kind", n.Kind().String(), "result", int64(q), "seq", seq)
	e.record(seq, "give", p, q, span, before, nil)
	return q, nil
}

// Lease derives a revocable tenant of p: Unique sources grant a unique
// lease, Joint sources grant a shared lease. Lease moves one row down in
// the grid and never cancels anything.
func (e *Engine) Lease(p perm.ID, span perm.Span) (perm.ID, error) {
	seq := e.clock.Next()
	n, viol := e.active(p, span)
	if viol != nil {
		e.record(seq, "lease", p, perm.None, span, e.snapshotIfRecording(), viol)
		return perm.None, viol
	}
	before := e.snapshotIfRecording()

	j := perm.Unique
	if n.Jointness == perm.Joint {
		j = perm.Joint
	}
	q := e.mustTenant(p, j, span)

	slog.Debug("lease", "perm", int64(p), "kind", n.Kind().String(), "result", int64(q), "seq", seq)
	e.record(seq, "lease", p, q, span, before, nil)
	return q, nil
}

// Share converts or duplicates p into Joint form, moving one column right
// in the grid:
//
//	my:       p itself converts in place to Owned-Joint (its unique
//	          tenants are revoked first, as by a read), then the result
//	          duplicates it.
//	our:      duplicate.
//	leased:   a shared sublease of p - the "shlease of a lease".
//	shleased: duplicate at the same tree position.
func (e *Engine) Share(p perm.ID, span perm.Span) (perm.ID, error) {
	seq := e.clock.Next()
	n, viol := e.active(p, span)
	if viol != nil {
		e.record(seq, "share", p, perm.None, span, e.snapshotIfRecording(), viol)
		return perm.None, viol
	}
	before := e.snapshotIfRecording()

	var q perm.ID
	switch n.Kind() {
	case perm.OwnedUnique:
		// Sharing reads the source: outstanding unique leases are revoked
		// so the in-place conversion cannot leave a Joint lessor over a
		// Unique tenant.
		e.cancelTenants(p, triggerRead, perm.None)
		if err := e.forest.ConvertToJoint(p); err != nil {
			// Unreachable after the read-cancel above; forest misuse is a
			// programmer error, not a user diagnostic.
			panic(err)
		}
		q = e.forest.NewRoot(perm.Joint, span)

	case perm.OwnedJoint:
		q = e.forest.NewRoot(perm.Joint, span)

	case perm.LeasedUnique:
		q = e.mustTenant(p, perm.Joint, span)

	case perm.LeasedJoint:
		q = e.mustTenant(n.Lessor, perm.Joint, span)
	}

	slog.Debug("share", "perm", int64(p), "kind", n.Kind().String(), "result", int64(q), "seq", seq)
	e.record(seq, "share", p, q, span, before, nil)
	return q, nil
}

// Drop releases p, cancelling it and everything it granted. Dropping an
// already-cancelled permission is a no-op: the handle was already revoked
// and releasing it again holds nothing back.
func (e *Engine) Drop(p perm.ID, span perm.Span) error {
	seq := e.clock.Next()
	n := e.forest.MustNode(p)
	if n.Cancelled() {
		return nil
	}
	before := e.snapshotIfRecording()

	e.cancelSubtree(p)

	slog.Debug("drop", "perm", int64(p), "kind", n.Kind().String(), "seq", seq)
	e.record(seq, "drop", p, perm.None, span, before, nil)
	return nil
}

// mustTenant wraps forest.NewTenant for paths where the transition table
// has already established the attach is legal.
func (e *Engine) mustTenant(lessor perm.ID, j perm.Jointness, span perm.Span) perm.ID {
	q, err := e.forest.NewTenant(lessor, j, span)
	if err != nil {
		panic(err)
	}
	return q
}
