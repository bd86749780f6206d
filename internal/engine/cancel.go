package engine

import "github.com/grovelang/grove/internal/perm"

// trigger distinguishes which direct tenants an access revokes. The
// cascade below a revoked tenant is always total regardless of trigger.
type trigger uint8

const (
	// triggerRead revokes Unique direct tenants only. Joint tenants
	// survive their lessor's read: a shared lease promises the value will
	// not change underneath it, and a read changes nothing.
	triggerRead trigger = iota
	// triggerWrite revokes every direct tenant. After a write no tenant's
	// view of the value can be trusted.
	triggerWrite
	// triggerTransfer is drop/give on a Unique source: every direct
	// tenant is revoked because the granting handle itself is going away.
	triggerTransfer
)

// cancelSubtree cancels id and every node transitively reachable through
// the tenant relation. Depth-first mark pass; order-independent because
// marking is idempotent and nothing else mutates during the walk.
func (e *Engine) cancelSubtree(id perm.ID) {
	n, ok := e.forest.Node(id)
	if !ok || n.Cancelled() {
		return
	}
	e.forest.Cancel(id)
	for _, t := range e.forest.TenantsOf(id) {
		e.cancelSubtree(t)
	}
}

// cancelTenants revokes the direct tenants of p selected by the trigger,
// cascading through each revoked tenant's subtree. The except id - the
// tenant on the access path when walking the lessor chain - is never
// revoked.
func (e *Engine) cancelTenants(p perm.ID, tr trigger, except perm.ID) {
	for _, t := range e.forest.TenantsOf(p) {
		if t == except {
			continue
		}
		tn, ok := e.forest.Node(t)
		if !ok || tn.Cancelled() {
			continue
		}
		if tr == triggerRead && tn.Jointness == perm.Joint {
			continue
		}
		e.cancelSubtree(t)
	}
}

// applyAccess runs the cancellation side of a guarded access: the trigger
// is applied at the accessed node and then at every lessor above it, with
// the on-path tenant exempted at each level. Reading through a sublease
// reads through the whole chain, so a sibling unique lease anywhere up
// the chain is revoked - but the ancestors themselves are never touched;
// cancellation propagates downward only.
func (e *Engine) applyAccess(p perm.ID, tr trigger) {
	child := perm.None
	node := p
	for node != perm.None {
		e.cancelTenants(node, tr, child)
		child = node
		lessor, ok := e.forest.LessorOf(node)
		if !ok {
			break
		}
		node = lessor
	}
}
