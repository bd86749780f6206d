package forest

import (
	"fmt"

	"github.com/grovelang/grove/internal/perm"
)

// Forest owns the set of permission nodes and their lessor->tenant edges.
//
// Not safe for concurrent use: the engine mutates the forest from a single
// logical thread, matching the single-threaded evaluation model.
type Forest struct {
	nodes   map[perm.ID]perm.Node
	tenants map[perm.ID][]perm.ID // creation order, never reordered
	next    perm.ID
}

// New creates an empty forest. The first allocated id is 1.
func New() *Forest {
	return &Forest{
		nodes:   make(map[perm.ID]perm.Node),
		tenants: make(map[perm.ID][]perm.ID),
		next:    1,
	}
}

// NewRoot creates an owned root permission with the given jointness.
func (f *Forest) NewRoot(j perm.Jointness, grant perm.Span) perm.ID {
	id := f.next
	f.next++
	f.nodes[id] = perm.Node{
		ID:        id,
		Jointness: j,
		Lessor:    perm.None,
		Status:    perm.Active,
		Grant:     grant,
	}
	return id
}

// NewTenant creates a leased permission attached to lessor.
//
// Failure here is a programmer error in the caller (the engine's
// transition table guards every user-facing path), so the returned errors
// are plain and never surface as user diagnostics:
//   - the lessor does not exist
//   - the lessor is already cancelled
//   - the lessor is Joint and the tenant would be Unique (sharing is
//     read-only and yields only further Joint tenants)
func (f *Forest) NewTenant(lessor perm.ID, j perm.Jointness, grant perm.Span) (perm.ID, error) {
	ln, ok := f.nodes[lessor]
	if !ok {
		return perm.None, fmt.Errorf("lessor %s does not exist", lessor)
	}
	if ln.Cancelled() {
		return perm.None, fmt.Errorf("lessor %s is cancelled", lessor)
	}
	if ln.Jointness == perm.Joint && j == perm.Unique {
		return perm.None, fmt.Errorf("joint lessor %s cannot grant a unique tenant", lessor)
	}

	id := f.next
	f.next++
	f.nodes[id] = perm.Node{
		ID:        id,
		Jointness: j,
		Lessor:    lessor,
		Status:    perm.Active,
		Grant:     grant,
	}
	f.tenants[lessor] = append(f.tenants[lessor], id)
	return id, nil
}

// Node returns a copy of the node with the given id.
func (f *Forest) Node(id perm.ID) (perm.Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// MustNode returns the node or panics. For paths where the id was just
// allocated by this forest.
func (f *Forest) MustNode(id perm.ID) perm.Node {
	n, ok := f.nodes[id]
	if !ok {
		panic(fmt.Sprintf("forest: unknown permission %s", id))
	}
	return n
}

// LessorOf returns the lessor of id, if any.
func (f *Forest) LessorOf(id perm.ID) (perm.ID, bool) {
	n, ok := f.nodes[id]
	if !ok || n.Lessor == perm.None {
		return perm.None, false
	}
	return n.Lessor, true
}

// TenantsOf returns the direct tenants of id in creation order. The
// returned slice is a copy.
func (f *Forest) TenantsOf(id perm.ID) []perm.ID {
	ts := f.tenants[id]
	out := make([]perm.ID, len(ts))
	copy(out, ts)
	return out
}

// Cancel marks a node cancelled. Idempotent: cancelling a cancelled node
// is a no-op, preserving monotonicity. The node keeps its tree position.
//
// Cancel marks ONLY the given node; the engine drives the subtree
// cascade.
func (f *Forest) Cancel(id perm.ID) {
	n, ok := f.nodes[id]
	if !ok || n.Cancelled() {
		return
	}
	n.Status = perm.Cancelled
	f.nodes[id] = n
}

// ConvertToJoint converts a Unique node to Joint in place. This is the
// one jointness mutation in the system: share on an owned-unique source
// converts the source before duplicating it. The conversion is monotonic;
// nothing converts Joint back to Unique.
//
// The caller must have cancelled any Unique tenants first, or the forest
// would hold a Joint lessor with a Unique tenant.
func (f *Forest) ConvertToJoint(id perm.ID) error {
	n, ok := f.nodes[id]
	if !ok {
		return fmt.Errorf("node %s does not exist", id)
	}
	if n.Cancelled() {
		return fmt.Errorf("node %s is cancelled", id)
	}
	if n.Jointness == perm.Joint {
		return nil
	}
	for _, t := range f.tenants[id] {
		if tn := f.nodes[t]; tn.Status == perm.Active && tn.Jointness == perm.Unique {
			return fmt.Errorf("node %s still has active unique tenant %s", id, t)
		}
	}
	n.Jointness = perm.Joint
	f.nodes[id] = n
	return nil
}

// IsAncestor reports whether anc appears strictly above desc on desc's
// lessor chain.
func (f *Forest) IsAncestor(anc, desc perm.ID) bool {
	n, ok := f.nodes[desc]
	if !ok {
		return false
	}
	for n.Lessor != perm.None {
		if n.Lessor == anc {
			return true
		}
		n = f.nodes[n.Lessor]
	}
	return false
}

// LessorChain returns desc's lessors from nearest to root. Empty for
// owned nodes.
func (f *Forest) LessorChain(desc perm.ID) []perm.ID {
	var chain []perm.ID
	n, ok := f.nodes[desc]
	if !ok {
		return nil
	}
	for n.Lessor != perm.None {
		chain = append(chain, n.Lessor)
		n = f.nodes[n.Lessor]
	}
	return chain
}

// Len returns the number of nodes ever created (cancelled nodes included;
// nodes are never deleted).
func (f *Forest) Len() int {
	return len(f.nodes)
}

// WellFormed checks the structural invariants and returns the first
// violation found:
//   - every leased node's lessor exists
//   - tenant adjacency mirrors the Lessor fields exactly
//   - the lessor relation is acyclic
//   - a Joint lessor has no Unique tenant
//   - an Active leased node's lessor is Active
func (f *Forest) WellFormed() error {
	for id := perm.ID(1); id < f.next; id++ {
		n, ok := f.nodes[id]
		if !ok {
			return fmt.Errorf("node %s missing from arena", id)
		}
		if n.Lessor != perm.None {
			ln, ok := f.nodes[n.Lessor]
			if !ok {
				return fmt.Errorf("node %s references missing lessor %s", id, n.Lessor)
			}
			found := false
			for _, t := range f.tenants[n.Lessor] {
				if t == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("node %s not in tenant set of its lessor %s", id, n.Lessor)
			}
			if ln.Jointness == perm.Joint && n.Jointness == perm.Unique {
				return fmt.Errorf("joint lessor %s has unique tenant %s", n.Lessor, id)
			}
			if n.Status == perm.Active && ln.Status == perm.Cancelled {
				return fmt.Errorf("active node %s has cancelled lessor %s", id, n.Lessor)
			}
		}
		for _, t := range f.tenants[id] {
			tn, ok := f.nodes[t]
			if !ok {
				return fmt.Errorf("tenant set of %s references missing node %s", id, t)
			}
			if tn.Lessor != id {
				return fmt.Errorf("tenant set of %s claims %s, whose lessor is %s", id, t, tn.Lessor)
			}
		}
		if f.hasLessorCycle(id) {
			return fmt.Errorf("lessor cycle through node %s", id)
		}
	}
	return nil
}

// hasLessorCycle walks the lessor chain with a visited set. Ids increase
// strictly from lessor to tenant by construction, so a cycle can only
// appear through arena corruption; the check exists for the
// well-formedness test surface.
func (f *Forest) hasLessorCycle(id perm.ID) bool {
	seen := map[perm.ID]bool{id: true}
	n := f.nodes[id]
	for n.Lessor != perm.None {
		if seen[n.Lessor] {
			return true
		}
		seen[n.Lessor] = true
		n = f.nodes[n.Lessor]
	}
	return false
}
