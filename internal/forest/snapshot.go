package forest

import (
	"github.com/grovelang/grove/internal/perm"
)

// Snapshot is an immutable, serializable view of the forest at one point
// in time: every node with its status, jointness, lessor, and tenants.
// Snapshots are deep copies; mutating the forest afterwards never changes
// an already-taken snapshot, which is what lets the debug tooling render
// heap_before/heap_after pairs.
type Snapshot struct {
	Nodes []SnapshotNode
}

// SnapshotNode is one node's view inside a snapshot.
type SnapshotNode struct {
	ID        perm.ID
	Jointness perm.Jointness
	Lessor    perm.ID
	Status    perm.Status
	Tenants   []perm.ID
}

// Snapshot captures the current forest state. Nodes appear in id order,
// so two snapshots of equal logical state serialize identically.
func (f *Forest) Snapshot() *Snapshot {
	snap := &Snapshot{Nodes: make([]SnapshotNode, 0, len(f.nodes))}
	for id := perm.ID(1); id < f.next; id++ {
		n := f.nodes[id]
		tenants := make([]perm.ID, len(f.tenants[id]))
		copy(tenants, f.tenants[id])
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:        n.ID,
			Jointness: n.Jointness,
			Lessor:    n.Lessor,
			Status:    n.Status,
			Tenants:   tenants,
		})
	}
	return snap
}

// CanonicalMap converts the snapshot into the map form accepted by
// perm.MarshalCanonical, for hashing and for storage in the trace log.
func (s *Snapshot) CanonicalMap() map[string]any {
	nodes := make([]any, len(s.Nodes))
	for i, n := range s.Nodes {
		tenants := make([]any, len(n.Tenants))
		for j, t := range n.Tenants {
			tenants[j] = int64(t)
		}
		node := map[string]any{
			"id":        int64(n.ID),
			"jointness": n.Jointness.String(),
			"status":    n.Status.String(),
			"tenants":   tenants,
		}
		if n.Lessor != perm.None {
			node["lessor"] = int64(n.Lessor)
		}
		nodes[i] = node
	}
	return map[string]any{"nodes": nodes}
}

// Hash returns the content-addressed id of the snapshot.
func (s *Snapshot) Hash() (string, error) {
	return perm.SnapshotHash(s.CanonicalMap())
}

// Node returns the snapshot's view of id, if present.
func (s *Snapshot) Node(id perm.ID) (SnapshotNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return SnapshotNode{}, false
}
