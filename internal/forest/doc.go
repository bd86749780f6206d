// Package forest implements the permission forest: the arena of permission
// nodes and the lessor->tenant edges between them.
//
// STRUCTURE:
// The lessor relation forms a forest. Every node has at most one lessor,
// there are no cycles, and a leased node's lessor always exists. Owned
// nodes are roots.
//
// The forest is an arena indexed by integer ids, with lessor and tenant
// links stored as ids rather than pointers. Nodes are value types; lookups
// return copies. This makes Snapshot() a clone-on-write view that the
// debug tooling can diff against a later snapshot with no aliasing hazards.
//
// MUTATION DISCIPLINE:
// The forest exposes exactly four mutations: creating a root, creating a
// tenant (which attaches it), cancelling a node, and the one-way
// Unique-to-Joint conversion used by share. Nothing detaches an edge; a
// cancelled node keeps its tree position so diagnostics can still
// walk the chain that granted it. Cancellation is monotonic.
//
// Cancellation POLICY (which tenants an access revokes, and cascading)
// lives in the engine package. The forest only provides the mark
// primitive and the adjacency needed to walk subtrees deterministically.
package forest
