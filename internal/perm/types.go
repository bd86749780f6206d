package perm

import "fmt"

// ID identifies a permission node. IDs are allocated sequentially by the
// forest, start at 1, and are never reused. The zero value means "none".
type ID int64

// None is the absent permission id (e.g. the lessor of an owned node).
const None ID = 0

// String returns the id formatted for diagnostics, e.g. "perm(7)".
func (id ID) String() string {
	return fmt.Sprintf("perm(%d)", int64(id))
}

// Jointness describes whether a permission guarantees exclusive access.
type Jointness uint8

const (
	// Unique permissions guarantee exclusive access: no other active
	// permission reaches the same value except through this node's
	// tenant subtree.
	Unique Jointness = iota
	// Joint permissions may be freely duplicated. They are read-only
	// except through atomic fields inside an atomic section.
	Joint
)

// String returns "unique" or "joint".
func (j Jointness) String() string {
	switch j {
	case Unique:
		return "unique"
	case Joint:
		return "joint"
	default:
		return fmt.Sprintf("jointness(%d)", uint8(j))
	}
}

// Status is the lifecycle state of a permission.
//
// Cancelled is terminal: no transition returns a node to Active.
type Status uint8

const (
	// Active permissions admit reads, writes, and derivation of new
	// permissions per their kind.
	Active Status = iota
	// Cancelled permissions reject every operation with a
	// PermissionViolation. The status is monotonic.
	Cancelled
)

// String returns "active" or "cancelled".
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Kind is the tagged product of ownership and jointness. The action
// transition table dispatches on Kind with an explicit switch rather than
// polymorphic node types, so every transition is visible in one place.
type Kind uint8

const (
	// OwnedUnique is the "my" kind: full ownership, exclusive access.
	// Literal and constructor results always start here.
	OwnedUnique Kind = iota
	// OwnedJoint is the "our" kind: shared ownership of a jointly held
	// value. Only the original owned-turned-shared datum is destroyed,
	// once.
	OwnedJoint
	// LeasedUnique is the "leased" kind: exclusive but revocable access
	// granted by a lessor.
	LeasedUnique
	// LeasedJoint is the "shleased" kind: a shared lease, revoked only by
	// a write (not a read) of its lessor.
	LeasedJoint
)

// String returns the surface-syntax name of the kind.
func (k Kind) String() string {
	switch k {
	case OwnedUnique:
		return "my"
	case OwnedJoint:
		return "our"
	case LeasedUnique:
		return "leased"
	case LeasedJoint:
		return "shleased"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Span locates a source position for diagnostics. The engine never
// interprets spans; it threads them through to violations so the two-span
// "violation here" / "lease established here" rendering works.
type Span struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String renders the span as file:line:column, or "<unknown>" for the
// zero span.
func (s Span) String() string {
	if s.File == "" && s.Line == 0 {
		return "<unknown>"
	}
	if s.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Node is one permission record. Nodes are plain values: the forest stores
// them by value and hands out copies, so holding a Node never aliases
// forest state.
//
// The tenant set is maintained by the forest (it is derived from the
// Lessor field of other nodes), not stored on the node itself.
type Node struct {
	ID        ID
	Jointness Jointness
	Lessor    ID // None for owned nodes
	Status    Status
	Grant     Span // where this permission was established
}

// Owned reports whether the node has no lessor.
func (n Node) Owned() bool {
	return n.Lessor == None
}

// Leased reports whether the node references a lessor.
func (n Node) Leased() bool {
	return n.Lessor != None
}

// Kind returns the node's cell in the ownership x jointness grid.
func (n Node) Kind() Kind {
	switch {
	case n.Owned() && n.Jointness == Unique:
		return OwnedUnique
	case n.Owned():
		return OwnedJoint
	case n.Jointness == Unique:
		return LeasedUnique
	default:
		return LeasedJoint
	}
}

// Cancelled reports whether the node's status is Cancelled.
func (n Node) Cancelled() bool {
	return n.Status == Cancelled
}
