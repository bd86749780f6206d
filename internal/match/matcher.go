package match

import (
	"github.com/grovelang/grove/internal/forest"
	"github.com/grovelang/grove/internal/perm"
)

// MatchesGiven validates target against given{...} with the permissions
// the pattern's paths resolved to. Given passes through whatever the
// contributions could provide: shared if any of them is shared, leased
// from those of them that are leased.
func MatchesGiven(f *forest.Forest, target perm.ID, perms []perm.ID) bool {
	return matches(f, target, anyShared(f, perms), newLessors(f, perms))
}

// MatchesShared validates target against shared{...}. The permitted set
// is always shared, so an owned target passes (my subsumes our).
func MatchesShared(f *forest.Forest, target perm.ID, perms []perm.ID) bool {
	return matches(f, target, true, newLessors(f, perms))
}

// MatchesLeased validates target against leased{...}. Every contribution
// acts as a permitted lessor, leased or not - and an owned target NEVER
// passes, because a leased value's compiled representation is a pointer
// into its lessor's storage. Do not weaken this to accept owned values.
func MatchesLeased(f *forest.Forest, target perm.ID, perms []perm.ID) bool {
	if !f.MustNode(target).Leased() {
		return false
	}
	return matches(f, target, false, perms)
}

// Matches dispatches a pattern family given the already-resolved path
// permissions.
func (p Pattern) Matches(f *forest.Forest, target perm.ID, perms []perm.ID) bool {
	switch p.Family {
	case FamilyGiven:
		return MatchesGiven(f, target, perms)
	case FamilyShared:
		return MatchesShared(f, target, perms)
	case FamilyLeased:
		return MatchesLeased(f, target, perms)
	default:
		return false
	}
}

// matches is the shared predicate all three families reduce to.
//
//	is_shared: whether the permitted set grants shared access
//	lessors:   the permissions the target is allowed to be leased from
func matches(f *forest.Forest, target perm.ID, isShared bool, lessors []perm.ID) bool {
	tn := f.MustNode(target)

	// Unique required, shared supplied.
	if tn.Jointness == perm.Joint && !isShared {
		return false
	}

	// A leased target must be leased FROM the permitted set.
	if tn.Leased() {
		for _, l := range lessors {
			if IsTransitiveLessorOf(f, l, target) {
				return true
			}
		}
		return false
	}

	// An owned target is fine when the pattern allows shared access or
	// never required a lessor. It is NOT fine when a lessor was required:
	// owned never substitutes for leased.
	return isShared || len(lessors) == 0
}

// IsTransitiveLessorOf reports whether target is leased (directly or
// through subleases) from l. A permission counts as leased from itself:
// passing the very lease a pattern names always satisfies it.
func IsTransitiveLessorOf(f *forest.Forest, l, target perm.ID) bool {
	return l == target || f.IsAncestor(l, target)
}

// anyShared merges the jointness contribution of a permission-variable
// binding: the variable is shared if any contribution is Joint.
func anyShared(f *forest.Forest, perms []perm.ID) bool {
	for _, p := range perms {
		if f.MustNode(p).Jointness == perm.Joint {
			return true
		}
	}
	return false
}

// newLessors merges the lessor contribution: every contribution that
// itself has a lessor joins the permitted set; owned contributions
// impose no lessor.
func newLessors(f *forest.Forest, perms []perm.ID) []perm.ID {
	var out []perm.ID
	for _, p := range perms {
		if f.MustNode(p).Leased() {
			out = append(out, p)
		}
	}
	return out
}
