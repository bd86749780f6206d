package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovelang/grove/internal/perm"
)

func TestNewRoot_IsOwnedAndActive(t *testing.T) {
	f := New()
	id := f.NewRoot(perm.Unique, perm.Span{})

	n := f.MustNode(id)
	assert.True(t, n.Owned())
	assert.Equal(t, perm.Active, n.Status)
	assert.Equal(t, perm.OwnedUnique, n.Kind())

	_, hasLessor := f.LessorOf(id)
	assert.False(t, hasLessor)
}

func TestNewRoot_IDsNeverReused(t *testing.T) {
	f := New()
	a := f.NewRoot(perm.Unique, perm.Span{})
	f.Cancel(a)
	b := f.NewRoot(perm.Unique, perm.Span{})

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, f.Len(), "cancelled nodes are never deleted")
}

func TestNewTenant_AttachesEdge(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)

	lessor, ok := f.LessorOf(lease)
	require.True(t, ok)
	assert.Equal(t, owner, lessor)
	assert.Equal(t, []perm.ID{lease}, f.TenantsOf(owner))
	assert.Equal(t, perm.LeasedUnique, f.MustNode(lease).Kind())
}

func TestNewTenant_CancelledLessorRejected(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	f.Cancel(owner)

	_, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestNewTenant_JointLessorCannotGrantUnique(t *testing.T) {
	f := New()
	shared := f.NewRoot(perm.Joint, perm.Span{})

	_, err := f.NewTenant(shared, perm.Unique, perm.Span{})
	require.Error(t, err)

	// Joint tenants of a joint lessor are fine.
	_, err = f.NewTenant(shared, perm.Joint, perm.Span{})
	assert.NoError(t, err)
}

func TestNewTenant_MissingLessorRejected(t *testing.T) {
	f := New()
	_, err := f.NewTenant(perm.ID(99), perm.Unique, perm.Span{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCancel_Monotonic(t *testing.T) {
	f := New()
	id := f.NewRoot(perm.Unique, perm.Span{})

	f.Cancel(id)
	assert.Equal(t, perm.Cancelled, f.MustNode(id).Status)

	// A second cancel is a no-op, and nothing reactivates the node.
	f.Cancel(id)
	assert.Equal(t, perm.Cancelled, f.MustNode(id).Status)
}

func TestIsAncestor_WalksChain(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)
	sub, err := f.NewTenant(lease, perm.Joint, perm.Span{})
	require.NoError(t, err)

	assert.True(t, f.IsAncestor(owner, sub))
	assert.True(t, f.IsAncestor(lease, sub))
	assert.False(t, f.IsAncestor(sub, owner))
	assert.False(t, f.IsAncestor(sub, sub), "IsAncestor is strict")
}

func TestLessorChain_NearestFirst(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)
	sub, err := f.NewTenant(lease, perm.Unique, perm.Span{})
	require.NoError(t, err)

	assert.Equal(t, []perm.ID{lease, owner}, f.LessorChain(sub))
	assert.Empty(t, f.LessorChain(owner))
}

func TestWellFormed_HealthyForest(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)
	_, err = f.NewTenant(lease, perm.Joint, perm.Span{})
	require.NoError(t, err)

	assert.NoError(t, f.WellFormed())
}

func TestWellFormed_DetectsActiveTenantOfCancelledLessor(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	_, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)

	// Cancelling only the lessor (without cascading) breaks the invariant
	// that an active leased node's lessor is active. The engine never does
	// this; the check exists to catch exactly this kind of misuse.
	f.Cancel(owner)

	err = f.WellFormed()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled lessor")
}

func TestSnapshot_ImmutableUnderLaterMutation(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	before := f.Snapshot()

	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)
	f.Cancel(lease)
	after := f.Snapshot()

	require.Len(t, before.Nodes, 1)
	require.Len(t, after.Nodes, 2)

	bn, ok := before.Node(owner)
	require.True(t, ok)
	assert.Empty(t, bn.Tenants, "earlier snapshot must not see the later tenant")

	an, ok := after.Node(owner)
	require.True(t, ok)
	assert.Equal(t, []perm.ID{lease}, an.Tenants)
}

func TestSnapshot_HashIgnoresWhenTaken(t *testing.T) {
	build := func() *Forest {
		f := New()
		owner := f.NewRoot(perm.Unique, perm.Span{})
		_, err := f.NewTenant(owner, perm.Joint, perm.Span{})
		require.NoError(t, err)
		return f
	}

	h1, err := build().Snapshot().Hash()
	require.NoError(t, err)
	h2, err := build().Snapshot().Hash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestSnapshot_HashChangesWithStatus(t *testing.T) {
	f := New()
	owner := f.NewRoot(perm.Unique, perm.Span{})
	lease, err := f.NewTenant(owner, perm.Unique, perm.Span{})
	require.NoError(t, err)

	h1, err := f.Snapshot().Hash()
	require.NoError(t, err)

	f.Cancel(lease)
	h2, err := f.Snapshot().Hash()
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
