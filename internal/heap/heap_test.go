package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovelang/grove/internal/perm"
)

func TestHeap_NewObject_AssignsSequentialIDs(t *testing.T) {
	h := New()
	a, err := h.NewObject("Pair", nil)
	require.NoError(t, err)
	b, err := h.NewObject("Pair", nil)
	require.NoError(t, err)

	assert.Equal(t, ObjectID(1), a)
	assert.Equal(t, ObjectID(2), b)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []ObjectID{1, 2}, h.IDs())
}

func TestHeap_NewObject_RejectsDuplicateField(t *testing.T) {
	h := New()
	_, err := h.NewObject("Pair", []FieldDef{
		{Name: "a", Value: IntValue(1)},
		{Name: "a", Value: IntValue(2)},
	})
	assert.ErrorContains(t, err, `duplicate field "a"`)
}

func TestHeap_Fields(t *testing.T) {
	h := New()
	id, err := h.NewObject("Counter", []FieldDef{
		{Name: "count", Atomic: true, Value: IntValue(0)},
		{Name: "label", Value: StringValue("hits")},
	})
	require.NoError(t, err)

	o := h.MustObject(id)
	assert.Equal(t, []string{"count", "label"}, o.FieldNames())
	assert.True(t, o.FieldAtomic("count"))
	assert.False(t, o.FieldAtomic("label"))

	require.NoError(t, h.SetField(id, "count", IntValue(3)))
	v, err := h.Field(id, "count")
	require.NoError(t, err)
	assert.Equal(t, IntValue(3), v)

	_, err = h.Field(id, "missing")
	assert.ErrorContains(t, err, `no field "missing"`)
	assert.ErrorContains(t, h.SetField(id, "missing", IntValue(1)), `no field "missing"`)
}

func TestHeap_Render(t *testing.T) {
	h := New()
	pair, err := h.NewObject("Pair", []FieldDef{
		{Name: "a", Value: IntValue(22)},
		{Name: "b", Value: IntValue(44)},
	})
	require.NoError(t, err)

	box, err := h.NewObject("Box", []FieldDef{
		{Name: "item", Value: RefValue(Place{Object: pair, Perm: perm.ID(1)})},
		{Name: "full", Value: BoolValue(true)},
	})
	require.NoError(t, err)

	assert.Equal(t, "22", h.Render(IntValue(22)))
	assert.Equal(t, `"hi"`, h.Render(StringValue("hi")))
	assert.Equal(t, "nil", h.Render(Value{}))
	assert.Equal(t, "Pair(22, 44)", h.Render(RefValue(Place{Object: pair})))
	assert.Equal(t, "Box(Pair(22, 44), true)", h.Render(RefValue(Place{Object: box})))
}

func TestHeap_Render_Cycle(t *testing.T) {
	h := New()
	node, err := h.NewObject("Node", []FieldDef{
		{Name: "next", Value: Value{}},
	})
	require.NoError(t, err)
	require.NoError(t, h.SetField(node, "next", RefValue(Place{Object: node})))

	assert.Equal(t, "Node(o1)", h.Render(RefValue(Place{Object: node})))
}

func TestEnv_ScopesAndRebind(t *testing.T) {
	outer := NewEnv()
	outer.Bind("x", Place{Object: 1, Perm: perm.ID(1)})

	inner := outer.Child()
	inner.Bind("y", Place{Object: 2, Perm: perm.ID(2)})

	x, ok := inner.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, ObjectID(1), x.Object)

	// Rebind through the child mutates the scope that owns the binding.
	require.NoError(t, inner.Rebind("x", Place{Object: 3, Perm: perm.ID(3)}))
	x, _ = outer.Lookup("x")
	assert.Equal(t, ObjectID(3), x.Object)

	// Shadowing binds locally without touching the outer scope.
	inner.Bind("x", Place{Object: 9, Perm: perm.ID(9)})
	x, _ = outer.Lookup("x")
	assert.Equal(t, ObjectID(3), x.Object)

	_, ok = outer.Lookup("y")
	assert.False(t, ok)
	assert.Error(t, inner.Rebind("z", Place{}))
}
