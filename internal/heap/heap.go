package heap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grovelang/grove/internal/perm"
)

// ObjectID identifies one heap object. Ids start at 1 and are never
// reused; 0 is the null object.
type ObjectID int64

// None is the null ObjectID.
const None ObjectID = 0

// String renders an id as "o3".
func (id ObjectID) String() string {
	if id == None {
		return "o?"
	}
	return fmt.Sprintf("o%d", int64(id))
}

// ValueKind discriminates Value.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindInt
	KindString
	KindBool
	KindRef
)

// Value is one storable value: a scalar, or a reference to a heap
// object held through a permission.
type Value struct {
	Kind ValueKind
	Int  int64
	Str  string
	Bool bool
	Ref  Place
}

// Place is a reference paired with the permission it is held through.
// Two places may name the same object through different permissions.
type Place struct {
	Object ObjectID
	Perm   perm.ID
}

// IsZero reports whether the place binds nothing.
func (p Place) IsZero() bool {
	return p.Object == None && p.Perm == perm.None
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func RefValue(p Place) Value     { return Value{Kind: KindRef, Ref: p} }

// FieldDef declares one field of a class at object creation.
type FieldDef struct {
	Name   string
	Atomic bool
	Value  Value
}

// Object is one heap record. Field order is declaration order and is
// preserved for rendering.
type Object struct {
	Class  string
	names  []string
	fields map[string]Value
	atomic map[string]bool
}

// Class-level accessors hand out copies; mutation goes through the Heap.

// FieldNames returns the field names in declaration order.
func (o *Object) FieldNames() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Field returns the named field's value.
func (o *Object) Field(name string) (Value, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// FieldAtomic reports whether the named field was declared atomic.
func (o *Object) FieldAtomic(name string) bool {
	return o.atomic[name]
}

// Heap owns all objects of one execution.
type Heap struct {
	objects map[ObjectID]*Object
	next    ObjectID
}

// New returns an empty heap. The first allocated id is 1.
func New() *Heap {
	return &Heap{objects: make(map[ObjectID]*Object), next: 1}
}

// NewObject allocates an object of the given class. Duplicate field
// names are an error.
func (h *Heap) NewObject(class string, fields []FieldDef) (ObjectID, error) {
	o := &Object{
		Class:  class,
		fields: make(map[string]Value, len(fields)),
		atomic: make(map[string]bool, len(fields)),
	}
	for _, fd := range fields {
		if _, dup := o.fields[fd.Name]; dup {
			return None, fmt.Errorf("heap: duplicate field %q on class %s", fd.Name, class)
		}
		o.names = append(o.names, fd.Name)
		o.fields[fd.Name] = fd.Value
		if fd.Atomic {
			o.atomic[fd.Name] = true
		}
	}
	id := h.next
	h.next++
	h.objects[id] = o
	return id, nil
}

// Object returns the object for id.
func (h *Heap) Object(id ObjectID) (*Object, bool) {
	o, ok := h.objects[id]
	return o, ok
}

// MustObject returns the object or panics. For ids the caller just
// allocated on this heap.
func (h *Heap) MustObject(id ObjectID) *Object {
	o, ok := h.objects[id]
	if !ok {
		panic(fmt.Sprintf("heap: unknown object %s", id))
	}
	return o
}

// SetField stores v into the named field. Storing rebinds the location;
// whatever the field previously held keeps its own permission state.
func (h *Heap) SetField(id ObjectID, name string, v Value) error {
	o, ok := h.objects[id]
	if !ok {
		return fmt.Errorf("heap: unknown object %s", id)
	}
	if _, ok := o.fields[name]; !ok {
		return fmt.Errorf("heap: class %s has no field %q", o.Class, name)
	}
	o.fields[name] = v
	return nil
}

// Field loads the named field of id.
func (h *Heap) Field(id ObjectID, name string) (Value, error) {
	o, ok := h.objects[id]
	if !ok {
		return Value{}, fmt.Errorf("heap: unknown object %s", id)
	}
	v, ok := o.fields[name]
	if !ok {
		return Value{}, fmt.Errorf("heap: class %s has no field %q", o.Class, name)
	}
	return v, nil
}

// Len returns the number of live objects.
func (h *Heap) Len() int {
	return len(h.objects)
}

// IDs returns every object id in ascending order.
func (h *Heap) IDs() []ObjectID {
	out := make([]ObjectID, 0, len(h.objects))
	for id := range h.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render formats a value the way print shows it: scalars as literals,
// references as "Class(field, field)" with fields in declaration order.
// Reference cycles render the inner occurrence as the bare object id.
func (h *Heap) Render(v Value) string {
	return h.render(v, make(map[ObjectID]bool))
}

func (h *Heap) render(v Value, seen map[ObjectID]bool) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindRef:
		id := v.Ref.Object
		if seen[id] {
			return id.String()
		}
		o, ok := h.objects[id]
		if !ok {
			return id.String()
		}
		seen[id] = true
		parts := make([]string, 0, len(o.names))
		for _, name := range o.names {
			parts = append(parts, h.render(o.fields[name], seen))
		}
		delete(seen, id)
		return fmt.Sprintf("%s(%s)", o.Class, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("<bad value kind %d>", v.Kind)
	}
}
