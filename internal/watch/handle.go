package watch

import (
	"github.com/roach88/objwatch/internal/ir"
)

// Handle is the mutation surface of a maybe-watched object.
//
// Registry.Handle picks the implementation once: the object's *Watcher
// (full notification), a pass-through handle (raw mutation, no
// notification) or a no-op handle for nil and scalars. Callers write the same
// code for all three.
type Handle interface {
	Target() ir.Watchable
	Observed() bool

	SetProp(prop string, v ir.Value, opts ...MutationOption) ir.Value
	SetOrMergeProp(prop string, v ir.Value, opts ...MutationOption) ir.Value
	ToggleProp(prop string, opts ...MutationOption) bool
	SetPropOrDeleteFalsy(prop string, v ir.Value, opts ...MutationOption) ir.Value
	SetPropOrDeleteWhen(prop string, v, deleteWhen ir.Value, opts ...MutationOption) ir.Value
	DeleteProp(prop string, opts ...MutationOption) bool
	DeleteAllProps(opts ...MutationOption)

	AryPush(values []ir.Value, opts ...MutationOption) bool
	AryInsert(index int, values []ir.Value, opts ...MutationOption) bool
	ArySplice(index, deleteCount int, values []ir.Value, opts ...MutationOption) bool
	AryRemove(v ir.Value, opts ...MutationOption) bool
	AryRemoveAt(index, count int, opts ...MutationOption) bool
	AryMove(fromIndex, toIndex, count int, opts ...MutationOption) bool

	TriggerChange(opts ...MutationOption)
	TriggerEvent(eventType string, value ir.Value, opts ...MutationOption)
	TriggerLoad(prop string, opts ...MutationOption)
}

var (
	_ Handle = (*Watcher)(nil)
	_ Handle = passthrough{}
	_ Handle = noopHandle{}
)

// passthrough mutates an unwatched aggregate directly.
type passthrough struct {
	obj ir.Watchable
	reg *Registry
}

func (p passthrough) Target() ir.Watchable { return p.obj }
func (p passthrough) Observed() bool       { return false }

func (p passthrough) SetProp(prop string, v ir.Value, _ ...MutationOption) ir.Value {
	propSet(p.obj, prop, v)
	return v
}

func (p passthrough) SetOrMergeProp(prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return setOrMergeProp(p.reg, p, prop, v, opts)
}

func (p passthrough) ToggleProp(prop string, opts ...MutationOption) bool {
	return toggleProp(p, prop, opts)
}

func (p passthrough) SetPropOrDeleteFalsy(prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return setPropOrDeleteWhen(p, prop, v, func(v ir.Value) bool { return !ir.Truthy(v) }, opts)
}

func (p passthrough) SetPropOrDeleteWhen(prop string, v, deleteWhen ir.Value, opts ...MutationOption) ir.Value {
	return setPropOrDeleteWhen(p, prop, v, func(v ir.Value) bool { return ir.Same(v, deleteWhen) }, opts)
}

func (p passthrough) DeleteProp(prop string, _ ...MutationOption) bool {
	return propDelete(p.obj, prop)
}

func (p passthrough) DeleteAllProps(opts ...MutationOption) {
	deleteAllProps(p, opts)
}

func (p passthrough) AryPush(values []ir.Value, _ ...MutationOption) bool {
	arr, ok := p.obj.(*ir.Array)
	if !ok {
		return false
	}
	return arySplice(arr, arr.Len(), 0, values)
}

func (p passthrough) AryInsert(index int, values []ir.Value, opts ...MutationOption) bool {
	return p.ArySplice(index, 0, values, opts...)
}

func (p passthrough) ArySplice(index, deleteCount int, values []ir.Value, _ ...MutationOption) bool {
	arr, ok := p.obj.(*ir.Array)
	return ok && arySplice(arr, index, deleteCount, values)
}

func (p passthrough) AryRemove(v ir.Value, _ ...MutationOption) bool {
	arr, ok := p.obj.(*ir.Array)
	if !ok {
		return false
	}
	_, removed := aryRemove(arr, v)
	return removed
}

func (p passthrough) AryRemoveAt(index, count int, _ ...MutationOption) bool {
	arr, ok := p.obj.(*ir.Array)
	return ok && aryRemoveAt(arr, index, count)
}

func (p passthrough) AryMove(fromIndex, toIndex, count int, _ ...MutationOption) bool {
	arr, ok := p.obj.(*ir.Array)
	return ok && aryMove(arr, fromIndex, toIndex, count)
}

// Signals on an unwatched object have nobody to reach.
func (p passthrough) TriggerChange(...MutationOption)                 {}
func (p passthrough) TriggerEvent(string, ir.Value, ...MutationOption) {}
func (p passthrough) TriggerLoad(string, ...MutationOption)            {}

// noopHandle stands in for nil and scalar targets.
type noopHandle struct{}

func (noopHandle) Target() ir.Watchable { return nil }
func (noopHandle) Observed() bool       { return false }

func (noopHandle) SetProp(_ string, v ir.Value, _ ...MutationOption) ir.Value        { return v }
func (noopHandle) SetOrMergeProp(_ string, v ir.Value, _ ...MutationOption) ir.Value { return v }
func (noopHandle) ToggleProp(string, ...MutationOption) bool                         { return false }
func (noopHandle) SetPropOrDeleteFalsy(_ string, v ir.Value, _ ...MutationOption) ir.Value {
	return v
}
func (noopHandle) SetPropOrDeleteWhen(_ string, v, _ ir.Value, _ ...MutationOption) ir.Value {
	return v
}
func (noopHandle) DeleteProp(string, ...MutationOption) bool                   { return false }
func (noopHandle) DeleteAllProps(...MutationOption)                            {}
func (noopHandle) AryPush([]ir.Value, ...MutationOption) bool                  { return false }
func (noopHandle) AryInsert(int, []ir.Value, ...MutationOption) bool           { return false }
func (noopHandle) ArySplice(int, int, []ir.Value, ...MutationOption) bool      { return false }
func (noopHandle) AryRemove(ir.Value, ...MutationOption) bool                  { return false }
func (noopHandle) AryRemoveAt(int, int, ...MutationOption) bool                { return false }
func (noopHandle) AryMove(int, int, int, ...MutationOption) bool               { return false }
func (noopHandle) TriggerChange(...MutationOption)                             {}
func (noopHandle) TriggerEvent(string, ir.Value, ...MutationOption)            {}
func (noopHandle) TriggerLoad(string, ...MutationOption)                       {}

// Property access shared by objects and arrays. On arrays a prop is a
// decimal index within bounds.

func propGet(obj ir.Watchable, prop string) (ir.Value, bool) {
	return ir.Child(obj, ir.Prop(prop))
}

func propSettable(obj ir.Watchable, prop string) bool {
	switch o := obj.(type) {
	case *ir.Object:
		return o != nil
	case *ir.Array:
		i, ok := ir.Prop(prop).AsIndex()
		return ok && i < o.Len()
	default:
		return false
	}
}

func propSet(obj ir.Watchable, prop string, v ir.Value) bool {
	if !propSettable(obj, prop) {
		return false
	}
	switch o := obj.(type) {
	case *ir.Object:
		o.Set(prop, v)
	case *ir.Array:
		i, _ := ir.Prop(prop).AsIndex()
		o.SetAt(i, v)
	}
	return true
}

func propDeletable(obj ir.Watchable) bool {
	o, ok := obj.(*ir.Object)
	return ok && o != nil
}

func propDelete(obj ir.Watchable, prop string) bool {
	o, ok := obj.(*ir.Object)
	return ok && o.Delete(prop)
}

func toggleProp(h Handle, prop string, opts []MutationOption) bool {
	cur, _ := propGet(h.Target(), prop)
	next := !ir.Truthy(cur)
	h.SetProp(prop, ir.Bool(next), opts...)
	return next
}

func setPropOrDeleteWhen(h Handle, prop string, v ir.Value, shouldDelete func(ir.Value) bool, opts []MutationOption) ir.Value {
	if shouldDelete(v) {
		h.DeleteProp(prop, opts...)
	} else {
		h.SetProp(prop, v, opts...)
	}
	return v
}

func deleteAllProps(h Handle, opts []MutationOption) {
	obj, ok := h.Target().(*ir.Object)
	if !ok {
		return
	}
	for _, k := range obj.SortedKeys() {
		h.DeleteProp(k, opts...)
	}
}

func setOrMergeProp(reg *Registry, h Handle, prop string, v ir.Value, opts []MutationOption) ir.Value {
	cur, _ := propGet(h.Target(), prop)
	curObj, curOK := cur.(*ir.Object)
	newObj, newOK := v.(*ir.Object)
	if curOK && newOK && curObj != nil && newObj != nil && curObj != newObj {
		if err := reg.MergeObj(curObj, newObj, opts...); err != nil {
			reg.logger.Warn("set-or-merge fell back to set",
				"prop", prop,
				"error", err,
			)
			h.SetProp(prop, v, opts...)
		}
		return v
	}
	h.SetProp(prop, v, opts...)
	return v
}
