package watch

import (
	"slices"

	"github.com/roach88/objwatch/internal/ir"
)

// Watcher observes one object. It owns the object's listeners, its links to
// the watchers of enclosing objects, and the mutate-and-notify operations.
//
// Obtain watchers through a Registry; never construct them directly.
//
// INVARIANTS:
//   - recursive never goes from true back to false
//   - a watcher is disposed as soon as refCount <= 0 and it has no ancestors
//   - ancestor links are removed before a structural mutation and added after it
type Watcher struct {
	id  int64
	obj ir.Watchable
	reg *Registry

	refCount  int
	recursive bool
	disposed  bool

	listeners  []*listenerEntry // flat
	rListeners []*listenerEntry // recursive, path and filter
	ancestors  []ancestor

	queueDepth int
	queue      []queuedDelivery
}

// ancestor records that the watcher's object is reachable from
// watcher's object under key.
type ancestor struct {
	watcher *Watcher
	key     ir.Key
}

func newWatcher(reg *Registry, obj ir.Watchable) *Watcher {
	return &Watcher{
		id:  watcherIDs.Next(),
		obj: obj,
		reg: reg,
	}
}

// ID returns the process-unique watcher id.
func (w *Watcher) ID() int64 { return w.id }

// Target returns the watched object.
func (w *Watcher) Target() ir.Watchable { return w.obj }

// Observed is always true for a watcher.
func (w *Watcher) Observed() bool { return true }

// RefCount returns the number of outstanding Watch calls.
func (w *Watcher) RefCount() int { return w.refCount }

// Recursive reports whether recursive watching is enabled.
func (w *Watcher) Recursive() bool { return w.recursive }

// Disposed reports whether the watcher has been detached from its registry.
func (w *Watcher) Disposed() bool { return w.disposed }

// AncestorCount returns the number of (parent, key) links.
func (w *Watcher) AncestorCount() int { return len(w.ancestors) }

// EligibleForDispose reports whether nothing holds interest in the watcher.
func (w *Watcher) EligibleForDispose() bool {
	return w.refCount <= 0 && len(w.ancestors) == 0
}

// Dispose detaches the watcher from its registry and from the ancestor lists
// of its children. Children are disposed only if that leaves them eligible.
func (w *Watcher) Dispose() {
	if w.disposed {
		return
	}
	w.disposed = true

	if w.recursive {
		w.obj.VisitChildren(func(key ir.Key, child ir.Watchable) {
			if cw := w.reg.lookup(child); cw != nil {
				cw.removeAncestor(w, key)
			}
		})
	}
	w.ancestors = nil
	w.reg.forget(w)
}

// EnableRecursive turns on recursive watching. Every aggregate child gets a
// watcher (without a ref), is made recursive, and links back to w.
// The flag is set before the scan, so a cyclic graph terminates.
func (w *Watcher) EnableRecursive() {
	if w.recursive {
		return
	}
	w.recursive = true
	w.obj.VisitChildren(func(key ir.Key, child ir.Watchable) {
		cw := w.reg.Get(child, true)
		cw.EnableRecursive()
		cw.addAncestor(w, key)
	})
}

func (w *Watcher) addAncestor(parent *Watcher, key ir.Key) bool {
	for _, a := range w.ancestors {
		if a.watcher == parent && a.key.Equal(key) {
			return false
		}
	}
	w.ancestors = append(w.ancestors, ancestor{watcher: parent, key: key})
	return true
}

func (w *Watcher) removeAncestor(parent *Watcher, key ir.Key) bool {
	for i, a := range w.ancestors {
		if a.watcher == parent && a.key.Equal(key) {
			w.ancestors = slices.Delete(w.ancestors, i, i+1)
			if w.EligibleForDispose() {
				w.Dispose()
			}
			return true
		}
	}
	return false
}

// dropIndexLinks removes every index link from parent at or beyond start.
// Never disposes; the caller re-adds the links that still hold.
func (w *Watcher) dropIndexLinks(parent *Watcher, start int) {
	w.ancestors = slices.DeleteFunc(w.ancestors, func(a ancestor) bool {
		if a.watcher != parent {
			return false
		}
		i, ok := a.key.AsIndex()
		return ok && i >= start
	})
}

// linkChild records w as an ancestor of v's watcher under key.
func (w *Watcher) linkChild(key ir.Key, v ir.Value) {
	if !w.recursive {
		return
	}
	child, ok := ir.AsWatchable(v)
	if !ok {
		return
	}
	cw := w.reg.Get(child, true)
	cw.EnableRecursive()
	cw.addAncestor(w, key)
}

// unlinkChild removes the (w, key) link from v's watcher.
func (w *Watcher) unlinkChild(key ir.Key, v ir.Value) {
	if !w.recursive {
		return
	}
	if cw := w.reg.lookup(v); cw != nil {
		cw.removeAncestor(w, key)
	}
}

// relinkFrom rebuilds the index links of every element at or after start so
// they report current positions after a splice or move. Elements that only
// left the array must already be unlinked.
func (w *Watcher) relinkFrom(arr *ir.Array, start int) {
	if !w.recursive {
		return
	}
	touched := make(map[*Watcher]bool)
	for i := start; i < arr.Len(); i++ {
		child, ok := ir.AsWatchable(arr.At(i))
		if !ok {
			continue
		}
		cw := w.reg.Get(child, true)
		if !touched[cw] {
			touched[cw] = true
			cw.EnableRecursive()
			cw.dropIndexLinks(w, start)
		}
		cw.addAncestor(w, ir.Index(i))
	}
}

// childKey is the ancestor key for prop: an index for arrays, the prop
// otherwise.
func (w *Watcher) childKey(prop string) ir.Key {
	key := ir.Prop(prop)
	if _, isArray := w.obj.(*ir.Array); isArray {
		if i, ok := key.AsIndex(); ok {
			return ir.Index(i)
		}
	}
	return key
}

func (w *Watcher) array() (*ir.Array, bool) {
	arr, ok := w.obj.(*ir.Array)
	return arr, ok && arr != nil
}

// SetProp assigns prop and fires a set event. Assigning the value already
// there (by identity) does nothing.
func (w *Watcher) SetProp(prop string, v ir.Value, opts ...MutationOption) ir.Value {
	cur, _ := propGet(w.obj, prop)
	if ir.Same(cur, v) || !propSettable(w.obj, prop) {
		return v
	}
	key := w.childKey(prop)
	w.unlinkChild(key, cur)
	propSet(w.obj, prop, v)
	w.linkChild(key, v)

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventSet, Prop: prop, Value: v}))
	return v
}

// SetOrMergeProp merges v into the object already at prop when both are
// objects, keeping the existing object's identity. Otherwise it is SetProp.
func (w *Watcher) SetOrMergeProp(prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return setOrMergeProp(w.reg, w, prop, v, opts)
}

// ToggleProp sets prop to the negation of its truthiness.
func (w *Watcher) ToggleProp(prop string, opts ...MutationOption) bool {
	return toggleProp(w, prop, opts)
}

// SetPropOrDeleteFalsy sets prop when v is truthy and deletes it otherwise.
func (w *Watcher) SetPropOrDeleteFalsy(prop string, v ir.Value, opts ...MutationOption) ir.Value {
	return setPropOrDeleteWhen(w, prop, v, func(v ir.Value) bool { return !ir.Truthy(v) }, opts)
}

// SetPropOrDeleteWhen sets prop unless v is Same as deleteWhen, in which
// case prop is deleted.
func (w *Watcher) SetPropOrDeleteWhen(prop string, v, deleteWhen ir.Value, opts ...MutationOption) ir.Value {
	return setPropOrDeleteWhen(w, prop, v, func(v ir.Value) bool { return ir.Same(v, deleteWhen) }, opts)
}

// DeleteProp removes prop and fires a delete event. Returns false, with no
// event, when prop is absent.
func (w *Watcher) DeleteProp(prop string, opts ...MutationOption) bool {
	cur, ok := propGet(w.obj, prop)
	if !ok || !propDeletable(w.obj) {
		return false
	}
	w.unlinkChild(w.childKey(prop), cur)
	propDelete(w.obj, prop)

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventDelete, Prop: prop}))
	return true
}

// DeleteAllProps deletes every property, one delete event each.
func (w *Watcher) DeleteAllProps(opts ...MutationOption) {
	deleteAllProps(w, opts)
}

// AryPush appends values and fires aryChange at the old length.
func (w *Watcher) AryPush(values []ir.Value, opts ...MutationOption) bool {
	arr, ok := w.array()
	if !ok {
		return false
	}
	index := arr.Len()
	arr.Splice(index, 0, values...)
	w.relinkFrom(arr, index)

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventAryChange, Index: index, Values: slices.Clone(values)}))
	return true
}

// AryInsert inserts values at index.
func (w *Watcher) AryInsert(index int, values []ir.Value, opts ...MutationOption) bool {
	return w.ArySplice(index, 0, values, opts...)
}

// ArySplice removes deleteCount items at index, inserts values there and
// fires aryChange. Out-of-range splices return false with no event.
func (w *Watcher) ArySplice(index, deleteCount int, values []ir.Value, opts ...MutationOption) bool {
	arr, ok := w.array()
	if !ok || !validSplice(arr.Len(), index, deleteCount) {
		return false
	}
	for i := index; i < index+deleteCount; i++ {
		w.unlinkChild(ir.Index(i), arr.At(i))
	}
	arySplice(arr, index, deleteCount, values)
	w.relinkFrom(arr, index)

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{
		Type:           EventAryChange,
		Index:          index,
		DeleteCount:    deleteCount,
		HasDeleteCount: true,
		Values:         slices.Clone(values),
	}))
	return true
}

// AryRemove removes the first element Same as v.
func (w *Watcher) AryRemove(v ir.Value, opts ...MutationOption) bool {
	arr, ok := w.array()
	if !ok {
		return false
	}
	i := arr.IndexOf(v)
	if i < 0 {
		return false
	}
	return w.AryRemoveAt(i, 1, opts...)
}

// AryRemoveAt removes count elements at index and fires aryChange.
func (w *Watcher) AryRemoveAt(index, count int, opts ...MutationOption) bool {
	arr, ok := w.array()
	if !ok || !validRemoveAt(arr.Len(), index, count) {
		return false
	}
	for i := index; i < index+count; i++ {
		w.unlinkChild(ir.Index(i), arr.At(i))
	}
	aryRemoveAt(arr, index, count)
	w.relinkFrom(arr, index)

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventAryChange, Index: index, DeleteCount: count, HasDeleteCount: true}))
	return true
}

// AryMove moves count elements from fromIndex to toIndex and fires aryMove.
func (w *Watcher) AryMove(fromIndex, toIndex, count int, opts ...MutationOption) bool {
	arr, ok := w.array()
	if !ok || !aryMove(arr, fromIndex, toIndex, count) {
		return false
	}
	w.relinkFrom(arr, min(fromIndex, toIndex))

	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventAryMove, FromIndex: fromIndex, ToIndex: toIndex, Count: count}))
	return true
}

// TriggerChange fires a generic change event.
func (w *Watcher) TriggerChange(opts ...MutationOption) {
	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventChange}))
}

// TriggerEvent fires a custom event. The object acts as a channel; nothing
// is mutated.
func (w *Watcher) TriggerEvent(eventType string, value ir.Value, opts ...MutationOption) {
	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventCustom, EventType: eventType, EventValue: value}))
}

// TriggerLoad fires a load request for prop ("" for the whole object).
func (w *Watcher) TriggerLoad(prop string, opts ...MutationOption) {
	m := applyMutationOptions(opts)
	w.Trigger(m.stamp(Event{Type: EventLoad, Prop: prop}))
}
