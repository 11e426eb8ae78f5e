package watch

import (
	"slices"

	"github.com/roach88/objwatch/internal/ir"
)

type listenerKind uint8

const (
	kindFlat listenerKind = iota + 1
	kindRecursive
	kindPath
	kindFilter
)

// listenerEntry is one registered subscriber. Flat entries live in
// Watcher.listeners; the other kinds in Watcher.rListeners.
type listenerEntry struct {
	kind      listenerKind
	flat      Listener
	recursive RecursiveListener
	path      *WatchedPath // kindPath and kindFilter
	removed   bool
}

// AddListener registers a flat listener and returns its disposer.
func (w *Watcher) AddListener(fn Listener) (dispose func()) {
	entry := &listenerEntry{kind: kindFlat, flat: fn}
	w.listeners = append(w.listeners, entry)
	return func() { w.removeEntry(entry) }
}

// AddRecursiveListener enables recursive watching and registers fn for
// every event in the subtree. Returns its disposer.
func (w *Watcher) AddRecursiveListener(fn RecursiveListener) (dispose func()) {
	return w.addRecursiveEntry(&listenerEntry{kind: kindRecursive, recursive: fn})
}

func (w *Watcher) addRecursiveEntry(entry *listenerEntry) func() {
	w.EnableRecursive()
	w.rListeners = append(w.rListeners, entry)
	return func() { w.removeEntry(entry) }
}

// removeEntry unregisters entry. Safe to call more than once and during
// dispatch: the in-flight snapshot skips removed entries.
func (w *Watcher) removeEntry(entry *listenerEntry) {
	if entry.removed {
		return
	}
	entry.removed = true
	if entry.kind == kindFlat {
		w.listeners = slices.DeleteFunc(w.listeners, func(e *listenerEntry) bool { return e == entry })
	} else {
		w.rListeners = slices.DeleteFunc(w.rListeners, func(e *listenerEntry) bool { return e == entry })
	}
}

// ListenerCount returns the number of flat and recursive entries.
func (w *Watcher) ListenerCount() (flat, recursive int) {
	return len(w.listeners), len(w.rListeners)
}

// Trigger delivers evt as if it came from a mutation of this watcher's
// object. While changes are queued the event is buffered instead.
//
// Delivery order:
//  1. flat listeners, in registration order
//  2. this watcher's recursive listeners, with reversePath [segment]
//  3. every ancestor, depth first, each extending the path with its key
//
// A watcher reachable through more than one ancestor chain receives the
// event once.
func (w *Watcher) Trigger(evt Event) {
	if w.queueDepth > 0 {
		w.queue = append(w.queue, queuedDelivery{own: true, evt: evt.Clone()})
		return
	}
	w.deliver(evt)
}

func (w *Watcher) deliver(evt Event) {
	for _, entry := range slices.Clone(w.listeners) {
		if entry.removed {
			continue
		}
		w.invoke(entry, evt, nil)
	}

	if len(w.ancestors) == 0 && len(w.rListeners) == 0 {
		return
	}
	path := make(ir.Path, 1, 8)
	path[0] = evt.Segment()
	w.propagate(evt, path, make(map[int64]struct{}))
}

// propagate runs recursive listeners here and continues to every ancestor.
// path is the reverse path from the mutation site to this watcher's object.
func (w *Watcher) propagate(evt Event, path ir.Path, visited map[int64]struct{}) {
	if _, seen := visited[w.id]; seen {
		return
	}
	visited[w.id] = struct{}{}

	if w.queueDepth > 0 {
		w.queue = append(w.queue, queuedDelivery{evt: evt.Clone(), path: path.Clone(), visited: visited})
		return
	}
	w.fanOut(evt, path, visited)
}

// fanOut runs this watcher's recursive listeners and continues to every
// ancestor not yet in visited.
func (w *Watcher) fanOut(evt Event, path ir.Path, visited map[int64]struct{}) {
	for _, entry := range slices.Clone(w.rListeners) {
		if entry.removed {
			continue
		}
		w.invoke(entry, evt, path)
	}

	n := len(path)
	for _, a := range slices.Clone(w.ancestors) {
		path = append(path[:n], a.key)
		a.watcher.propagate(evt, path, visited)
	}
}

// invoke calls one listener, isolating its panic.
func (w *Watcher) invoke(entry *listenerEntry, evt Event, path ir.Path) {
	defer func() {
		if rec := recover(); rec != nil {
			w.reg.reportListenerPanic(w, evt, entry.kind != kindFlat, rec)
		}
	}()

	switch entry.kind {
	case kindFlat:
		entry.flat(w.obj, evt)
	case kindRecursive:
		entry.recursive(w.obj, evt, path)
	case kindPath:
		entry.path.handlePath(w, evt, path)
	case kindFilter:
		entry.path.handleFilter(w, evt, path)
	}
}
