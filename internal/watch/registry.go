package watch

import (
	"fmt"
	"log/slog"

	"github.com/roach88/objwatch/internal/ir"
)

// Registry is the side-table that attaches watchers to objects.
//
// Watched objects are borrowed: the registry owns each watcher and maps the
// object's identity to it, so the object's shape is never touched. At most one
// watcher exists per object.
//
// A Registry is not safe for concurrent use. Everything reachable from one
// registry must be mutated from a single goroutine.
type Registry struct {
	watchers        map[ir.Watchable]*Watcher
	logger          *slog.Logger
	onListenerError func(error)
	maxDepth        int
}

// Default is the registry used by the package-level functions.
var Default = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		watchers: make(map[ir.Watchable]*Watcher),
		logger:   slog.Default(),
		maxDepth: ir.MaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Len returns the number of attached watchers.
func (r *Registry) Len() int {
	return len(r.watchers)
}

// Watch gets or creates the watcher for obj and increments its ref count.
// Returns nil for a nil obj.
func (r *Registry) Watch(obj ir.Watchable) *Watcher {
	w := r.Get(obj, true)
	if w == nil {
		return nil
	}
	w.refCount++
	return w
}

// WatchValue is Watch for a dynamically typed value. Scalars and nil fail
// with ErrNotWatchable.
func (r *Registry) WatchValue(v ir.Value) (*Watcher, error) {
	obj, ok := ir.AsWatchable(v)
	if !ok {
		return nil, fmt.Errorf("watch %s: %w", ir.TypeName(v), ErrNotWatchable)
	}
	return r.Watch(obj), nil
}

// StopWatching decrements the ref count of obj's watcher and disposes it
// once it is eligible. Returns (nil, nil) when obj has no watcher.
// Decrementing a count that is already zero fails with ErrRefCountUnderflow
// and leaves the count unchanged.
func (r *Registry) StopWatching(obj ir.Watchable) (*Watcher, error) {
	w := r.Get(obj, false)
	if w == nil {
		return nil, nil
	}
	if w.refCount <= 0 {
		return w, newWatcherError(ErrRefCountUnderflow, w.id)
	}
	w.refCount--
	if w.EligibleForDispose() {
		w.Dispose()
	}
	return w, nil
}

// Get returns obj's watcher, creating it without taking a ref when
// autoCreate is set. Returns nil for nil or typed-nil objects.
func (r *Registry) Get(obj ir.Watchable, autoCreate bool) *Watcher {
	key, ok := ir.AsWatchable(obj)
	if !ok {
		return nil
	}
	if w := r.watchers[key]; w != nil {
		return w
	}
	if !autoCreate {
		return nil
	}
	w := newWatcher(r, key)
	r.watchers[key] = w
	return w
}

// lookup is Get for an arbitrary value without creation.
func (r *Registry) lookup(v ir.Value) *Watcher {
	obj, ok := ir.AsWatchable(v)
	if !ok {
		return nil
	}
	return r.watchers[obj]
}

// forget removes w's side-table entry if it still maps to w.
func (r *Registry) forget(w *Watcher) {
	if r.watchers[w.obj] == w {
		delete(r.watchers, w.obj)
	}
}

// Handle returns the mutation surface for v: its watcher when watched, a
// pass-through handle for an unwatched aggregate, or a no-op handle for
// anything else. The choice is made once, here.
func (r *Registry) Handle(v ir.Value) Handle {
	obj, ok := ir.AsWatchable(v)
	if !ok {
		return noopHandle{}
	}
	if w := r.watchers[obj]; w != nil {
		return w
	}
	return passthrough{obj: obj, reg: r}
}

func (r *Registry) reportListenerPanic(w *Watcher, evt Event, recursive bool, rec any) {
	err := &ListenerError{
		WatcherID: w.id,
		EventType: evt.Type,
		Recursive: recursive,
		Panic:     rec,
	}
	r.logger.Error("listener panicked",
		"watcher_id", w.id,
		"event_type", string(evt.Type),
		"recursive", recursive,
		"panic", fmt.Sprint(rec),
	)
	if r.onListenerError != nil {
		r.onListenerError(err)
	}
}
