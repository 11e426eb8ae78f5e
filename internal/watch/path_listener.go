package watch

import (
	"github.com/roach88/objwatch/internal/ir"
)

// WatchedPath is a path or filter subscription. Dispose unregisters it.
type WatchedPath struct {
	// Path is the subscribed forward path; nil for filter subscriptions.
	Path ir.Path
	// Filter is the subscribed filter; nil for path subscriptions.
	Filter Filter

	watcher  *Watcher
	onChange PathListener
	opts     PathOptions
	dispose  func()
	release  func()
	disposed bool
}

// Dispose removes the listener. Safe to call more than once.
func (p *WatchedPath) Dispose() {
	if p == nil || p.disposed {
		return
	}
	p.disposed = true
	p.dispose()
	if p.release != nil {
		p.release()
	}
}

// Watcher returns the watcher the subscription is installed on.
func (p *WatchedPath) Watcher() *Watcher { return p.watcher }

// AddPathListener subscribes fn to events at path (or below it with
// opts.Deep). Enables recursive watching.
func (w *Watcher) AddPathListener(path ir.Path, fn PathListener, opts PathOptions) *WatchedPath {
	p := &WatchedPath{Path: path.Clone(), watcher: w, onChange: fn, opts: opts}
	p.dispose = w.addRecursiveEntry(&listenerEntry{kind: kindPath, path: p})
	return p
}

// AddFilterListener subscribes fn to events whose path satisfies filter.
// Enables recursive watching.
func (w *Watcher) AddFilterListener(filter Filter, fn PathListener, opts PathOptions) *WatchedPath {
	p := &WatchedPath{Filter: filter, watcher: w, onChange: fn, opts: opts}
	p.dispose = w.addRecursiveEntry(&listenerEntry{kind: kindFilter, path: p})
	return p
}

// WatchPath is AddPathListener plus an immediate call with the current
// value at path, unless opts.SkipInitCall.
func (w *Watcher) WatchPath(path ir.Path, fn PathListener, opts PathOptions) *WatchedPath {
	p := w.AddPathListener(path, fn, opts)
	if !opts.SkipInitCall {
		value, _ := ir.Resolve(w.obj, path)
		fn(value, nil, nil)
	}
	return p
}

// WatchDeepPath is WatchPath matching descendants of path too.
func (w *Watcher) WatchDeepPath(path ir.Path, fn PathListener, opts PathOptions) *WatchedPath {
	opts.Deep = true
	return w.WatchPath(path, fn, opts)
}

// WatchFilter is AddFilterListener plus an immediate call with the watched
// object, unless opts.SkipInitCall.
func (w *Watcher) WatchFilter(filter Filter, fn PathListener, opts PathOptions) *WatchedPath {
	p := w.AddFilterListener(filter, fn, opts)
	if !opts.SkipInitCall {
		fn(w.obj, nil, nil)
	}
	return p
}

// forwardPath turns a reverse path into a root-first path, dropping a
// trailing none segment.
func forwardPath(reversePath ir.Path) ir.Path {
	fwd := reversePath.Reverse()
	if n := len(fwd); n > 0 && fwd[n-1].IsNone() {
		fwd = fwd[:n-1]
	}
	return fwd
}

func (p *WatchedPath) handlePath(w *Watcher, evt Event, reversePath ir.Path) {
	fwd := forwardPath(reversePath)
	if p.opts.Deep {
		if !fwd.HasPrefix(p.Path) {
			return
		}
	} else if !fwd.Equal(p.Path) {
		return
	}
	value, _ := ir.Resolve(w.obj, p.Path)
	if p.opts.Debug {
		w.reg.logger.Debug("path listener matched",
			"watcher_id", w.id,
			"path", p.Path.String(),
			"event_path", fwd.String(),
			"event_type", string(evt.Type),
		)
	}
	p.onChange(value, &evt, reversePath)
}

func (p *WatchedPath) handleFilter(w *Watcher, evt Event, reversePath ir.Path) {
	fwd := forwardPath(reversePath)
	if !matchFilter(p.Filter, w.obj, fwd, evt.Type == EventDelete) {
		return
	}
	value, _ := ir.Resolve(w.obj, fwd)
	if p.opts.Debug {
		w.reg.logger.Debug("filter listener matched",
			"watcher_id", w.id,
			"event_path", fwd.String(),
			"event_type", string(evt.Type),
		)
	}
	p.onChange(value, &evt, reversePath)
}

// WatchDeep takes a ref on obj and subscribes fn to every event in its
// subtree. Disposing the result releases the ref.
func (r *Registry) WatchDeep(obj ir.Watchable, fn PathListener, opts PathOptions) *WatchedPath {
	w := r.Watch(obj)
	if w == nil {
		return nil
	}
	p := w.WatchDeepPath(nil, fn, opts)
	p.release = r.releaseFunc(obj)
	return p
}

// WatchAtPath takes a ref on obj and subscribes fn to path. Disposing the
// result releases the ref.
func (r *Registry) WatchAtPath(obj ir.Watchable, path ir.Path, fn PathListener, opts PathOptions) *WatchedPath {
	w := r.Watch(obj)
	if w == nil {
		return nil
	}
	p := w.WatchPath(path, fn, opts)
	p.release = r.releaseFunc(obj)
	return p
}

// WatchWithFilter takes a ref on obj and subscribes fn to filter. Disposing
// the result releases the ref.
func (r *Registry) WatchWithFilter(obj ir.Watchable, filter Filter, fn PathListener, opts PathOptions) *WatchedPath {
	w := r.Watch(obj)
	if w == nil {
		return nil
	}
	p := w.WatchFilter(filter, fn, opts)
	p.release = r.releaseFunc(obj)
	return p
}

func (r *Registry) releaseFunc(obj ir.Watchable) func() {
	return func() {
		if _, err := r.StopWatching(obj); err != nil {
			r.logger.Warn("release watched path", "error", err)
		}
	}
}
