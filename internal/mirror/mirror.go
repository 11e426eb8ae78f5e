// Package mirror replays normalized recursive events onto a second graph.
//
// A Mirror holds a target root that starts structurally equal to some source
// root. Every event recorded at the source (live, through RecursiveListener,
// or from a stored journal) is applied to the node at the same path in the
// target through the registry's free functions, so the target's own watchers
// fire exactly as if the change had been made there.
//
// Values carried by events are deep-cloned before they are written: source
// and target never share an aggregate.
package mirror

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// ErrOutOfSync is returned when an event cannot be applied because the
// target no longer has the shape the event expects.
var ErrOutOfSync = errors.New("mirror out of sync")

// Mirror applies events to a target graph.
//
// Thread-safety: Mirror is not safe for concurrent use. It must share a
// goroutine with the registry it writes through.
type Mirror struct {
	target     ir.Watchable
	reg        *watch.Registry
	logger     *slog.Logger
	sourceGen  watch.SourceGenerator
	source     string
	mergeOnSet bool

	outOfSync      []*outOfSyncEntry
	outOfSyncCount int
	applied        int
	disposed       bool
}

type outOfSyncEntry struct {
	fn      func(evt watch.RecursiveEvent, err error)
	removed bool
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithRegistry sets the registry mutations go through. Defaults to
// watch.Default.
func WithRegistry(reg *watch.Registry) Option {
	return func(m *Mirror) {
		if reg != nil {
			m.reg = reg
		}
	}
}

// WithMergeValuesOnSet makes set events merge object values into the object
// already at the target prop instead of replacing it.
func WithMergeValuesOnSet(merge bool) Option {
	return func(m *Mirror) {
		m.mergeOnSet = merge
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSourceGenerator sets the generator for the mirror's own source tag,
// used when an event is applied without an explicit source.
//
// Default: watch.UUIDv7Generator
func WithSourceGenerator(gen watch.SourceGenerator) Option {
	return func(m *Mirror) {
		if gen != nil {
			m.sourceGen = gen
		}
	}
}

// New creates a mirror writing into target.
func New(target ir.Watchable, opts ...Option) *Mirror {
	m := &Mirror{
		target:    target,
		reg:       watch.Default,
		logger:    slog.Default(),
		sourceGen: watch.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.source = m.sourceGen.Generate()
	return m
}

// Target returns the mirrored root.
func (m *Mirror) Target() ir.Watchable { return m.target }

// Source returns the mirror's own source tag.
func (m *Mirror) Source() string { return m.source }

// Applied returns the number of events applied successfully.
func (m *Mirror) Applied() int { return m.applied }

// OutOfSyncCount returns the number of events that could not be applied.
func (m *Mirror) OutOfSyncCount() int { return m.outOfSyncCount }

// IsDisposed reports whether Dispose has been called.
func (m *Mirror) IsDisposed() bool { return m.disposed }

// OnOutOfSync registers fn to be called with every event that could not be
// applied. Returns its disposer.
func (m *Mirror) OnOutOfSync(fn func(evt watch.RecursiveEvent, err error)) (dispose func()) {
	entry := &outOfSyncEntry{fn: fn}
	m.outOfSync = append(m.outOfSync, entry)
	return func() { entry.removed = true }
}

// HandleEvent applies evt to the node at evt.Path in the target, stamping
// the resulting event with source (or the mirror's own tag when empty).
//
// A path that does not resolve to an aggregate, or an operation the node at
// the path rejects, is reported to the OnOutOfSync callbacks and returned as
// ErrOutOfSync. A disposed mirror ignores events.
func (m *Mirror) HandleEvent(evt watch.RecursiveEvent, source string) error {
	if m.disposed {
		return nil
	}
	if source == "" {
		source = m.source
	}

	err := m.apply(evt, source)
	if err != nil {
		m.reportOutOfSync(evt, err)
		return err
	}
	m.applied++
	m.logger.Debug("mirror applied event",
		"event_type", string(evt.Type),
		"path", evt.Path.String(),
		"source", source,
	)
	return nil
}

// HandleEvents applies events in order inside one batch on the target's
// watcher. Failures do not stop the replay; they are joined and returned.
func (m *Mirror) HandleEvents(events []watch.RecursiveEvent, source string) (err error) {
	if m.disposed || len(events) == 0 {
		return nil
	}
	if w := m.reg.Get(m.target, false); w != nil {
		w.RequestQueueChanges()
		defer func() {
			err = errors.Join(err, w.RequestDequeueChanges())
		}()
	}

	var errs []error
	for i, evt := range events {
		if herr := m.HandleEvent(evt, source); herr != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, herr))
		}
	}
	return errors.Join(errs...)
}

// RecursiveListener returns a listener that normalizes each delivery and
// applies it. Install it on the source root's watcher:
//
//	w := reg.Watch(src)
//	w.AddRecursiveListener(m.RecursiveListener())
//
// Failures are logged; they are already reported to OnOutOfSync.
func (m *Mirror) RecursiveListener() watch.RecursiveListener {
	return func(_ ir.Watchable, evt watch.Event, reversePath ir.Path) {
		if err := m.HandleEvent(watch.Normalize(evt, reversePath), ""); err != nil {
			m.logger.Warn("mirror listener failed",
				"event_type", string(evt.Type),
				"error", err,
			)
		}
	}
}

// Dispose stops the mirror. Safe to call more than once.
func (m *Mirror) Dispose() {
	m.disposed = true
}

func (m *Mirror) reportOutOfSync(evt watch.RecursiveEvent, err error) {
	m.outOfSyncCount++
	m.logger.Warn("mirror out of sync",
		"event_type", string(evt.Type),
		"path", evt.Path.String(),
		"error", err,
	)
	for _, entry := range m.outOfSync {
		if !entry.removed {
			entry.fn(evt, err)
		}
	}
}

func (m *Mirror) apply(evt watch.RecursiveEvent, source string) error {
	node, ok := ir.Resolve(m.target, evt.Path)
	if !ok {
		return fmt.Errorf("%w: path %s does not resolve", ErrOutOfSync, evt.Path)
	}
	if _, ok := ir.AsWatchable(node); !ok {
		return fmt.Errorf("%w: path %s holds %s", ErrOutOfSync, evt.Path, ir.TypeName(node))
	}
	h := m.reg.Handle(node)
	opt := watch.WithSource(source)

	switch evt.Type {
	case watch.EventSet:
		v, err := ir.Clone(evt.Value)
		if err != nil {
			return fmt.Errorf("clone %s: %w", evt.Prop, err)
		}
		if !settable(node, evt.Prop) {
			return fmt.Errorf("%w: cannot set %q on %s", ErrOutOfSync, evt.Prop, ir.TypeName(node))
		}
		if m.mergeOnSet {
			h.SetOrMergeProp(evt.Prop, v, opt)
		} else {
			h.SetProp(evt.Prop, v, opt)
		}

	case watch.EventDelete:
		if !h.DeleteProp(evt.Prop, opt) {
			return fmt.Errorf("%w: no prop %q to delete", ErrOutOfSync, evt.Prop)
		}

	case watch.EventAryChange:
		values, err := ir.CloneValues(evt.Values)
		if err != nil {
			return err
		}
		if !h.ArySplice(evt.Index, evt.DeleteCount, values, opt) {
			return fmt.Errorf("%w: splice @%d -%d out of range", ErrOutOfSync, evt.Index, evt.DeleteCount)
		}

	case watch.EventAryMove:
		if !h.AryMove(evt.FromIndex, evt.ToIndex, evt.Count, opt) {
			return fmt.Errorf("%w: move %d->%d x%d out of range", ErrOutOfSync, evt.FromIndex, evt.ToIndex, evt.Count)
		}

	case watch.EventChange:
		h.TriggerChange(opt)

	case watch.EventLoad:
		h.TriggerLoad(evt.Prop, opt)

	case watch.EventCustom:
		v, err := ir.Clone(evt.EventValue)
		if err != nil {
			return fmt.Errorf("clone event value: %w", err)
		}
		h.TriggerEvent(evt.EventType, v, opt)

	default:
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
	return nil
}

// settable reports whether prop can be assigned on node: any key of an
// object, an in-range index of an array.
func settable(node ir.Value, prop string) bool {
	switch n := node.(type) {
	case *ir.Object:
		return true
	case *ir.Array:
		i, ok := ir.Prop(prop).AsIndex()
		return ok && i < n.Len()
	default:
		return false
	}
}
