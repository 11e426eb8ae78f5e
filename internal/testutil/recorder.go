// Package testutil holds helpers shared by package tests: an event recorder
// and a fixed source generator.
package testutil

import (
	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// Recorder collects events delivered to the listeners it hands out.
//
// Recursive deliveries are stored normalized (path qualified, cloned), so
// they can be replayed onto a mirror after the fact.
type Recorder struct {
	flat      []watch.Event
	recursive []watch.RecursiveEvent
	reverse   []ir.Path
	values    []ir.Value
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Listener returns a flat listener that records into r.
func (r *Recorder) Listener() watch.Listener {
	return func(_ ir.Watchable, evt watch.Event) {
		r.flat = append(r.flat, evt.Clone())
	}
}

// RecursiveListener returns a recursive listener that records into r.
func (r *Recorder) RecursiveListener() watch.RecursiveListener {
	return func(_ ir.Watchable, evt watch.Event, reversePath ir.Path) {
		r.recursive = append(r.recursive, watch.Normalize(evt, reversePath))
		r.reverse = append(r.reverse, reversePath.Clone())
	}
}

// PathListener returns a path listener that records the values it is handed.
// Initial calls (nil event) are recorded too.
func (r *Recorder) PathListener() watch.PathListener {
	return func(value ir.Value, evt *watch.Event, reversePath ir.Path) {
		r.values = append(r.values, value)
		if evt == nil {
			return
		}
		r.recursive = append(r.recursive, watch.Normalize(*evt, reversePath))
		r.reverse = append(r.reverse, reversePath.Clone())
	}
}

// Events returns the flat events in delivery order.
func (r *Recorder) Events() []watch.Event {
	return r.flat
}

// RecursiveEvents returns the normalized recursive events in delivery order.
func (r *Recorder) RecursiveEvents() []watch.RecursiveEvent {
	return r.recursive
}

// ReversePaths returns the raw reverse paths of recursive deliveries.
func (r *Recorder) ReversePaths() []ir.Path {
	return r.reverse
}

// Values returns the values handed to path listeners.
func (r *Recorder) Values() []ir.Value {
	return r.values
}

// Types returns the flat event types, then the recursive ones if no flat
// events were recorded.
func (r *Recorder) Types() []watch.EventType {
	var out []watch.EventType
	for _, e := range r.flat {
		out = append(out, e.Type)
	}
	if len(out) > 0 {
		return out
	}
	for _, e := range r.recursive {
		out = append(out, e.Type)
	}
	return out
}

// Len returns the number of flat plus recursive deliveries.
func (r *Recorder) Len() int {
	return len(r.flat) + len(r.recursive)
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.flat = nil
	r.recursive = nil
	r.reverse = nil
	r.values = nil
}
