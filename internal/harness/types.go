package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// TraceInit is the trace type of a path listener's initial call.
const TraceInit = "init"

// TraceEvent is one listener delivery, flattened for assertions and golden
// comparison. Values are deep copies taken at delivery time.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Listener string `json:"listener"`
	Type     string `json:"type"`

	// Path is the dotted forward path from the listener's object to the
	// mutated container. Empty for flat listeners and root mutations.
	Path string `json:"path,omitempty"`

	Prop        string `json:"prop,omitempty"`
	Value       any    `json:"value,omitempty"`
	Index       int    `json:"index,omitempty"`
	DeleteCount *int   `json:"delete_count,omitempty"`
	Values      []any  `json:"values,omitempty"`
	From        int    `json:"from,omitempty"`
	To          int    `json:"to,omitempty"`
	Count       int    `json:"count,omitempty"`
	EventType   string `json:"event_type,omitempty"`
	Source      string `json:"source,omitempty"`
	Hops        int    `json:"hops,omitempty"`
}

// String renders the delivery on one line, e.g.
// "[3] root set path=cart prop=total value=4".
func (e TraceEvent) String() string {
	parts := []string{fmt.Sprintf("[%d] %s %s", e.Seq, e.Listener, e.Type)}
	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}
	if e.Prop != "" {
		parts = append(parts, "prop="+e.Prop)
	}
	if e.EventType != "" {
		parts = append(parts, "event_type="+e.EventType)
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	switch e.Type {
	case string(watch.EventAryChange):
		parts = append(parts, fmt.Sprintf("index=%d", e.Index))
		if e.DeleteCount != nil {
			parts = append(parts, fmt.Sprintf("delete_count=%d", *e.DeleteCount))
		}
		parts = append(parts, fmt.Sprintf("values=%v", e.Values))
	case string(watch.EventAryMove):
		parts = append(parts, fmt.Sprintf("from=%d to=%d count=%d", e.From, e.To, e.Count))
	}
	return strings.Join(parts, " ")
}

// MirrorReport summarizes the mirror a scenario replicated into.
type MirrorReport struct {
	InSync    bool   `json:"in_sync"`
	Applied   int    `json:"applied"`
	OutOfSync int    `json:"out_of_sync"`
	StateHash string `json:"state_hash"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every step behaved as declared and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains every listener delivery in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final root graph as plain Go values.
	State any `json:"state"`

	// StateHash is ir.StateHash of the final root.
	StateHash string `json:"state_hash"`

	// Mirror is set when the scenario replicates into a mirror.
	Mirror *MirrorReport `json:"mirror,omitempty"`

	// Writes and Rejected total the scenario's binding counters.
	Writes   int `json:"binding_writes,omitempty"`
	Rejected int `json:"binding_rejected,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a delivery to the trace.
func (r *Result) AddTrace(seq int64, listener string, evt watch.Event, path ir.Path) {
	te := TraceEvent{
		Seq:      seq,
		Listener: listener,
		Type:     string(evt.Type),
		Path:     path.String(),
		Source:   evt.Source,
		Hops:     evt.Hops,
	}
	switch evt.Type {
	case watch.EventSet:
		te.Prop = evt.Prop
		te.Value = plain(evt.Value)
	case watch.EventDelete, watch.EventLoad:
		te.Prop = evt.Prop
	case watch.EventAryChange:
		te.Index = evt.Index
		if evt.HasDeleteCount {
			n := evt.DeleteCount
			te.DeleteCount = &n
		}
		for _, v := range evt.Values {
			te.Values = append(te.Values, plain(v))
		}
	case watch.EventAryMove:
		te.From = evt.FromIndex
		te.To = evt.ToIndex
		te.Count = evt.Count
	case watch.EventCustom:
		te.EventType = evt.EventType
		te.Value = plain(evt.EventValue)
	}
	r.Trace = append(r.Trace, te)
}

// AddInitTrace appends a path listener's initial call to the trace.
func (r *Result) AddInitTrace(seq int64, listener string, value ir.Value) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:      seq,
		Listener: listener,
		Type:     TraceInit,
		Value:    plain(value),
	})
}

// plain deep-copies v into plain Go values. Unconvertible (cyclic) values
// are rendered as their type name.
func plain(v ir.Value) any {
	if v == nil {
		return nil
	}
	out, err := ir.ToAny(v)
	if err != nil {
		return "<" + ir.TypeName(v) + ">"
	}
	return out
}
