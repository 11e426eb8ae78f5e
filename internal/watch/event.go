package watch

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/objwatch/internal/ir"
)

// EventType identifies the kind of a watch event.
type EventType string

const (
	EventSet       EventType = "set"
	EventDelete    EventType = "delete"
	EventAryChange EventType = "aryChange"
	EventAryMove   EventType = "aryMove"
	EventCustom    EventType = "event"
	EventChange    EventType = "change"
	EventLoad      EventType = "load"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventSet, EventDelete, EventAryChange, EventAryMove, EventCustom, EventChange, EventLoad:
		return true
	default:
		return false
	}
}

// Event describes one change to a watched object. Which fields are meaningful
// depends on Type:
//
//	set        Prop, Value
//	delete     Prop
//	aryChange  Index, DeleteCount (if HasDeleteCount), Values
//	aryMove    FromIndex, ToIndex, Count
//	event      EventType, EventValue
//	change     (none)
//	load       Prop (optional, "" means none)
//
// Source and Hops ride along on every kind.
type Event struct {
	Type EventType

	Prop  string
	Value ir.Value

	Index          int
	DeleteCount    int
	HasDeleteCount bool
	Values         []ir.Value

	FromIndex int
	ToIndex   int
	Count     int

	EventType  string
	EventValue ir.Value

	// Source is an opaque tag identifying who caused the event. Mirrors and
	// bindings use it to recognize their own echoes.
	Source string

	// Hops counts how many binding writes deep this event is. Direct
	// mutations are 0.
	Hops int
}

// Clone returns a copy of the event record. The Values slice is copied;
// payload aggregates keep their identity.
func (e Event) Clone() Event {
	e.Values = slices.Clone(e.Values)
	return e
}

// DeepClone is Clone with the payload (Value, Values, EventValue) deep
// copied, so later mutations of those aggregates do not show through.
// Returns ir.ErrTooDeep for cyclic payloads.
func (e Event) DeepClone() (Event, error) {
	var err error
	if e.Value, err = ir.Clone(e.Value); err != nil {
		return Event{}, fmt.Errorf("value: %w", err)
	}
	if e.Values, err = ir.CloneValues(e.Values); err != nil {
		return Event{}, err
	}
	if e.EventValue, err = ir.Clone(e.EventValue); err != nil {
		return Event{}, fmt.Errorf("eventValue: %w", err)
	}
	return e, nil
}

// IsValueChange reports whether the event changes data (set, delete,
// change, aryChange, aryMove) as opposed to signalling (event, load).
func (e Event) IsValueChange() bool {
	switch e.Type {
	case EventSet, EventDelete, EventChange, EventAryChange, EventAryMove:
		return true
	default:
		return false
	}
}

// Segment returns the path segment the event starts with at the mutated
// object.
func (e Event) Segment() ir.Key {
	switch e.Type {
	case EventSet, EventDelete:
		return ir.Prop(e.Prop)
	case EventAryChange:
		return ir.Index(e.Index)
	case EventAryMove:
		return ir.Index(e.ToIndex)
	case EventLoad:
		if e.Prop != "" {
			return ir.Prop(e.Prop)
		}
		return ir.NoKey
	default:
		return ir.NoKey
	}
}

// String renders a compact single-line description.
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	switch e.Type {
	case EventSet:
		fmt.Fprintf(&b, " %s=%s", e.Prop, valueString(e.Value))
	case EventDelete:
		fmt.Fprintf(&b, " %s", e.Prop)
	case EventAryChange:
		fmt.Fprintf(&b, " @%d", e.Index)
		if e.HasDeleteCount {
			fmt.Fprintf(&b, " -%d", e.DeleteCount)
		}
		if e.Values != nil {
			fmt.Fprintf(&b, " +%s", valueString(ir.NewArray(e.Values...)))
		}
	case EventAryMove:
		fmt.Fprintf(&b, " %d->%d x%d", e.FromIndex, e.ToIndex, e.Count)
	case EventCustom:
		fmt.Fprintf(&b, " %s", e.EventType)
		if e.EventValue != nil {
			fmt.Fprintf(&b, " %s", valueString(e.EventValue))
		}
	case EventLoad:
		if e.Prop != "" {
			fmt.Fprintf(&b, " %s", e.Prop)
		}
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " (source=%s)", e.Source)
	}
	return b.String()
}

func valueString(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return "<" + ir.TypeName(v) + ">"
	}
	return string(data)
}

// ToValue encodes the event as an object with only the fields its type
// uses. Hops is internal to propagation and is not encoded.
func (e Event) ToValue() *ir.Object {
	obj := ir.NewObject(ir.O("type", ir.String(e.Type)))
	switch e.Type {
	case EventSet:
		obj.Set("prop", ir.String(e.Prop))
		obj.Set("value", orNull(e.Value))
	case EventDelete:
		obj.Set("prop", ir.String(e.Prop))
	case EventAryChange:
		obj.Set("index", ir.Int(e.Index))
		if e.HasDeleteCount {
			obj.Set("deleteCount", ir.Int(e.DeleteCount))
		}
		if e.Values != nil {
			obj.Set("values", ir.NewArray(e.Values...))
		}
	case EventAryMove:
		obj.Set("fromIndex", ir.Int(e.FromIndex))
		obj.Set("toIndex", ir.Int(e.ToIndex))
		obj.Set("count", ir.Int(e.Count))
	case EventCustom:
		obj.Set("eventType", ir.String(e.EventType))
		if e.EventValue != nil {
			obj.Set("eventValue", e.EventValue)
		}
	case EventLoad:
		if e.Prop != "" {
			obj.Set("prop", ir.String(e.Prop))
		}
	}
	if e.Source != "" {
		obj.Set("source", ir.String(e.Source))
	}
	return obj
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}

// EventFromValue decodes an object produced by ToValue.
func EventFromValue(v ir.Value) (Event, error) {
	obj, ok := v.(*ir.Object)
	if !ok || obj == nil {
		return Event{}, fmt.Errorf("event must be an object, got %s", ir.TypeName(v))
	}
	typ, ok := obj.Get("type").(ir.String)
	if !ok || !EventType(typ).Valid() {
		return Event{}, fmt.Errorf("event has invalid type %v", obj.Get("type"))
	}
	evt := Event{Type: EventType(typ)}
	var err error
	str := func(key string) string {
		if err != nil {
			return ""
		}
		raw, present := obj.Lookup(key)
		if !present {
			return ""
		}
		s, isStr := raw.(ir.String)
		if !isStr {
			err = fmt.Errorf("event field %q must be a string, got %s", key, ir.TypeName(raw))
		}
		return string(s)
	}
	num := func(key string) (int, bool) {
		if err != nil {
			return 0, false
		}
		raw, present := obj.Lookup(key)
		if !present {
			return 0, false
		}
		n, isInt := raw.(ir.Int)
		if !isInt {
			err = fmt.Errorf("event field %q must be an integer, got %s", key, ir.TypeName(raw))
		}
		return int(n), true
	}

	evt.Source = str("source")
	switch evt.Type {
	case EventSet:
		evt.Prop = str("prop")
		evt.Value = obj.Get("value")
	case EventDelete, EventLoad:
		evt.Prop = str("prop")
	case EventAryChange:
		evt.Index, _ = num("index")
		evt.DeleteCount, evt.HasDeleteCount = num("deleteCount")
		if raw, present := obj.Lookup("values"); present {
			arr, isArr := raw.(*ir.Array)
			if !isArr {
				return Event{}, fmt.Errorf("event field \"values\" must be an array, got %s", ir.TypeName(raw))
			}
			evt.Values = arr.Items()
			if evt.Values == nil {
				evt.Values = []ir.Value{}
			}
		}
	case EventAryMove:
		evt.FromIndex, _ = num("fromIndex")
		evt.ToIndex, _ = num("toIndex")
		evt.Count, _ = num("count")
	case EventCustom:
		evt.EventType = str("eventType")
		evt.EventValue = obj.Get("eventValue")
	}
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// RecursiveEvent is an Event qualified with the forward path from the
// receiving root to the mutated container. Path is empty when the mutated
// container is the root itself.
type RecursiveEvent struct {
	Event
	Path ir.Path
}

// Normalize turns a recursive listener's (event, reversePath) into a
// RecursiveEvent: the initiating segment is dropped and the rest reversed.
// The payload is deep-cloned so the result records the value as it was
// when the event fired and may be retained or replayed later. A cyclic
// payload cannot be cloned and keeps its identity.
func Normalize(evt Event, reversePath ir.Path) RecursiveEvent {
	out, err := evt.DeepClone()
	if err != nil {
		out = evt.Clone()
	}
	return RecursiveEvent{Event: out, Path: ContainerPath(reversePath)}
}

// ContainerPath drops the initiating segment of a reverse path and returns
// the rest in root-to-container order. The result is never nil.
func ContainerPath(reversePath ir.Path) ir.Path {
	if len(reversePath) > 1 {
		return reversePath[1:].Reverse()
	}
	return ir.Path{}
}

// ToValue encodes the event with its path under "path".
func (e RecursiveEvent) ToValue() *ir.Object {
	obj := e.Event.ToValue()
	items := make([]ir.Value, len(e.Path))
	for i, k := range e.Path {
		switch k.Kind() {
		case ir.KeyIndex:
			idx, _ := k.AsIndex()
			items[i] = ir.Int(idx)
		case ir.KeyProp:
			items[i] = ir.String(k.PropName())
		default:
			items[i] = ir.Null{}
		}
	}
	obj.Set("path", ir.NewArray(items...))
	return obj
}

// RecursiveEventFromValue decodes an object produced by RecursiveEvent.ToValue.
func RecursiveEventFromValue(v ir.Value) (RecursiveEvent, error) {
	evt, err := EventFromValue(v)
	if err != nil {
		return RecursiveEvent{}, err
	}
	out := RecursiveEvent{Event: evt, Path: ir.Path{}}
	raw, present := v.(*ir.Object).Lookup("path")
	if !present {
		return out, nil
	}
	arr, ok := raw.(*ir.Array)
	if !ok {
		return RecursiveEvent{}, fmt.Errorf("event path must be an array, got %s", ir.TypeName(raw))
	}
	for i, item := range arr.Items() {
		switch k := item.(type) {
		case ir.String:
			out.Path = append(out.Path, ir.Prop(string(k)))
		case ir.Int:
			out.Path = append(out.Path, ir.Index(int(k)))
		case ir.Null, nil:
			out.Path = append(out.Path, ir.NoKey)
		default:
			return RecursiveEvent{}, fmt.Errorf("event path[%d]: unsupported key %s", i, ir.TypeName(item))
		}
	}
	return out, nil
}
