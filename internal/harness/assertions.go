package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/objwatch/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion, root ir.Value) []string {
	errs := []string{}
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(root, a)
		case AssertMirrorInSync:
			err = assertMirrorInSync(result)
		case AssertBindingStats:
			err = assertBindingStats(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// forListener filters the trace to one listener; "" keeps everything.
func forListener(trace []TraceEvent, listener string) []TraceEvent {
	if listener == "" {
		return trace
	}
	out := []TraceEvent{}
	for _, e := range trace {
		if e.Listener == listener {
			out = append(out, e)
		}
	}
	return out
}

// assertTraceContains checks that a delivery matches the event type and
// every field the assertion sets.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	events := forListener(trace, a.Listener)
	for _, e := range events {
		if e.Type != a.EventType {
			continue
		}
		if a.Path != nil && e.Path != *a.Path {
			continue
		}
		if a.Prop != "" && e.Prop != a.Prop {
			continue
		}
		if a.Value != nil && !valuesEqual(a.Value, e.Value) {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s event%s", a.EventType, describeFilter(a)),
		Actual:   "not found in trace",
		Trace:    events,
	}
}

func describeFilter(a Assertion) string {
	var parts []string
	if a.Listener != "" {
		parts = append(parts, "listener="+a.Listener)
	}
	if a.Path != nil {
		parts = append(parts, fmt.Sprintf("path=%q", *a.Path))
	}
	if a.Prop != "" {
		parts = append(parts, "prop="+a.Prop)
	}
	if a.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", a.Value))
	}
	if len(parts) == 0 {
		return ""
	}
	return " with " + strings.Join(parts, " ")
}

// assertTraceOrder checks that the event types appear in order.
// Intervening deliveries are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	events := forListener(trace, a.Listener)
	next := 0
	for _, e := range events {
		if next < len(a.Types) && e.Type == a.Types[next] {
			next++
		}
	}
	if next == len(a.Types) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("event types in order: %v", a.Types),
		Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(a.Types), a.Types[next]),
		Trace:    events,
	}
}

// assertTraceCount checks the number of deliveries, optionally of one
// event type.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	events := forListener(trace, a.Listener)
	count := 0
	for _, e := range events {
		if a.EventType == "" || e.Type == a.EventType {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	what := "deliveries"
	if a.EventType != "" {
		what = a.EventType + " deliveries"
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Trace:    events,
	}
}

// assertFinalState checks the value at a path of the final root.
func assertFinalState(root ir.Value, a Assertion) error {
	path := *a.Path
	actual, ok := ir.Resolve(root, ir.ParsePath(path))
	if a.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%q absent", path),
				Actual:   fmt.Sprintf("%q = %v", path, plain(actual)),
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%q = %v", path, a.Value),
			Actual:   fmt.Sprintf("%q does not resolve", path),
		}
	}
	if !valuesEqual(a.Value, plain(actual)) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%q = %v", path, a.Value),
			Actual:   fmt.Sprintf("%q = %v", path, plain(actual)),
		}
	}
	return nil
}

func assertMirrorInSync(result *Result) error {
	m := result.Mirror
	if m == nil {
		return fmt.Errorf("scenario has no mirror")
	}
	if m.InSync && m.OutOfSync == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertMirrorInSync,
		Expected: fmt.Sprintf("mirror hash %s, 0 out of sync", result.StateHash),
		Actual:   fmt.Sprintf("mirror hash %s, %d out of sync", m.StateHash, m.OutOfSync),
	}
}

func assertBindingStats(result *Result, a Assertion) error {
	if result.Writes == a.Count && result.Rejected == a.Rejected {
		return nil
	}
	return &AssertionError{
		Type:     AssertBindingStats,
		Expected: fmt.Sprintf("%d writes, %d rejected", a.Count, a.Rejected),
		Actual:   fmt.Sprintf("%d writes, %d rejected", result.Writes, result.Rejected),
	}
}

// valuesEqual compares a YAML-decoded expectation with a plain value from
// the trace or state. Both sides go through ir.FromAny so int/int64 and
// map shapes line up.
func valuesEqual(expected, actual any) bool {
	ev, err := ir.FromAny(expected)
	if err != nil {
		return false
	}
	av, err := ir.FromAny(actual)
	if err != nil {
		return false
	}
	return ir.DeepEqual(ev, av)
}
