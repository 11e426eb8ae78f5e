package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/objwatch/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        any
	StateHash    string
	Mirror       *MirrorReport
}

// NewTraceSnapshot builds the snapshot of a run.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
		StateHash:    result.StateHash,
		Mirror:       result.Mirror,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR values.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":      event.Seq,
			"listener": event.Listener,
			"type":     event.Type,
		}
		if event.Path != "" {
			eventMap["path"] = event.Path
		}
		if event.Prop != "" {
			eventMap["prop"] = event.Prop
		}
		if event.Value != nil {
			eventMap["value"] = event.Value
		}
		if event.Index != 0 {
			eventMap["index"] = event.Index
		}
		if event.DeleteCount != nil {
			eventMap["delete_count"] = *event.DeleteCount
		}
		if len(event.Values) > 0 {
			eventMap["values"] = event.Values
		}
		if event.From != 0 || event.To != 0 || event.Count != 0 {
			eventMap["from"] = event.From
			eventMap["to"] = event.To
			eventMap["count"] = event.Count
		}
		if event.EventType != "" {
			eventMap["event_type"] = event.EventType
		}
		if event.Source != "" {
			eventMap["source"] = event.Source
		}
		if event.Hops != 0 {
			eventMap["hops"] = event.Hops
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"state":         s.State,
		"state_hash":    s.StateHash,
	}
	if s.Mirror != nil {
		result["mirror"] = map[string]any{
			"in_sync":     s.Mirror.InSync,
			"applied":     s.Mirror.Applied,
			"out_of_sync": s.Mirror.OutOfSync,
		}
	}
	return result
}

// MarshalCanonical renders the snapshot as RFC 8785 canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	v, err := ir.FromAny(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
