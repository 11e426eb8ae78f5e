package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives a watched graph through a list of mutations and asserts
// on the deliveries and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the root object. Nested maps and lists become objects and
	// arrays. Omitted means an empty object.
	Initial map[string]any `yaml:"initial,omitempty"`

	// Mirror replicates every root event into a clone of Initial. The
	// mirror_in_sync assertion compares the two at the end.
	Mirror bool `yaml:"mirror,omitempty"`

	// Schemas are named CUE constraints bindings can reference.
	Schemas map[string]string `yaml:"schemas,omitempty"`

	// SchemaDir is a CUE package whose `schema` struct adds more named
	// constraints. Relative to the scenario file.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// Listeners are installed before bindings, in order.
	Listeners []ListenerSpec `yaml:"listeners,omitempty"`

	// Bindings are installed after listeners, in order.
	Bindings []BindingSpec `yaml:"bindings,omitempty"`

	// Steps are the mutations, applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Listener kinds.
const (
	ListenFlat      = "flat"
	ListenRecursive = "recursive"
	ListenPath      = "path"
	ListenDeep      = "deep"
	ListenFilter    = "filter"
)

// ListenerSpec declares a traced listener.
type ListenerSpec struct {
	// ID names the listener in the trace and in assertions.
	ID string `yaml:"id"`

	// Kind is one of flat, recursive, path, deep, filter.
	Kind string `yaml:"kind"`

	// At is the dotted path from the root to the object the listener is
	// installed on. Empty is the root.
	At string `yaml:"at,omitempty"`

	// Path is the subscribed path for path and deep listeners, relative to
	// At.
	Path string `yaml:"path,omitempty"`

	// Filter is the filter for filter listeners: true, false, "*" or a
	// nested map. The key "*" matches any key.
	Filter map[string]any `yaml:"filter,omitempty"`

	// SkipInit suppresses the initial call of path and deep listeners.
	SkipInit bool `yaml:"skip_init,omitempty"`
}

// BindingSpec declares a binding between two paths of the root.
type BindingSpec struct {
	Src         string `yaml:"src"`
	Dest        string `yaml:"dest"`
	TwoWay      bool   `yaml:"two_way,omitempty"`
	MaxSetDepth int    `yaml:"max_set_depth,omitempty"`
	SkipInit    bool   `yaml:"skip_init,omitempty"`

	// Schema names an entry of Scenario.Schemas or the schema dir that
	// forward writes must satisfy.
	Schema string `yaml:"schema,omitempty"`
}

// Step operations.
const (
	OpSet         = "set"
	OpSetOrMerge  = "set_or_merge"
	OpToggle      = "toggle"
	OpSetOrDelete = "set_or_delete_falsy"
	OpDelete      = "delete"
	OpDeleteAll   = "delete_all"
	OpPush        = "push"
	OpInsert      = "insert"
	OpSplice      = "splice"
	OpRemove      = "remove"
	OpRemoveAt    = "remove_at"
	OpMove        = "move"
	OpChange      = "change"
	OpEvent       = "event"
	OpLoad        = "load"
	OpMerge       = "merge"
	OpMergeKeep   = "merge_keep"
	OpQueue       = "queue"
	OpDequeue     = "dequeue"
	OpUnlisten    = "unlisten"
	OpUnbind      = "unbind"
)

// Step is one mutation.
type Step struct {
	Op string `yaml:"op"`

	// At is the dotted path from the root to the target object.
	At string `yaml:"at,omitempty"`

	Prop        string `yaml:"prop,omitempty"`
	Value       any    `yaml:"value,omitempty"`
	Values      []any  `yaml:"values,omitempty"`
	Index       int    `yaml:"index,omitempty"`
	DeleteCount *int   `yaml:"delete_count,omitempty"`
	From        int    `yaml:"from,omitempty"`
	To          int    `yaml:"to,omitempty"`
	Count       int    `yaml:"count,omitempty"`

	// Event is the custom event type for the event op.
	Event string `yaml:"event,omitempty"`

	// Listener is the listener ID for unlisten; Binding is the binding
	// index for unbind.
	Listener string `yaml:"listener,omitempty"`
	Binding  int    `yaml:"binding,omitempty"`

	// Noop declares that the operation is expected to be rejected
	// (out-of-range index, absent prop).
	Noop bool `yaml:"noop,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertMirrorInSync  = "mirror_in_sync"
	AssertBindingStats  = "binding_stats"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Listener restricts trace assertions to one listener.
	Listener string `yaml:"listener,omitempty"`

	// EventType restricts trace_contains and trace_count.
	EventType string `yaml:"event_type,omitempty"`

	// Path is the event path for trace_contains or the state path for
	// final_state. nil matches any event path.
	Path *string `yaml:"path,omitempty"`

	// Prop restricts trace_contains.
	Prop string `yaml:"prop,omitempty"`

	// Value is the expected event value (trace_contains) or state value
	// (final_state).
	Value any `yaml:"value,omitempty"`

	// Absent asserts final_state path does not resolve.
	Absent bool `yaml:"absent,omitempty"`

	// Count is the expected number of matching deliveries (trace_count),
	// or binding writes (binding_stats).
	Count int `yaml:"count,omitempty"`

	// Rejected is the expected number of rejected binding writes.
	Rejected int `yaml:"rejected,omitempty"`

	// Types is the expected order of event types (trace_order).
	Types []string `yaml:"types,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// SchemaDir is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SchemaDir != "" && !filepath.IsAbs(scenario.SchemaDir) {
		scenario.SchemaDir = filepath.Join(filepath.Dir(path), scenario.SchemaDir)
	}
	if scenario.SchemaDir != "" {
		if _, err := os.Stat(scenario.SchemaDir); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema_dir: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	ids := make(map[string]bool)
	for i, l := range s.Listeners {
		if l.ID == "" {
			return fmt.Errorf("listeners[%d]: id is required", i)
		}
		if ids[l.ID] {
			return fmt.Errorf("listeners[%d]: duplicate id %q", i, l.ID)
		}
		ids[l.ID] = true
		switch l.Kind {
		case ListenFlat, ListenRecursive, ListenDeep:
		case ListenPath:
			if l.Path == "" {
				return fmt.Errorf("listeners[%d]: path is required for path listeners", i)
			}
		case ListenFilter:
			if len(l.Filter) == 0 {
				return fmt.Errorf("listeners[%d]: filter is required for filter listeners", i)
			}
		default:
			return fmt.Errorf("listeners[%d]: unknown kind %q", i, l.Kind)
		}
	}

	for i, b := range s.Bindings {
		if b.Src == "" || b.Dest == "" {
			return fmt.Errorf("bindings[%d]: src and dest are required", i)
		}
		if b.MaxSetDepth < 0 {
			return fmt.Errorf("bindings[%d]: max_set_depth must be non-negative", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, ids, len(s.Bindings)); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, ids); err != nil {
			return err
		}
		if assertion.Type == AssertMirrorInSync && !s.Mirror {
			return fmt.Errorf("assertions[%d]: mirror_in_sync requires mirror: true", i)
		}
	}

	return nil
}

func validateStep(index int, s *Step, listeners map[string]bool, bindings int) error {
	switch s.Op {
	case OpSet, OpSetOrMerge, OpToggle, OpSetOrDelete, OpDelete, OpLoad:
		if s.Prop == "" && s.Op != OpLoad {
			return fmt.Errorf("steps[%d]: prop is required for %s", index, s.Op)
		}
	case OpMerge, OpMergeKeep:
		if _, ok := s.Value.(map[string]any); !ok {
			return fmt.Errorf("steps[%d]: value must be a map for %s", index, s.Op)
		}
	case OpEvent:
		if s.Event == "" {
			return fmt.Errorf("steps[%d]: event is required for event", index)
		}
	case OpUnlisten:
		if !listeners[s.Listener] {
			return fmt.Errorf("steps[%d]: unknown listener %q", index, s.Listener)
		}
	case OpUnbind:
		if s.Binding < 0 || s.Binding >= bindings {
			return fmt.Errorf("steps[%d]: binding index %d out of range", index, s.Binding)
		}
	case OpDeleteAll, OpPush, OpInsert, OpSplice, OpRemove, OpRemoveAt, OpMove,
		OpChange, OpQueue, OpDequeue:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, listeners map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Listener != "" && !listeners[a.Listener] {
		return fmt.Errorf("assertions[%d]: unknown listener %q", index, a.Listener)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Types) == 0 {
			return fmt.Errorf("assertions[%d]: types list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Path == nil {
			return fmt.Errorf("assertions[%d]: path is required for final_state", index)
		}
	case AssertMirrorInSync, AssertBindingStats:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
