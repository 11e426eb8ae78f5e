// Package harness runs YAML scenarios against the watch engine and checks
// the resulting delivery trace.
//
// A scenario builds a root object, installs listeners and bindings on it,
// applies mutations through the registry and then evaluates assertions
// over the trace and the final state.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	initial:
//	  cart: {items: [{price: 1}]}
//	mirror: true
//	schemas:
//	  count: "int & >=0"
//	listeners:
//	  - id: root
//	    kind: recursive
//	  - id: prices
//	    kind: filter
//	    filter: {cart: {items: {"*": {price: true}}}}
//	bindings:
//	  - src: a
//	    dest: b
//	    two_way: true
//	steps:
//	  - op: set
//	    at: cart.items.0
//	    prop: price
//	    value: 2
//	  - op: push
//	    at: cart.items
//	    values: [{price: 3}]
//	assertions:
//	  - type: trace_contains
//	    listener: prices
//	    event_type: set
//	  - type: final_state
//	    path: cart.items.1.price
//	    value: 3
//
// # Listener Kinds
//
//   - flat: events on the target only
//   - recursive: events on the target and everything below it
//   - path: a value at an exact path below the target
//   - deep: a path and everything below it
//   - filter: a filter tree over the target
//
// # Assertion Types
//
//   - trace_contains: a delivery with the given type and fields exists
//   - trace_order: event types appear in order, gaps allowed
//   - trace_count: exactly N deliveries, optionally of one type
//   - final_state: the value at a path, or its absence
//   - mirror_in_sync: the mirror replica hashes equal to the root
//   - binding_stats: total binding writes and rejections
//
// # Deterministic Testing
//
// Every run owns its registry and a logical clock that stamps trace
// entries, and binding and mirror writes carry fixed sources. Two runs of
// the same scenario produce identical traces, so a run can be compared
// against a golden file with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/array_ops.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
//
// Whole directories run through DiscoverScenarios and RunSuite.
package harness
