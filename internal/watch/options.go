package watch

import (
	"log/slog"

	"github.com/roach88/objwatch/internal/ir"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for listener failures and debug output.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithListenerErrorHandler installs a callback that receives a
// *ListenerError whenever a listener panics. The panic is logged either way.
func WithListenerErrorHandler(fn func(error)) RegistryOption {
	return func(r *Registry) {
		r.onListenerError = fn
	}
}

// WithMaxDepth bounds how deep MergeObj and MergeKeepObj recurse.
//
// Default: ir.MaxDepth
func WithMaxDepth(depth int) RegistryOption {
	return func(r *Registry) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// MutationOption tags a single mutation.
type MutationOption func(*mutation)

type mutation struct {
	source string
	hops   int
}

// WithSource stamps the resulting event's Source.
func WithSource(source string) MutationOption {
	return func(m *mutation) {
		m.source = source
	}
}

// WithHops stamps the resulting event's Hops. Bindings use it to count how
// many writes deep a change has travelled.
func WithHops(hops int) MutationOption {
	return func(m *mutation) {
		m.hops = hops
	}
}

func applyMutationOptions(opts []MutationOption) mutation {
	var m mutation
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m mutation) stamp(evt Event) Event {
	evt.Source = m.source
	evt.Hops = m.hops
	return evt
}

// PathOptions configures path and filter listeners.
type PathOptions struct {
	// Deep also matches events below the subscribed path.
	Deep bool

	// SkipInitCall suppresses the immediate call WatchPath and friends make
	// with the current value.
	SkipInitCall bool

	// Debug logs every match at debug level.
	Debug bool
}

// Listener receives every event on the object it was added to.
type Listener func(obj ir.Watchable, evt Event)

// RecursiveListener receives every event in the subtree of the object it was
// added to. root is that object; reversePath runs from the mutated container's
// segment up to root. reversePath is reused between calls: Clone it to retain it.
type RecursiveListener func(root ir.Watchable, evt Event, reversePath ir.Path)

// PathListener receives the current value at a subscribed path. evt and
// reversePath are nil for the initial call.
type PathListener func(value ir.Value, evt *Event, reversePath ir.Path)
