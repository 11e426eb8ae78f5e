package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/objwatch/internal/binding"
	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/mirror"
	"github.com/roach88/objwatch/internal/schema"
	"github.com/roach88/objwatch/internal/testutil"
	"github.com/roach88/objwatch/internal/watch"
)

// Hook is called with the scenario's registry and root.
type Hook func(ctx context.Context, reg *watch.Registry, root *ir.Object) error

// Check inspects a finished run and returns extra failure messages.
type Check func(scenario *Scenario, result *Result) []string

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	onRoot   Hook
	afterRun Hook
	checks   []Check
	maxDepth int
}

// WithLogger sets the logger handed to the registry, mirror and bindings.
// Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRootHook registers fn to run once the root (and mirror) exist, before
// listeners and bindings are installed.
func WithRootHook(fn Hook) Option {
	return func(c *runConfig) { c.onRoot = fn }
}

// WithAfterHook registers fn to run after the last step, before assertions.
func WithAfterHook(fn Hook) Option {
	return func(c *runConfig) { c.afterRun = fn }
}

// WithCheck adds fn to the checks run after the assertions.
func WithCheck(fn Check) Option {
	return func(c *runConfig) { c.checks = append(c.checks, fn) }
}

// WithMaxDepth bounds the registry's deep operations.
func WithMaxDepth(depth int) Option {
	return func(c *runConfig) { c.maxDepth = depth }
}

// Harness is the state of one scenario execution.
//
// Each run owns its registry, so runs on different goroutines are
// independent.
type Harness struct {
	reg      *watch.Registry
	root     *ir.Object
	clock    *watch.Clock
	logger   *slog.Logger
	result   *Result
	schemas  map[string]schema.Validator
	disposes map[string]func()
	bindings []*binding.Binding
	mirror   *mirror.Mirror
}

// Run executes a test scenario and returns the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext executes a test scenario and returns the result.
//
// Execution flow:
// 1. Build the root from Initial, and the mirror if requested
// 2. Install listeners, then bindings
// 3. Apply steps
// 4. Evaluate assertions, then any WithCheck checks
//
// An error means the scenario could not be executed (bad path, bad
// schema); failed expectations are reported in the result.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	regOpts := []watch.RegistryOption{watch.WithLogger(cfg.logger)}
	if cfg.maxDepth > 0 {
		regOpts = append(regOpts, watch.WithMaxDepth(cfg.maxDepth))
	}

	h := &Harness{
		reg:      watch.NewRegistry(regOpts...),
		clock:    watch.NewClock(),
		logger:   cfg.logger,
		result:   NewResult(),
		disposes: make(map[string]func()),
	}

	root, err := buildRoot(scenario.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial: %w", err)
	}
	h.root = root

	if err := h.loadSchemas(scenario); err != nil {
		return nil, err
	}

	if scenario.Mirror {
		if err := h.installMirror(); err != nil {
			return nil, err
		}
	}

	if cfg.onRoot != nil {
		if err := cfg.onRoot(ctx, h.reg, h.root); err != nil {
			return nil, fmt.Errorf("root hook: %w", err)
		}
	}

	for i, spec := range scenario.Listeners {
		if err := h.installListener(spec); err != nil {
			return nil, fmt.Errorf("listeners[%d]: %w", i, err)
		}
	}

	for i, spec := range scenario.Bindings {
		if err := h.installBinding(i, spec); err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.executeStep(i, step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	if cfg.afterRun != nil {
		if err := cfg.afterRun(ctx, h.reg, h.root); err != nil {
			return nil, fmt.Errorf("after hook: %w", err)
		}
	}

	if err := h.finish(); err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, h.root) {
		h.result.AddError(errMsg)
	}
	for _, check := range cfg.checks {
		for _, errMsg := range check(scenario, h.result) {
			h.result.AddError(errMsg)
		}
	}

	return h.result, nil
}

func buildRoot(initial map[string]any) (*ir.Object, error) {
	if initial == nil {
		return ir.NewObject(), nil
	}
	v, err := ir.FromAny(initial)
	if err != nil {
		return nil, err
	}
	return v.(*ir.Object), nil
}

func (h *Harness) loadSchemas(s *Scenario) error {
	h.schemas = make(map[string]schema.Validator)
	if s.SchemaDir != "" {
		set, err := schema.LoadDir(s.SchemaDir)
		if err != nil {
			return fmt.Errorf("schema_dir: %w", err)
		}
		for _, name := range set.Names() {
			sch, _ := set.Get(name)
			h.schemas[name] = sch
		}
	}
	for name, src := range s.Schemas {
		sch, err := schema.Compile(name, src)
		if err != nil {
			return fmt.Errorf("schemas: %w", err)
		}
		h.schemas[name] = sch
	}
	return nil
}

// installMirror replicates the root into a clone on a separate registry.
func (h *Harness) installMirror() error {
	clone, err := ir.Clone(h.root)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	h.mirror = mirror.New(clone.(*ir.Object),
		mirror.WithRegistry(watch.NewRegistry(watch.WithLogger(h.logger))),
		mirror.WithLogger(h.logger),
		mirror.WithSourceGenerator(testutil.NewFixedSource("mirror")),
	)
	h.reg.Watch(h.root).AddRecursiveListener(h.mirror.RecursiveListener())
	return nil
}

// resolveWatchable resolves a dotted path from the root to an object or
// array.
func (h *Harness) resolveWatchable(at string) (ir.Watchable, error) {
	v, ok := ir.Resolve(h.root, ir.ParsePath(at))
	if !ok {
		return nil, fmt.Errorf("path %q does not resolve", at)
	}
	w, ok := ir.AsWatchable(v)
	if !ok {
		return nil, fmt.Errorf("path %q is %s, not an object or array", at, ir.TypeName(v))
	}
	return w, nil
}

func (h *Harness) installListener(spec ListenerSpec) error {
	target, err := h.resolveWatchable(spec.At)
	if err != nil {
		return err
	}

	id := spec.ID
	pathFn := func(value ir.Value, evt *watch.Event, reversePath ir.Path) {
		if evt == nil {
			h.result.AddInitTrace(h.clock.Next(), id, value)
			return
		}
		h.result.AddTrace(h.clock.Next(), id, *evt, watch.ContainerPath(reversePath))
	}
	opts := watch.PathOptions{SkipInitCall: spec.SkipInit}

	switch spec.Kind {
	case ListenFlat:
		h.disposes[id] = h.reg.Watch(target).AddListener(func(_ ir.Watchable, evt watch.Event) {
			h.result.AddTrace(h.clock.Next(), id, evt, nil)
		})
	case ListenRecursive:
		h.disposes[id] = h.reg.Watch(target).AddRecursiveListener(func(_ ir.Watchable, evt watch.Event, reversePath ir.Path) {
			h.result.AddTrace(h.clock.Next(), id, evt, watch.ContainerPath(reversePath))
		})
	case ListenPath:
		h.disposes[id] = h.reg.WatchAtPath(target, ir.ParsePath(spec.Path), pathFn, opts).Dispose
	case ListenDeep:
		p := h.reg.Watch(target).WatchDeepPath(ir.ParsePath(spec.Path), pathFn, opts)
		h.disposes[id] = p.Dispose
	case ListenFilter:
		filter, err := buildFilter(spec.Filter)
		if err != nil {
			return err
		}
		h.disposes[id] = h.reg.WatchWithFilter(target, filter, pathFn, opts).Dispose
	default:
		return fmt.Errorf("unknown listener kind %q", spec.Kind)
	}
	return nil
}

// buildFilter converts a decoded YAML filter. The key "*" is watch.AnyKey.
func buildFilter(m map[string]any) (watch.Filter, error) {
	f := make(watch.Filter, len(m))
	for k, v := range m {
		key := k
		if key == "*" {
			key = watch.AnyKey
		}
		switch val := v.(type) {
		case bool:
			f[key] = watch.FilterBool(val)
		case string:
			if val != "*" {
				return nil, fmt.Errorf("filter %q: unsupported string %q", k, val)
			}
			f[key] = watch.Star
		case map[string]any:
			nested, err := buildFilter(val)
			if err != nil {
				return nil, err
			}
			f[key] = nested
		default:
			return nil, fmt.Errorf("filter %q: unsupported value %T", k, v)
		}
	}
	return f, nil
}

func (h *Harness) installBinding(index int, spec BindingSpec) error {
	opts := binding.Options{
		Src:             h.root,
		SrcPath:         spec.Src,
		Dest:            h.root,
		DestPath:        spec.Dest,
		TwoWay:          spec.TwoWay,
		MaxSetDepth:     spec.MaxSetDepth,
		SkipInit:        spec.SkipInit,
		Registry:        h.reg,
		Logger:          h.logger,
		SourceGenerator: testutil.NewFixedSource(fmt.Sprintf("binding-%d", index)),
	}
	if spec.Schema != "" {
		v, ok := h.schemas[spec.Schema]
		if !ok {
			return fmt.Errorf("unknown schema %q", spec.Schema)
		}
		opts.Validator = v
	}
	b, err := binding.New(opts)
	if err != nil {
		return err
	}
	h.bindings = append(h.bindings, b)
	return nil
}

// finish records the final state and the mirror report.
func (h *Harness) finish() error {
	state, err := ir.ToAny(h.root)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	h.result.State = state
	h.result.StateHash, err = ir.StateHash(h.root)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}

	for _, b := range h.bindings {
		h.result.Writes += b.Writes()
		h.result.Rejected += b.Rejected()
	}

	if h.mirror != nil {
		hash, err := ir.StateHash(h.mirror.Target())
		if err != nil {
			return fmt.Errorf("mirror state: %w", err)
		}
		h.result.Mirror = &MirrorReport{
			InSync:    hash == h.result.StateHash,
			Applied:   h.mirror.Applied(),
			OutOfSync: h.mirror.OutOfSyncCount(),
			StateHash: hash,
		}
	}
	return nil
}
