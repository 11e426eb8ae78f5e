// Package binding keeps a destination property in sync with a source path.
//
// A Binding installs a path listener on the source; whenever the value at
// the source path changes it is written to the destination property through
// the registry, so the destination's own watchers fire as usual. A two-way
// binding installs the symmetric listener on the destination.
//
// Feedback loops are cut in two places. Each binding counts its own
// writes in flight and ignores events that arrive while MaxSetDepth of them
// are on the stack, so a two-way binding does not echo its own write back.
// Separate bindings chain freely, but every binding write is stamped with
// one more hop than the event that caused it, and no binding reacts to an
// event that already carries MaxHops hops.
package binding

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/schema"
	"github.com/roach88/objwatch/internal/watch"
)

var (
	// ErrInvalidPath is returned for an empty source or destination path.
	ErrInvalidPath = errors.New("binding: invalid path")

	// ErrNilObject is returned when the source or destination is nil.
	ErrNilObject = errors.New("binding: nil object")
)

// DefaultMaxSetDepth is the default number of reentrant writes per binding.
const DefaultMaxSetDepth = 1

// MaxHops caps the binding writes a single change can set off across all
// bindings on a registry.
const MaxHops = 32

// Transform converts a value on its way across the binding.
type Transform func(v ir.Value) (ir.Value, error)

// Options configures a Binding.
type Options struct {
	// Src and SrcPath name the watched value. SrcPath is dotted; digit
	// segments are array indices.
	Src     ir.Watchable
	SrcPath string

	// Dest and DestPath name the written property. The last segment of
	// DestPath is the property; the rest locates its container.
	Dest     ir.Watchable
	DestPath string

	// TwoWay also writes destination changes back to the source.
	TwoWay bool

	// MaxSetDepth is how many of this binding's writes may be in flight at
	// once. Zero means DefaultMaxSetDepth.
	MaxSetDepth int

	// SkipInit skips the initial src -> dest write.
	SkipInit bool

	// Transform maps src values to dest values; ReverseTransform maps dest
	// values back for two-way bindings. nil is identity.
	Transform        Transform
	ReverseTransform Transform

	// Validator, if set, must accept a value before it is written to dest.
	// Rejected values are logged and skipped.
	Validator schema.Validator

	// Registry defaults to watch.Default.
	Registry *watch.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// SourceGenerator produces the tag stamped on binding writes.
	// Defaults to watch.UUIDv7Generator.
	SourceGenerator watch.SourceGenerator

	// Debug logs every write at debug level.
	Debug bool
}

// Binding is a live src -> dest (and optionally dest -> src) sync.
//
// Thread-safety: Binding is not safe for concurrent use; it runs on the
// goroutine that owns its registry.
type Binding struct {
	src      ir.Watchable
	dest     ir.Watchable
	srcPath  ir.Path
	destPath ir.Path
	twoWay   bool
	maxDepth int

	transform        Transform
	reverseTransform Transform
	validator        schema.Validator

	reg    *watch.Registry
	logger *slog.Logger
	source string
	debug  bool

	srcWatch  *watch.WatchedPath
	destWatch *watch.WatchedPath

	depth    int
	writes   int
	rejected int
	disposed bool
}

// New creates and installs a binding. Unless SkipInit is set the current
// source value is written to the destination before New returns.
func New(opts Options) (*Binding, error) {
	src, ok := ir.AsWatchable(opts.Src)
	if !ok {
		return nil, fmt.Errorf("src: %w", ErrNilObject)
	}
	dest, ok := ir.AsWatchable(opts.Dest)
	if !ok {
		return nil, fmt.Errorf("dest: %w", ErrNilObject)
	}
	srcPath := ir.ParsePath(opts.SrcPath)
	if len(srcPath) == 0 {
		return nil, fmt.Errorf("src path %q: %w", opts.SrcPath, ErrInvalidPath)
	}
	destPath := ir.ParsePath(opts.DestPath)
	if len(destPath) == 0 {
		return nil, fmt.Errorf("dest path %q: %w", opts.DestPath, ErrInvalidPath)
	}

	b := &Binding{
		src:              src,
		dest:             dest,
		srcPath:          srcPath,
		destPath:         destPath,
		twoWay:           opts.TwoWay,
		maxDepth:         opts.MaxSetDepth,
		transform:        opts.Transform,
		reverseTransform: opts.ReverseTransform,
		validator:        opts.Validator,
		reg:              opts.Registry,
		logger:           opts.Logger,
		debug:            opts.Debug,
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxSetDepth
	}
	if b.reg == nil {
		b.reg = watch.Default
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	gen := opts.SourceGenerator
	if gen == nil {
		gen = watch.UUIDv7Generator{}
	}
	b.source = gen.Generate()

	b.srcWatch = b.reg.WatchAtPath(src, srcPath, func(value ir.Value, evt *watch.Event, _ ir.Path) {
		b.carry(evt, value, b.dest, b.destPath, b.transform, b.validator, "src->dest")
	}, watch.PathOptions{SkipInitCall: opts.SkipInit})

	if b.twoWay {
		b.destWatch = b.reg.WatchAtPath(dest, destPath, func(value ir.Value, evt *watch.Event, _ ir.Path) {
			b.carry(evt, value, b.src, b.srcPath, b.reverseTransform, nil, "dest->src")
		}, watch.PathOptions{SkipInitCall: true})
	}
	return b, nil
}

// carry writes value to the property at path under root. evt is nil for the
// initial call.
func (b *Binding) carry(evt *watch.Event, value ir.Value, root ir.Watchable, path ir.Path, transform Transform, validator schema.Validator, direction string) {
	if b.disposed {
		return
	}
	hops := 0
	if evt != nil {
		hops = evt.Hops
	}
	if b.depth >= b.maxDepth {
		if b.debug {
			b.logger.Debug("binding write suppressed",
				"direction", direction,
				"depth", b.depth,
				"max_set_depth", b.maxDepth,
			)
		}
		return
	}
	if hops >= MaxHops {
		b.logger.Warn("binding chain stopped",
			"direction", direction,
			"hops", hops,
			"source", b.source,
		)
		return
	}

	if transform != nil {
		out, err := transform(value)
		if err != nil {
			b.rejected++
			b.logger.Warn("binding transform failed",
				"direction", direction,
				"error", err,
			)
			return
		}
		value = out
	}
	if validator != nil {
		if err := validator.Validate(value); err != nil {
			b.rejected++
			b.logger.Warn("binding value rejected",
				"direction", direction,
				"path", path.String(),
				"error", err,
			)
			return
		}
	}

	n := len(path)
	container, ok := ir.Resolve(root, path[:n-1])
	if !ok || !ir.IsAggregate(container) {
		if b.debug {
			b.logger.Debug("binding target missing",
				"direction", direction,
				"path", path.String(),
			)
		}
		return
	}
	prop := path[n-1].PropName()
	if b.debug {
		b.logger.Debug("binding write",
			"direction", direction,
			"path", path.String(),
			"hops", hops+1,
			"source", b.source,
		)
	}
	b.writes++
	b.depth++
	defer func() { b.depth-- }()
	b.reg.SetProp(container, prop, value, watch.WithSource(b.source), watch.WithHops(hops+1))
}

// Source returns the tag stamped on this binding's writes.
func (b *Binding) Source() string { return b.source }

// TwoWay reports whether the binding writes in both directions.
func (b *Binding) TwoWay() bool { return b.twoWay }

// Writes returns the number of writes performed.
func (b *Binding) Writes() int { return b.writes }

// Rejected returns the number of values dropped by a transform error or
// the validator.
func (b *Binding) Rejected() int { return b.rejected }

// IsDisposed reports whether Dispose has been called.
func (b *Binding) IsDisposed() bool { return b.disposed }

// Dispose removes both listeners and releases the watcher refs the binding
// holds. Safe to call more than once.
func (b *Binding) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.srcWatch.Dispose()
	b.destWatch.Dispose()
}
