// Package schema compiles CUE constraints into value validators.
//
// Bindings use a Validator to refuse writes whose value does not fit the
// destination, e.g. `int & >=0` or `{title: string, done: bool}`. Values are
// handed to CUE as JSON, which CUE reads natively.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/objwatch/internal/ir"
)

// Validator checks a value before it is written.
type Validator interface {
	Validate(v ir.Value) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(v ir.Value) error

// Validate calls f(v).
func (f ValidatorFunc) Validate(v ir.Value) error { return f(v) }

// Error reports a CUE compile or validation failure, with the source
// position when CUE provides one.
type Error struct {
	Schema  string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Schema, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Schema, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(name string, err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Schema: name, Message: err.Error()}
	}
	first := errs[0]
	out := &Error{Schema: name, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}

// Schema is a compiled CUE constraint.
//
// Thread-safety: a Schema is not safe for concurrent use; CUE values share
// their context.
type Schema struct {
	name  string
	ctx   *cue.Context
	value cue.Value
}

var _ Validator = (*Schema)(nil)

// Compile compiles a CUE expression such as `int & >=0` into a Schema.
func Compile(name, src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}
	return &Schema{name: name, ctx: ctx, value: v}, nil
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// Validate unifies v with the schema and requires a concrete result.
// A nil value (absent) is rejected.
func (s *Schema) Validate(v ir.Value) error {
	if v == nil {
		return &Error{Schema: s.name, Message: "value is undefined"}
	}
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Errorf("schema %s: %w", s.name, err)
	}
	dv := s.ctx.CompileBytes(data, cue.Filename(s.name+".json"))
	if err := dv.Err(); err != nil {
		return formatCUEError(s.name, err)
	}
	u := s.value.Unify(dv)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(s.name, err)
	}
	return nil
}

// Set is a collection of named schemas loaded from a CUE package.
type Set struct {
	schemas map[string]*Schema
}

// Get returns the named schema.
func (s *Set) Get(name string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	sch, ok := s.schemas[name]
	return sch, ok
}

// Names returns the schema names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.schemas))
	for name := range s.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDir loads the CUE package in dir and returns every field of its
// top-level `schema` struct as a named Schema:
//
//	schema: {
//		count: int & >=0
//		todo:  {title: string, done: bool}
//	}
func LoadDir(dir string) (*Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema dir: not a directory: %s", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("schema dir: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("schema dir: no CUE files in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("schema dir: no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(dir, inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(dir, err)
	}

	set := &Set{schemas: make(map[string]*Schema)}
	root := value.LookupPath(cue.ParsePath("schema"))
	if !root.Exists() {
		return set, nil
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(dir, err)
	}
	for iter.Next() {
		name := iter.Label()
		set.schemas[name] = &Schema{name: name, ctx: ctx, value: iter.Value()}
	}
	return set, nil
}
