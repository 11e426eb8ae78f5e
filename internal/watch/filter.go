package watch

import "github.com/roach88/objwatch/internal/ir"

// AnyKey is the filter key that matches any property or index not listed
// explicitly.
const AnyKey = ""

// explicitMatchDepth bounds ExplicitFilterMatch on cyclic values.
const explicitMatchDepth = 100

// FilterValue is what a Filter maps a key to: Accept, Reject, Star, a
// nested Filter, or a FilterFunc.
type FilterValue interface {
	filterValue()
}

// FilterBool accepts (true) or rejects (false) at its level.
type FilterBool bool

func (FilterBool) filterValue() {}

const (
	Accept FilterBool = true
	Reject FilterBool = false
)

type filterStar struct{}

func (filterStar) filterValue() {}

// Star accepts the key and everything below it.
var Star FilterValue = filterStar{}

// Filter is a declarative description of the paths a listener cares about.
// Keys are property names (indices in decimal) or AnyKey.
//
//	watch.Filter{
//		"items": watch.Filter{watch.AnyKey: watch.Filter{"price": watch.Accept}},
//		"title": watch.Star,
//	}
type Filter map[string]FilterValue

func (Filter) filterValue() {}

// FilterFunc decides dynamically. It receives the container at its level
// and the key being matched, and returns the FilterValue to apply; nil
// rejects.
type FilterFunc func(container ir.Value, key ir.Key) FilterValue

func (FilterFunc) filterValue() {}

func (f Filter) lookup(key ir.Key) FilterValue {
	if v, ok := f[key.PropName()]; ok && !key.IsNone() {
		return v
	}
	return f[AnyKey]
}

// matchFilter walks a forward event path against f from the root.
// A path that ends inside a nested filter matches when the value there
// explicitly satisfies the remaining filter, or when the event deleted it.
func matchFilter(f Filter, root ir.Value, fwd ir.Path, isDelete bool) bool {
	cur := f
	container := root
	for _, key := range fwd {
		fv := cur.lookup(key)
		if fn, ok := fv.(FilterFunc); ok {
			fv = fn(container, key)
		}
		switch v := fv.(type) {
		case FilterBool:
			return bool(v)
		case filterStar:
			return true
		case Filter:
			cur = v
		default:
			return false
		}
		container, _ = ir.Child(container, key)
	}
	return isDelete || ExplicitFilterMatch(cur, container)
}

// ExplicitFilterMatch reports whether some entry of v (directly, or through
// nested filters) is accepted by f.
func ExplicitFilterMatch(f Filter, v ir.Value) bool {
	return explicitMatch(f, v, explicitMatchDepth)
}

func explicitMatch(f Filter, v ir.Value, depth int) bool {
	if depth < 0 {
		return false
	}
	matched := false
	eachEntry(v, func(key ir.Key, sub ir.Value) bool {
		if sub == nil {
			return true
		}
		fv := f.lookup(key)
		if fn, ok := fv.(FilterFunc); ok {
			fv = fn(v, key)
		}
		switch nf := fv.(type) {
		case FilterBool:
			matched = bool(nf)
		case filterStar:
			matched = true
		case Filter:
			matched = explicitMatch(nf, sub, depth-1)
		}
		return !matched
	})
	return matched
}

// eachEntry visits every entry of an aggregate, scalars included, until fn
// returns false.
func eachEntry(v ir.Value, fn func(ir.Key, ir.Value) bool) {
	switch c := v.(type) {
	case *ir.Object:
		for _, k := range c.SortedKeys() {
			if !fn(ir.Prop(k), c.Get(k)) {
				return
			}
		}
	case *ir.Array:
		for i, item := range c.Items() {
			if !fn(ir.Index(i), item) {
				return
			}
		}
	}
}
