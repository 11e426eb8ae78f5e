package ir

import "fmt"

// Clone returns a deep copy of v. Scalars are returned as-is. Aggregates are
// copied so the result shares no identity with v.
// Returns ErrTooDeep for graphs nested beyond MaxDepth.
func Clone(v Value) (Value, error) {
	return cloneValue(v, 0)
}

// MustClone is like Clone but panics on error.
// Use only in tests or when inputs are known to be acyclic.
func MustClone(v Value) Value {
	out, err := Clone(v)
	if err != nil {
		panic(err)
	}
	return out
}

func cloneValue(v Value, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch val := v.(type) {
	case *Object:
		if val == nil {
			return val, nil
		}
		out := &Object{fields: make(map[string]Value, len(val.fields))}
		for k, field := range val.fields {
			c, err := cloneValue(field, depth+1)
			if err != nil {
				return nil, err
			}
			out.fields[k] = c
		}
		return out, nil
	case *Array:
		if val == nil {
			return val, nil
		}
		out := &Array{items: make([]Value, len(val.items))}
		for i, item := range val.items {
			c, err := cloneValue(item, depth+1)
			if err != nil {
				return nil, err
			}
			out.items[i] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

// CloneValues deep-clones each value of vals.
func CloneValues(vals []Value) ([]Value, error) {
	if vals == nil {
		return nil, nil
	}
	out := make([]Value, len(vals))
	for i, v := range vals {
		c, err := Clone(v)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// Equal reports deep structural equality. nil and Null are distinct.
// Returns ErrTooDeep for graphs nested beyond MaxDepth.
func Equal(a, b Value) (bool, error) {
	return equalValue(a, b, 0)
}

// DeepEqual is Equal that treats ErrTooDeep as inequality.
func DeepEqual(a, b Value) bool {
	eq, err := Equal(a, b)
	return err == nil && eq
}

func equalValue(a, b Value, depth int) (bool, error) {
	if depth > MaxDepth {
		return false, ErrTooDeep
	}
	switch av := a.(type) {
	case *Object:
		bv, ok := b.(*Object)
		if !ok {
			return false, nil
		}
		if av == bv {
			return true, nil
		}
		if av == nil || bv == nil || len(av.fields) != len(bv.fields) {
			return false, nil
		}
		for k, af := range av.fields {
			bf, ok := bv.fields[k]
			if !ok {
				return false, nil
			}
			eq, err := equalValue(af, bf, depth+1)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *Array:
		bv, ok := b.(*Array)
		if !ok {
			return false, nil
		}
		if av == bv {
			return true, nil
		}
		if av == nil || bv == nil || len(av.items) != len(bv.items) {
			return false, nil
		}
		for i := range av.items {
			eq, err := equalValue(av.items[i], bv.items[i], depth+1)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return a == b, nil
	}
}
