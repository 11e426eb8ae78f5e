package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// KeyKind discriminates Key.
type KeyKind uint8

const (
	// KeyNone is the placeholder segment for events that carry no key
	// (change, event, load without a prop).
	KeyNone KeyKind = iota
	KeyProp
	KeyIndex
)

// Key is one path segment: an object property, an array index, or none.
type Key struct {
	kind  KeyKind
	prop  string
	index int
}

// NoKey is the placeholder segment.
var NoKey = Key{}

// Prop returns a property key.
func Prop(name string) Key {
	return Key{kind: KeyProp, prop: name}
}

// Index returns an array index key.
func Index(i int) Key {
	return Key{kind: KeyIndex, index: i}
}

// Kind returns the key's kind.
func (k Key) Kind() KeyKind { return k.kind }

// IsNone reports whether k is the placeholder segment.
func (k Key) IsNone() bool { return k.kind == KeyNone }

// PropName returns the property name. For index keys it returns the decimal
// form, for none keys "".
func (k Key) PropName() string {
	switch k.kind {
	case KeyProp:
		return k.prop
	case KeyIndex:
		return strconv.Itoa(k.index)
	default:
		return ""
	}
}

// AsIndex returns k as an array index. Prop keys holding a non-negative
// decimal integer convert too.
func (k Key) AsIndex() (int, bool) {
	switch k.kind {
	case KeyIndex:
		return k.index, true
	case KeyProp:
		if !isDigits(k.prop) {
			return 0, false
		}
		i, err := strconv.Atoi(k.prop)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Equal compares keys by canonical string form, so Index(0) equals Prop("0").
func (k Key) Equal(other Key) bool {
	if k.kind == KeyNone || other.kind == KeyNone {
		return k.kind == other.kind
	}
	return k.PropName() == other.PropName()
}

// String renders the key for diagnostics; none renders as "<none>".
func (k Key) String() string {
	if k.kind == KeyNone {
		return "<none>"
	}
	return k.PropName()
}

// MarshalJSON encodes prop keys as strings, index keys as numbers and none as null.
func (k Key) MarshalJSON() ([]byte, error) {
	switch k.kind {
	case KeyProp:
		return json.Marshal(k.prop)
	case KeyIndex:
		return []byte(strconv.Itoa(k.index)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (k *Key) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := KeyFromAny(raw)
	if err != nil {
		return err
	}
	*k = key
	return nil
}

// KeyFromAny converts a decoded JSON/YAML scalar into a Key.
func KeyFromAny(v any) (Key, error) {
	switch val := v.(type) {
	case nil:
		return NoKey, nil
	case string:
		return Prop(val), nil
	case int:
		return Index(val), nil
	case int64:
		return Index(int(val)), nil
	case float64:
		if val != float64(int(val)) || val < 0 {
			return Key{}, fmt.Errorf("invalid index key: %v", val)
		}
		return Index(int(val)), nil
	case Key:
		return val, nil
	default:
		return Key{}, fmt.Errorf("unsupported key type: %T", v)
	}
}

// Path is an ordered list of keys. Whether it runs root-to-leaf (forward) or
// leaf-to-root (reverse) depends on where it came from.
type Path []Key

// ParsePath splits a dotted path. All-digit segments become index keys.
// The empty string is the empty path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		if isDigits(part) {
			if n, err := strconv.Atoi(part); err == nil {
				p[i] = Index(n)
				continue
			}
		}
		p[i] = Prop(part)
	}
	return p
}

// PathOf builds a path from strings (props), ints (indices) and nil (none).
// Panics on other types.
func PathOf(keys ...any) Path {
	p := make(Path, len(keys))
	for i, k := range keys {
		key, err := KeyFromAny(k)
		if err != nil {
			panic(err)
		}
		p[i] = key
	}
	return p
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Reverse returns a reversed copy.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, k := range p {
		out[len(p)-1-i] = k
	}
	return out
}

// Equal reports whether both paths have the same keys.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !p[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a (non-strict) prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// String renders the path dotted; none keys render as "<none>".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, k := range p {
		parts[i] = k.String()
	}
	return strings.Join(parts, ".")
}

// Child returns the direct child of container under key.
func Child(container Value, key Key) (Value, bool) {
	switch c := container.(type) {
	case *Object:
		if c == nil || key.IsNone() {
			return nil, false
		}
		return c.Lookup(key.PropName())
	case *Array:
		i, ok := key.AsIndex()
		if !ok || c == nil || i >= c.Len() {
			return nil, false
		}
		return c.At(i), true
	default:
		return nil, false
	}
}

// Resolve walks a forward path from root. None keys are skipped.
func Resolve(root Value, path Path) (Value, bool) {
	cur := root
	for _, k := range path {
		if k.IsNone() {
			continue
		}
		next, ok := Child(cur, k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// ResolveReverse walks a reverse path (mutation site first) from root,
// starting at the tail.
func ResolveReverse(root Value, reversePath Path) (Value, bool) {
	cur := root
	for i := len(reversePath) - 1; i >= 0; i-- {
		k := reversePath[i]
		if k.IsNone() {
			continue
		}
		next, ok := Child(cur, k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
