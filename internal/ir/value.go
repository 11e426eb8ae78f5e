package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// MaxDepth bounds every deep walk (clone, equality, JSON, merge). A graph
// nested deeper than this is treated as cyclic.
const MaxDepth = 256

// ErrTooDeep is returned when a deep walk exceeds MaxDepth.
var ErrTooDeep = errors.New("value nested deeper than ir.MaxDepth (cyclic graph?)")

// Value is a sealed interface representing the values a watched graph holds.
// Only Null, String, Int, Bool, *Object and *Array implement it.
// NO float - floats are forbidden (canonical JSON rejects them).
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Watchable is an aggregate value that may carry a watcher.
// Only *Object and *Array implement it.
type Watchable interface {
	Value

	// VisitChildren calls fn for every directly contained aggregate, in
	// deterministic order. Scalars are skipped.
	VisitChildren(fn func(key Key, child Watchable))
}

// Null represents a JSON null value.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) irValue() {}

// Int represents an integer value. Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Same reports whether a and b are the same value: aggregates by pointer,
// scalars by value. This is the identity used for set idempotence.
func Same(a, b Value) bool {
	return a == b
}

// IsAggregate reports whether v is a non-nil *Object or *Array.
func IsAggregate(v Value) bool {
	_, ok := AsWatchable(v)
	return ok
}

// AsWatchable returns v as a Watchable if it is a non-nil aggregate.
func AsWatchable(v Value) (Watchable, bool) {
	switch val := v.(type) {
	case *Object:
		return val, val != nil
	case *Array:
		return val, val != nil
	default:
		return nil, false
	}
}

// Truthy mirrors the usual falsy set: nil, Null, "", 0 and false are falsy;
// every aggregate is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case String:
		return val != ""
	case Int:
		return val != 0
	case Bool:
		return bool(val)
	case *Object:
		return val != nil
	case *Array:
		return val != nil
	default:
		return false
	}
}

// TypeName returns a short name for the dynamic type of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case *Object:
		return "object"
	case *Array:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Pair represents a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair for ergonomic construction.
// Example: NewObject(O("name", String("cart")), O("count", Int(5)))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Object is a mutable string-keyed aggregate.
// Use SortedKeys for deterministic iteration.
type Object struct {
	fields map[string]Value
}

func (*Object) irValue() {}

// NewObject creates an Object from typed key-value pairs.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		obj.fields[p.Key] = p.Value
	}
	return obj
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// Get returns the value stored under key, or nil if absent.
func (o *Object) Get(key string) Value {
	if o == nil {
		return nil
	}
	return o.fields[key]
}

// Lookup returns the value stored under key and whether it exists.
func (o *Object) Lookup(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key exists.
func (o *Object) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Set assigns key without notifying any watcher.
func (o *Object) Set(key string, v Value) {
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	o.fields[key] = v
}

// Delete removes key without notifying any watcher. Reports whether the key existed.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	if _, ok := o.fields[key]; !ok {
		return false
	}
	delete(o.fields, key)
	return true
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (o *Object) SortedKeys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// VisitChildren implements Watchable.
func (o *Object) VisitChildren(fn func(key Key, child Watchable)) {
	for _, k := range o.SortedKeys() {
		if w, ok := AsWatchable(o.fields[k]); ok {
			fn(Prop(k), w)
		}
	}
}

// String renders the object as JSON for debugging.
func (o *Object) String() string {
	return debugString(o)
}

// Array is a mutable ordered aggregate.
type Array struct {
	items []Value
}

func (*Array) irValue() {}

// NewArray creates an Array from values.
func NewArray(vals ...Value) *Array {
	items := make([]Value, len(vals))
	copy(items, vals)
	return &Array{items: items}
}

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the item at i, or nil if i is out of range.
func (a *Array) At(i int) Value {
	if a == nil || i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Items returns a copy of the items.
func (a *Array) Items() []Value {
	if a == nil {
		return nil
	}
	return slices.Clone(a.items)
}

// IndexOf returns the index of the first item Same as v, or -1.
func (a *Array) IndexOf(v Value) int {
	if a == nil {
		return -1
	}
	for i, item := range a.items {
		if Same(item, v) {
			return i
		}
	}
	return -1
}

// SetAt replaces the item at i without notifying any watcher.
// Panics if i is out of range.
func (a *Array) SetAt(i int, v Value) {
	a.items[i] = v
}

// Splice removes deleteCount items at index and inserts values there, without
// notifying any watcher. Returns the removed items.
// Panics if the range is invalid; callers validate bounds first.
func (a *Array) Splice(index, deleteCount int, values ...Value) []Value {
	removed := slices.Clone(a.items[index : index+deleteCount])
	a.items = slices.Replace(a.items, index, index+deleteCount, values...)
	return removed
}

// Move relocates count items from fromIndex so that the first of them lands
// at toIndex, without notifying any watcher.
// Panics if the range is invalid; callers validate bounds first.
func (a *Array) Move(fromIndex, toIndex, count int) {
	moved := slices.Clone(a.items[fromIndex : fromIndex+count])
	a.items = slices.Delete(a.items, fromIndex, fromIndex+count)
	a.items = slices.Insert(a.items, toIndex, moved...)
}

// VisitChildren implements Watchable.
func (a *Array) VisitChildren(fn func(key Key, child Watchable)) {
	if a == nil {
		return
	}
	for i, item := range a.items {
		if w, ok := AsWatchable(item); ok {
			fn(Index(i), w)
		}
	}
}

// String renders the array as JSON for debugging.
func (a *Array) String() string {
	return debugString(a)
}

func debugString(v Value) string {
	data, err := MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", TypeName(v), err)
	}
	return string(data)
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// MarshalJSON implements json.Marshaler with sorted keys (RFC 8785 ordering).
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func (o *Object) MarshalJSON() ([]byte, error) {
	return marshalValue(o, 0)
}

// MarshalJSON implements json.Marshaler for Array.
func (a *Array) MarshalJSON() ([]byte, error) {
	return marshalValue(a, 0)
}

// MarshalValue marshals a Value to JSON bytes. A nil Value marshals as null.
func MarshalValue(v Value) ([]byte, error) {
	return marshalValue(v, 0)
}

func marshalValue(v Value, depth int) ([]byte, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Bool:
		return json.Marshal(bool(val))
	case *Object:
		if val == nil {
			return []byte("null"), nil
		}
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, fmt.Errorf("marshal key %q: %w", k, err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := marshalValue(val.fields[k], depth+1)
			if err != nil {
				return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case *Array:
		if val == nil {
			return []byte("null"), nil
		}
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := marshalValue(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", TypeName(v))
	}
	o.fields = obj.fields
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	arr, ok := v.(*Array)
	if !ok {
		return fmt.Errorf("expected JSON array, got %s", TypeName(v))
	}
	a.items = arr.items
	return nil
}

// UnmarshalValue decodes JSON into a Value. Floats are rejected; null decodes
// to Null.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// FromAny converts a decoded Go value (JSON, YAML) into a Value.
// Accepts nil, bool, string, integer kinds, integral float64, json.Number,
// []any, map[string]any and map[any]any with string keys. Existing Values
// pass through.
func FromAny(v any) (Value, error) {
	return fromAny(v, 0)
}

func fromAny(v any, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are forbidden in values: %v", val)
		}
		return Int(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in values: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := &Array{items: make([]Value, len(val))}
		for i, elem := range val {
			item, err := fromAny(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr.items[i] = item
		}
		return arr, nil
	case map[string]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			field, err := fromAny(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj.fields[k] = field
		}
		return obj, nil
	case map[any]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v: only string keys are allowed", k)
			}
			field, err := fromAny(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", ks, err)
			}
			obj.fields[ks] = field
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ToAny converts a Value into plain Go values (map[string]any, []any, string,
// int64, bool, nil).
func ToAny(v Value) (any, error) {
	return toAny(v, 0)
}

func toAny(v Value, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Bool:
		return bool(val), nil
	case *Object:
		if val == nil {
			return nil, nil
		}
		m := make(map[string]any, len(val.fields))
		for k, field := range val.fields {
			out, err := toAny(field, depth+1)
			if err != nil {
				return nil, err
			}
			m[k] = out
		}
		return m, nil
	case *Array:
		if val == nil {
			return nil, nil
		}
		s := make([]any, len(val.items))
		for i, item := range val.items {
			out, err := toAny(item, depth+1)
			if err != nil {
				return nil, err
			}
			s[i] = out
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
