package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = NewArray(String("a"), Int(1))
	var _ Value = NewObject(O("key", String("value")))
	var _ Watchable = &Object{}
	var _ Watchable = &Array{}
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := NewObject(
		O("a", Int(1)),
		O("A", Int(2)),
		O("aa", Int(3)),
		O("aA", Int(4)),
		O("Aa", Int(5)),
		O("AA", Int(6)),
	)

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestObjectSortedKeysSurrogatePairs(t *testing.T) {
	// U+1F600 encodes as surrogate 0xD83D, which sorts before U+FFFD (0xFFFD)
	// in UTF-16 even though its UTF-8 form sorts after.
	obj := NewObject(O("\uFFFD", Int(1)), O("\U0001F600", Int(2)))
	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, obj.SortedKeys())
}

func TestObjectRawMutators(t *testing.T) {
	obj := NewObject()
	assert.Equal(t, 0, obj.Len())
	assert.False(t, obj.Has("a"))

	obj.Set("a", Int(1))
	v, ok := obj.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	assert.True(t, obj.Delete("a"))
	assert.False(t, obj.Delete("a"))
	assert.Nil(t, obj.Get("a"))
}

func TestObjectZeroValueSet(t *testing.T) {
	var obj Object
	obj.Set("x", Bool(true))
	assert.Equal(t, Bool(true), obj.Get("x"))
}

func TestArraySplice(t *testing.T) {
	arr := NewArray(Int(1), Int(2), Int(3))

	removed := arr.Splice(1, 1, Int(9), Int(10))

	assert.Equal(t, []Value{Int(2)}, removed)
	assert.Equal(t, []Value{Int(1), Int(9), Int(10), Int(3)}, arr.Items())
}

func TestArrayMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		count    int
		expected []Value
	}{
		{"forward", 0, 2, 1, []Value{Int(1), Int(2), Int(0), Int(3)}},
		{"backward", 3, 0, 1, []Value{Int(3), Int(0), Int(1), Int(2)}},
		{"block", 0, 2, 2, []Value{Int(2), Int(3), Int(0), Int(1)}},
		{"same", 1, 1, 1, []Value{Int(0), Int(1), Int(2), Int(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := NewArray(Int(0), Int(1), Int(2), Int(3))
			arr.Move(tt.from, tt.to, tt.count)
			assert.Equal(t, tt.expected, arr.Items())
		})
	}
}

func TestArrayIndexOfUsesIdentity(t *testing.T) {
	a := NewObject()
	b := NewObject()
	arr := NewArray(a, b)

	assert.Equal(t, 1, arr.IndexOf(b))
	assert.Equal(t, -1, arr.IndexOf(NewObject()))
	assert.Equal(t, -1, arr.IndexOf(nil))
}

func TestSame(t *testing.T) {
	obj := NewObject()
	assert.True(t, Same(obj, obj))
	assert.False(t, Same(obj, NewObject()))
	assert.True(t, Same(Int(2), Int(2)))
	assert.False(t, Same(Int(2), String("2")))
	assert.True(t, Same(nil, nil))
}

func TestVisitChildrenSkipsScalars(t *testing.T) {
	child := NewObject()
	list := NewArray(Int(1), child)
	obj := NewObject(O("b", list), O("a", Int(1)), O("c", child))

	var keys []string
	obj.VisitChildren(func(k Key, w Watchable) {
		keys = append(keys, k.String())
	})
	assert.Equal(t, []string{"b", "c"}, keys)

	var idx []Key
	list.VisitChildren(func(k Key, w Watchable) {
		idx = append(idx, k)
		assert.Same(t, child, w)
	})
	assert.Equal(t, []Key{Index(1)}, idx)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(Null{}))
	assert.False(t, Truthy(String("")))
	assert.False(t, Truthy(Int(0)))
	assert.False(t, Truthy(Bool(false)))
	assert.True(t, Truthy(String("x")))
	assert.True(t, Truthy(NewObject()))
	assert.True(t, Truthy(NewArray()))
}

func TestJSONRoundTrip(t *testing.T) {
	input := `{"items":[1,"two",true,null,{"z":1,"a":2}],"name":"cart"}`

	v, err := UnmarshalValue([]byte(input))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[1,"two",true,null,{"a":2,"z":1}],"name":"cart"}`, string(out))
}

func TestUnmarshalValueRejectsFloats(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"price":1.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = UnmarshalValue([]byte(`1e3`))
	require.Error(t, err)
}

func TestObjectUnmarshalJSONWrongType(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON object")
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[string]any{
		"n":    1,
		"list": []any{"a", int64(2), 3.0},
		"sub":  map[any]any{"k": nil},
	})
	require.NoError(t, err)

	expected := NewObject(
		O("n", Int(1)),
		O("list", NewArray(String("a"), Int(2), Int(3))),
		O("sub", NewObject(O("k", Null{}))),
	)
	assert.True(t, DeepEqual(expected, v))
}

func TestFromAnyRejectsNonStringKeys(t *testing.T) {
	_, err := FromAny(map[any]any{1: "x"})
	require.Error(t, err)
}

func TestToAny(t *testing.T) {
	v := NewObject(O("a", NewArray(Int(1), Null{})), O("b", Bool(true)))

	out, err := ToAny(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{int64(1), nil}, "b": true}, out)
}

func TestMarshalValueCycleReturnsErrTooDeep(t *testing.T) {
	obj := NewObject()
	obj.Set("self", obj)

	_, err := MarshalValue(obj)
	assert.ErrorIs(t, err, ErrTooDeep)
}
