package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	assert.Equal(t, Path{Prop("a"), Prop("b"), Index(0)}, ParsePath("a.b.0"))
	assert.Equal(t, Path{}, ParsePath(""))
	assert.Equal(t, "a.b.0", ParsePath("a.b.0").String())
}

func TestKeyEqualAcrossKinds(t *testing.T) {
	assert.True(t, Index(0).Equal(Prop("0")))
	assert.False(t, Index(0).Equal(Prop("a")))
	assert.True(t, NoKey.Equal(Key{}))
	assert.False(t, NoKey.Equal(Prop("")))
}

func TestKeyAsIndex(t *testing.T) {
	i, ok := Prop("12").AsIndex()
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	_, ok = Prop("-1").AsIndex()
	assert.False(t, ok)
	_, ok = NoKey.AsIndex()
	assert.False(t, ok)
}

func TestKeyJSON(t *testing.T) {
	p := PathOf("a", 1, nil)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `["a",1,null]`, string(data))

	var back Path
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Equal(back))
	assert.True(t, back[2].IsNone())
}

func TestPathHasPrefix(t *testing.T) {
	p := PathOf("a", "b", 2)
	assert.True(t, p.HasPrefix(PathOf("a", "b")))
	assert.True(t, p.HasPrefix(p))
	assert.True(t, p.HasPrefix(Path{}))
	assert.False(t, p.HasPrefix(PathOf("a", "c")))
	assert.False(t, PathOf("a").HasPrefix(p))
}

func TestPathReverse(t *testing.T) {
	p := PathOf("a", "b", 2)
	assert.Equal(t, PathOf(2, "b", "a"), p.Reverse())
	assert.Equal(t, PathOf("a", "b", 2), p, "Reverse must not mutate")
}

func TestResolve(t *testing.T) {
	leaf := NewObject(O("x", Int(1)))
	root := NewObject(O("list", NewArray(Int(0), leaf)))

	v, ok := Resolve(root, PathOf("list", 1, "x"))
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	v, ok = ResolveReverse(root, PathOf("x", 1, "list"))
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	v, ok = Resolve(root, PathOf("list", nil, 1))
	require.True(t, ok)
	assert.Same(t, leaf, v)

	_, ok = Resolve(root, PathOf("list", 5))
	assert.False(t, ok)
	_, ok = Resolve(root, PathOf("missing", "x"))
	assert.False(t, ok)
}

func TestCloneSharesNoIdentity(t *testing.T) {
	inner := NewObject(O("c", Int(1)))
	src := NewObject(O("b", inner), O("list", NewArray(inner)))

	cp, err := Clone(src)
	require.NoError(t, err)
	assert.True(t, DeepEqual(src, cp))

	cpObj := cp.(*Object)
	assert.NotSame(t, inner, cpObj.Get("b"))
	cpObj.Get("b").(*Object).Set("c", Int(2))
	assert.Equal(t, Int(1), inner.Get("c"))
}

func TestEqual(t *testing.T) {
	assert.True(t, DeepEqual(NewObject(O("a", Int(1))), NewObject(O("a", Int(1)))))
	assert.False(t, DeepEqual(NewObject(O("a", Int(1))), NewObject(O("a", Int(2)))))
	assert.False(t, DeepEqual(NewArray(Int(1)), NewArray(Int(1), Int(2))))
	assert.False(t, DeepEqual(NewObject(), NewArray()))
	assert.False(t, DeepEqual(nil, Null{}))
}

func TestEqualCycle(t *testing.T) {
	a := NewObject()
	a.Set("self", a)
	b := NewObject()
	b.Set("self", b)

	_, err := Equal(a, b)
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = Clone(a)
	assert.ErrorIs(t, err, ErrTooDeep)
}
