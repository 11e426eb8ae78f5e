package watch_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/testutil"
	"github.com/roach88/objwatch/internal/watch"
)

func TestRegistry_OneWatcherPerObject(t *testing.T) {
	reg := watch.NewRegistry()
	obj := ir.NewObject()

	w1 := reg.Watch(obj)
	w2 := reg.Watch(obj)

	assert.Same(t, w1, w2)
	assert.Equal(t, 2, w1.RefCount())
	assert.Equal(t, 1, reg.Len())
	assert.Same(t, obj, w1.Target())
}

func TestRegistry_StopWatching(t *testing.T) {
	reg := watch.NewRegistry()
	obj := ir.NewObject()
	reg.Watch(obj)
	reg.Watch(obj)

	w, err := reg.StopWatching(obj)
	require.NoError(t, err)
	assert.False(t, w.Disposed())

	w, err = reg.StopWatching(obj)
	require.NoError(t, err)
	assert.True(t, w.Disposed())
	assert.Equal(t, 0, reg.Len())

	w, err = reg.StopWatching(obj)
	assert.NoError(t, err)
	assert.Nil(t, w, "no watcher left")
}

func TestRegistry_RefCountUnderflow(t *testing.T) {
	reg := watch.NewRegistry()
	child := ir.NewObject()
	root := ir.NewObject(ir.O("c", child))
	reg.Watch(root).EnableRecursive()

	// child's watcher exists through its ancestor link but holds no ref
	_, err := reg.StopWatching(child)

	require.Error(t, err)
	assert.True(t, watch.IsRefCountUnderflow(err))
	cw := reg.Get(child, false)
	require.NotNil(t, cw)
	assert.Equal(t, 0, cw.RefCount())
	assert.False(t, cw.Disposed())
}

func TestRegistry_WatchValue(t *testing.T) {
	reg := watch.NewRegistry()

	for _, v := range []ir.Value{nil, ir.Int(1), ir.String("s"), ir.Null{}, (*ir.Object)(nil)} {
		_, err := reg.WatchValue(v)
		assert.ErrorIs(t, err, watch.ErrNotWatchable)
		assert.True(t, watch.IsNotWatchable(err))
	}

	w, err := reg.WatchValue(ir.NewArray())
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestRegistry_WatchNil(t *testing.T) {
	reg := watch.NewRegistry()
	assert.Nil(t, reg.Watch(nil))
	assert.Nil(t, reg.Get(nil, true))
}

func TestRegistry_DisposedParentReleasesChildren(t *testing.T) {
	reg := watch.NewRegistry()
	held := ir.NewObject()
	free := ir.NewObject()
	root := ir.NewObject(ir.O("held", held), ir.O("free", free))

	reg.Watch(root).EnableRecursive()
	reg.Watch(held)
	require.Equal(t, 3, reg.Len())

	_, err := reg.StopWatching(root)
	require.NoError(t, err)

	assert.Nil(t, reg.Get(root, false))
	assert.Nil(t, reg.Get(free, false))
	hw := reg.Get(held, false)
	require.NotNil(t, hw, "held by its own ref")
	assert.Equal(t, 0, hw.AncestorCount())
}

func TestRegistry_Separate(t *testing.T) {
	a := watch.NewRegistry()
	b := watch.NewRegistry()
	obj := ir.NewObject()
	rec := testutil.NewRecorder()
	a.Watch(obj).AddListener(rec.Listener())

	b.SetProp(obj, "x", ir.Int(1))

	assert.Empty(t, rec.Events(), "b does not know about a's watcher")
	assert.Equal(t, ir.Int(1), obj.Get("x"))
}

func TestRegistry_LogsListenerPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reg := watch.NewRegistry(watch.WithLogger(logger))
	obj := ir.NewObject()
	reg.Watch(obj).AddListener(func(ir.Watchable, watch.Event) { panic("kaboom") })

	reg.SetProp(obj, "a", ir.Int(1))

	assert.Contains(t, buf.String(), `"msg":"listener panicked"`)
	assert.Contains(t, buf.String(), `"panic":"kaboom"`)
	assert.Contains(t, buf.String(), `"event_type":"set"`)
}

func TestHandle_Kinds(t *testing.T) {
	reg := watch.NewRegistry()
	watched := ir.NewObject()
	reg.Watch(watched)

	h := reg.Handle(watched)
	assert.True(t, h.Observed())
	_, isWatcher := h.(*watch.Watcher)
	assert.True(t, isWatcher)

	plain := ir.NewObject()
	h = reg.Handle(plain)
	assert.False(t, h.Observed())
	assert.Same(t, plain, h.Target())

	for _, v := range []ir.Value{nil, ir.Int(3), (*ir.Array)(nil)} {
		h = reg.Handle(v)
		assert.False(t, h.Observed())
		assert.Nil(t, h.Target())
		assert.False(t, h.DeleteProp("x"))
		assert.Equal(t, ir.Int(1), h.SetProp("x", ir.Int(1)))
	}
}

func TestPassthrough_MutatesWithoutEvents(t *testing.T) {
	reg := watch.NewRegistry()
	obj := ir.NewObject(ir.O("flag", ir.Bool(true)), ir.O("gone", ir.Int(1)))
	ary := ir.NewArray(ir.Int(1), ir.Int(2), ir.Int(3))

	h := reg.Handle(obj)
	assert.False(t, h.ToggleProp("flag"))
	h.SetPropOrDeleteFalsy("gone", ir.Int(0))
	h.SetPropOrDeleteWhen("w", ir.String("keep"), ir.String("drop"))

	assert.Equal(t, ir.Bool(false), obj.Get("flag"))
	assert.False(t, obj.Has("gone"))
	assert.Equal(t, ir.String("keep"), obj.Get("w"))

	a := reg.Handle(ary)
	require.True(t, a.AryPush([]ir.Value{ir.Int(4)}))
	require.True(t, a.AryMove(3, 0, 1))
	require.True(t, a.AryRemove(ir.Int(2)))
	require.False(t, a.ArySplice(9, 0, nil))
	assert.Equal(t, []ir.Value{ir.Int(4), ir.Int(1), ir.Int(3)}, ary.Items())

	h.DeleteAllProps()
	assert.Equal(t, 0, obj.Len())
}

func TestWatcher_PropHelpers(t *testing.T) {
	reg := watch.NewRegistry()
	obj := ir.NewObject(ir.O("a", ir.Int(1)), ir.O("b", ir.Int(2)))
	rec := testutil.NewRecorder()
	reg.Watch(obj).AddListener(rec.Listener())

	assert.True(t, reg.ToggleProp(obj, "on"))
	reg.SetPropOrDeleteFalsy(obj, "a", ir.String(""))
	reg.SetPropOrDeleteWhen(obj, "b", ir.Null{}, ir.Null{})
	reg.DeleteAllProps(obj)

	assert.Equal(t, 0, obj.Len())
	assert.Equal(t, []watch.EventType{
		watch.EventSet,
		watch.EventDelete,
		watch.EventDelete,
		watch.EventDelete,
	}, rec.Types())
}

func TestArrayElementSet(t *testing.T) {
	reg := watch.NewRegistry()
	item := ir.NewObject()
	ary := ir.NewArray(ir.Int(0), ir.Int(1))
	root := ir.NewObject(ir.O("list", ary))
	rec := testutil.NewRecorder()
	reg.Watch(root).AddRecursiveListener(rec.RecursiveListener())

	reg.SetProp(ary, "1", item)
	reg.SetProp(ary, "5", ir.Int(9))
	reg.SetProp(item, "n", ir.Int(1))

	assert.Equal(t, 2, ary.Len())
	require.Len(t, rec.RecursiveEvents(), 2)
	assert.True(t, ir.PathOf("list", 1).Equal(rec.RecursiveEvents()[1].Path))
}

func TestPackageLevelDefault(t *testing.T) {
	obj := ir.NewObject()
	rec := testutil.NewRecorder()
	w := watch.Watch(obj)
	w.AddListener(rec.Listener())
	t.Cleanup(func() { _, _ = watch.StopWatching(obj) })

	watch.SetProp(obj, "a", ir.Int(1))
	watch.AryPush(obj, []ir.Value{ir.Int(1)})

	assert.Len(t, rec.Events(), 1)
	assert.Same(t, w, watch.GetWatcher(obj, false))
}
