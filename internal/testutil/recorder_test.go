package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

func TestRecorder_RecordsFlatAndRecursive(t *testing.T) {
	reg := watch.NewRegistry()
	child := ir.NewObject(ir.O("x", ir.Int(1)))
	root := ir.NewObject(ir.O("child", child))

	rec := NewRecorder()
	w := reg.Watch(root)
	w.AddListener(rec.Listener())
	w.AddRecursiveListener(rec.RecursiveListener())

	reg.SetProp(child, "x", ir.Int(2))

	assert.Empty(t, rec.Events(), "flat listener on root must not see child events")
	require.Len(t, rec.RecursiveEvents(), 1)
	evt := rec.RecursiveEvents()[0]
	assert.Equal(t, watch.EventSet, evt.Type)
	assert.True(t, ir.PathOf("child").Equal(evt.Path))
	assert.True(t, ir.PathOf("x", "child").Equal(rec.ReversePaths()[0]))
	assert.Equal(t, []watch.EventType{watch.EventSet}, rec.Types())

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
}

func TestFixedSource(t *testing.T) {
	gen := NewFixedSource("src-1")
	assert.Equal(t, "src-1", gen.Generate())
	assert.Equal(t, "src-1", gen.Generate())
	assert.Equal(t, "test-source", NewFixedSource("").Generate())
}
