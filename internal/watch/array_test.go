package watch

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objwatch/internal/ir"
)

func ints(vals ...int) []ir.Value {
	out := make([]ir.Value, len(vals))
	for i, v := range vals {
		out[i] = ir.Int(v)
	}
	return out
}

func TestAryMove(t *testing.T) {
	tests := []struct {
		name          string
		from, to, cnt int
		want          []ir.Value
		ok            bool
	}{
		{"forward", 0, 2, 1, ints(1, 2, 0, 3, 4), true},
		{"backward", 3, 1, 2, ints(0, 3, 4, 1, 2), true},
		{"to end", 0, 3, 2, ints(2, 3, 4, 0, 1), true},
		{"noop in place", 2, 2, 1, ints(0, 1, 2, 3, 4), true},
		{"to past end", 0, 4, 2, ints(0, 1, 2, 3, 4), false},
		{"from past end", 4, 0, 2, ints(0, 1, 2, 3, 4), false},
		{"zero count", 0, 1, 0, ints(0, 1, 2, 3, 4), false},
		{"negative", -1, 0, 1, ints(0, 1, 2, 3, 4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := ir.NewArray(ints(0, 1, 2, 3, 4)...)
			assert.Equal(t, tt.ok, aryMove(arr, tt.from, tt.to, tt.cnt))
			assert.Equal(t, tt.want, arr.Items())
		})
	}
}

func TestArySplice(t *testing.T) {
	arr := ir.NewArray(ints(0, 1, 2)...)

	require.True(t, arySplice(arr, 3, 0, ints(3)))
	require.True(t, arySplice(arr, 0, 2, nil))
	require.False(t, arySplice(arr, 1, 5, nil))
	require.False(t, arySplice(arr, -1, 0, nil))

	assert.Equal(t, ints(2, 3), arr.Items())
	assert.False(t, arySplice(nil, 0, 0, nil))
}

func TestAryRemove(t *testing.T) {
	obj := ir.NewObject()
	arr := ir.NewArray(ir.Int(1), obj, ir.NewObject())

	i, ok := aryRemove(arr, obj)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = aryRemove(arr, ir.NewObject())
	assert.False(t, ok, "removal is by identity")
	assert.Equal(t, 2, arr.Len())

	assert.False(t, aryRemoveAt(arr, 1, 2))
	assert.True(t, aryRemoveAt(arr, 0, 2))
	assert.Equal(t, 0, arr.Len())
}

func TestClock_ConcurrentNext(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	id, err := uuid.Parse(UUIDv7Generator{}.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, UUIDv7Generator{}.Generate(), UUIDv7Generator{}.Generate())
}

func TestForwardPath(t *testing.T) {
	assert.True(t, ir.PathOf("a", 1).Equal(forwardPath(ir.PathOf(1, "a"))))
	assert.True(t, ir.PathOf("a").Equal(forwardPath(ir.PathOf(nil, "a"))))
	assert.Empty(t, forwardPath(ir.PathOf(nil)))
}
