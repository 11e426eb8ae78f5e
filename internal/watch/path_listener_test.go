package watch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/testutil"
	"github.com/roach88/objwatch/internal/watch"
)

func newPerson() (*ir.Object, *ir.Object) {
	address := ir.NewObject(ir.O("city", ir.String("Springfield")), ir.O("zip", ir.String("49007")))
	person := ir.NewObject(ir.O("name", ir.String("bart")), ir.O("address", address))
	return person, address
}

func TestWatchPath_InitialCallAndExactMatch(t *testing.T) {
	reg := watch.NewRegistry()
	person, address := newPerson()
	rec := testutil.NewRecorder()

	p := reg.WatchAtPath(person, ir.ParsePath("address.city"), rec.PathListener(), watch.PathOptions{})
	require.NotNil(t, p)
	require.Equal(t, []ir.Value{ir.String("Springfield")}, rec.Values())

	reg.SetProp(address, "city", ir.String("Shelbyville"))
	reg.SetProp(address, "zip", ir.String("00000"))
	reg.SetProp(person, "name", ir.String("lisa"))

	assert.Equal(t, []ir.Value{ir.String("Springfield"), ir.String("Shelbyville")}, rec.Values())
	require.Len(t, rec.RecursiveEvents(), 1)
	assert.True(t, ir.ParsePath("address").Equal(rec.RecursiveEvents()[0].Path))
}

func TestWatchPath_SkipInitCall(t *testing.T) {
	reg := watch.NewRegistry()
	person, _ := newPerson()
	rec := testutil.NewRecorder()

	reg.WatchAtPath(person, ir.ParsePath("name"), rec.PathListener(), watch.PathOptions{SkipInitCall: true})

	assert.Empty(t, rec.Values())
}

func TestWatchPath_ExactModeIgnoresAncestorReplacement(t *testing.T) {
	reg := watch.NewRegistry()
	person, _ := newPerson()
	rec := testutil.NewRecorder()
	reg.WatchAtPath(person, ir.ParsePath("address.city"), rec.PathListener(), watch.PathOptions{SkipInitCall: true})

	reg.SetProp(person, "address", ir.NewObject(ir.O("city", ir.String("Capital City"))))

	assert.Empty(t, rec.Values())
}

func TestWatchDeep_MatchesDescendants(t *testing.T) {
	reg := watch.NewRegistry()
	person, address := newPerson()
	rec := testutil.NewRecorder()

	w := reg.Watch(person)
	w.WatchDeepPath(ir.ParsePath("address"), rec.PathListener(), watch.PathOptions{SkipInitCall: true})

	reg.SetProp(address, "zip", ir.String("1"))
	reg.SetProp(person, "name", ir.String("x"))
	reg.SetProp(address, "city", ir.String("y"))

	require.Len(t, rec.Values(), 2)
	for _, v := range rec.Values() {
		assert.Same(t, address, v, "deep listeners get the value at the subscribed path")
	}
}

func TestWatchDeep_WholeTree(t *testing.T) {
	reg := watch.NewRegistry()
	person, address := newPerson()
	rec := testutil.NewRecorder()

	p := reg.WatchDeep(person, rec.PathListener(), watch.PathOptions{SkipInitCall: true})
	reg.SetProp(address, "zip", ir.String("1"))
	reg.SetProp(person, "name", ir.String("x"))
	reg.TriggerChange(person)

	assert.Len(t, rec.Values(), 3)

	p.Dispose()
	p.Dispose()
	assert.Nil(t, reg.Get(person, false), "disposing releases the ref")
}

func TestWatchPath_ArrayIndices(t *testing.T) {
	reg := watch.NewRegistry()
	item := ir.NewObject(ir.O("qty", ir.Int(1)))
	order := ir.NewObject(ir.O("items", ir.NewArray(ir.NewObject(), item)))
	rec := testutil.NewRecorder()

	reg.WatchAtPath(order, ir.ParsePath("items.1"), rec.PathListener(), watch.PathOptions{SkipInitCall: true})
	reg.SetProp(item, "qty", ir.Int(2))

	assert.Empty(t, rec.Values(), "exact path is the container, not the prop")

	reg.WatchAtPath(order, ir.ParsePath("items.1.qty"), rec.PathListener(), watch.PathOptions{SkipInitCall: true})
	reg.SetProp(item, "qty", ir.Int(3))
	assert.Equal(t, []ir.Value{ir.Int(3)}, rec.Values())
}

func TestWatchFilter(t *testing.T) {
	reg := watch.NewRegistry()
	person, address := newPerson()
	rec := testutil.NewRecorder()

	filter := watch.Filter{
		"address": watch.Filter{"city": watch.Accept},
		"name":    watch.Star,
	}
	p := reg.WatchWithFilter(person, filter, rec.PathListener(), watch.PathOptions{})
	require.Len(t, rec.Values(), 1)
	assert.Same(t, person, rec.Values()[0])

	reg.SetProp(address, "zip", ir.String("1"))
	reg.SetProp(address, "city", ir.String("Ogdenville"))
	reg.SetProp(person, "name", ir.String("maggie"))

	assert.Len(t, rec.RecursiveEvents(), 2)
	assert.Equal(t, ir.String("Ogdenville"), rec.Values()[1])

	p.Dispose()
	reg.SetProp(person, "name", ir.String("homer"))
	assert.Len(t, rec.RecursiveEvents(), 2)
}

func TestWatchFilter_ReplacedSubtreeMatchesExplicitly(t *testing.T) {
	reg := watch.NewRegistry()
	person, _ := newPerson()
	rec := testutil.NewRecorder()
	filter := watch.Filter{"address": watch.Filter{"city": watch.Accept}}
	reg.WatchWithFilter(person, filter, rec.PathListener(), watch.PathOptions{SkipInitCall: true})

	reg.SetProp(person, "address", ir.NewObject(ir.O("zip", ir.String("1"))))
	assert.Empty(t, rec.Values(), "no city in the new subtree")

	reg.SetProp(person, "address", ir.NewObject(ir.O("city", ir.String("x"))))
	assert.Len(t, rec.Values(), 1)

	reg.DeleteProp(person, "address")
	assert.Len(t, rec.Values(), 2, "deletes under a filter always match")
}

func TestWatchFilter_AnyKeyAndFunc(t *testing.T) {
	reg := watch.NewRegistry()
	a := ir.NewObject(ir.O("price", ir.Int(1)), ir.O("sku", ir.String("a")))
	b := ir.NewObject(ir.O("price", ir.Int(2)), ir.O("sku", ir.String("b")))
	cart := ir.NewObject(ir.O("items", ir.NewArray(a, b)))
	rec := testutil.NewRecorder()

	onlyFirst := watch.FilterFunc(func(_ ir.Value, key ir.Key) watch.FilterValue {
		if i, ok := key.AsIndex(); ok && i == 0 {
			return watch.Filter{watch.AnyKey: watch.Accept}
		}
		return watch.Reject
	})
	filter := watch.Filter{
		"items": watch.Filter{watch.AnyKey: onlyFirst},
	}
	reg.WatchWithFilter(cart, filter, rec.PathListener(), watch.PathOptions{SkipInitCall: true})

	reg.SetProp(a, "sku", ir.String("z"))
	reg.SetProp(b, "sku", ir.String("y"))

	require.Len(t, rec.RecursiveEvents(), 1)
	assert.True(t, ir.PathOf("items", 0).Equal(rec.RecursiveEvents()[0].Path))
}

func TestExplicitFilterMatch(t *testing.T) {
	obj := ir.MustFromAny(map[string]any{
		"a": map[string]any{"b": 1},
		"c": 2,
	})

	tests := []struct {
		name   string
		filter watch.Filter
		want   bool
	}{
		{"direct accept", watch.Filter{"c": watch.Accept}, true},
		{"direct reject", watch.Filter{"c": watch.Reject}, false},
		{"nested", watch.Filter{"a": watch.Filter{"b": watch.Accept}}, true},
		{"nested miss", watch.Filter{"a": watch.Filter{"x": watch.Accept}}, false},
		{"star", watch.Filter{"a": watch.Star}, true},
		{"any key", watch.Filter{watch.AnyKey: watch.Accept}, true},
		{"absent key", watch.Filter{"zzz": watch.Accept}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, watch.ExplicitFilterMatch(tt.filter, obj))
		})
	}
}

func TestExplicitFilterMatch_CycleTerminates(t *testing.T) {
	a := ir.NewObject()
	a.Set("self", a)
	var f watch.Filter
	f = watch.Filter{"self": watch.FilterFunc(func(ir.Value, ir.Key) watch.FilterValue { return f })}

	assert.False(t, watch.ExplicitFilterMatch(f, a))
}
