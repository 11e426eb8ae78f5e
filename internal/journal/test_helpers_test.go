package journal

import (
	"path/filepath"
	"testing"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a set event at path.
func createTestEvent(prop string, value ir.Value, path ...any) watch.RecursiveEvent {
	return watch.RecursiveEvent{
		Event: watch.Event{Type: watch.EventSet, Prop: prop, Value: value},
		Path:  ir.PathOf(path...),
	}
}
