package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

func TestAppendEvents_AssignsSequentialSeqs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seqs, err := s.AppendEvents(ctx, "s1", []watch.RecursiveEvent{
		createTestEvent("a", ir.Int(1)),
		createTestEvent("b", ir.Int(2), "child"),
	})
	if err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("seqs = %v, want [1 2]", seqs)
	}

	seq, err := s.AppendEvent(ctx, "s1", createTestEvent("c", ir.Int(3)))
	if err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}
	if seq != 3 {
		t.Errorf("seq = %d, want 3", seq)
	}

	// Streams number independently.
	seq, err = s.AppendEvent(ctx, "s2", createTestEvent("a", ir.Int(1)))
	if err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("s2 seq = %d, want 1", seq)
	}
}

func TestReadStream_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := []watch.RecursiveEvent{
		createTestEvent("name", ir.String("bart"), "user"),
		{
			Event: watch.Event{Type: watch.EventAryChange, Index: 1, DeleteCount: 1, HasDeleteCount: true, Values: []ir.Value{ir.Int(9)}},
			Path:  ir.PathOf("items"),
		},
		{
			Event: watch.Event{Type: watch.EventDelete, Prop: "gone", Source: "mirror-1", Hops: 1},
			Path:  ir.PathOf("list", 0),
		},
	}
	if _, err := s.AppendEvents(ctx, "trace", in); err != nil {
		t.Fatalf("AppendEvents() failed: %v", err)
	}

	records, err := s.ReadStream(ctx, "trace")
	if err != nil {
		t.Fatalf("ReadStream() failed: %v", err)
	}
	if len(records) != len(in) {
		t.Fatalf("got %d records, want %d", len(records), len(in))
	}
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Errorf("record %d seq = %d", i, rec.Seq)
		}
		if rec.ID == "" {
			t.Errorf("record %d has empty ID", i)
		}
		if rec.Event.Type != in[i].Type {
			t.Errorf("record %d type = %s, want %s", i, rec.Event.Type, in[i].Type)
		}
		if rec.Event.Path.String() != in[i].Path.String() {
			t.Errorf("record %d path = %s, want %s", i, rec.Event.Path, in[i].Path)
		}
	}

	if got := records[1].Event; got.Index != 1 || got.DeleteCount != 1 || !got.HasDeleteCount || len(got.Values) != 1 {
		t.Errorf("aryChange fields lost: %+v", got)
	}
	if got := records[2].Event; got.Source != "mirror-1" || got.Hops != 1 {
		t.Errorf("source/hops lost: source=%q hops=%d", got.Source, got.Hops)
	}
}

func TestReadStream_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ReadStream(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadStream() failed: %v", err)
	}
	if records == nil {
		t.Error("ReadStream() returned nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestEventIDs_Deterministic(t *testing.T) {
	ctx := context.Background()
	evt := createTestEvent("a", ir.Int(1))

	var ids []string
	for i := 0; i < 2; i++ {
		s := createTestStore(t)
		if _, err := s.AppendEvent(ctx, "s", evt); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
		records, err := s.ReadStream(ctx, "s")
		if err != nil {
			t.Fatalf("ReadStream() failed: %v", err)
		}
		ids = append(ids, records[0].ID)
	}
	if ids[0] != ids[1] {
		t.Errorf("event IDs differ across stores: %s vs %s", ids[0], ids[1])
	}

	if eventID("s", 1, "{}") == eventID("s", 2, "{}") {
		t.Error("event ID ignores seq")
	}
}

func TestWriteSnapshot_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.WriteSnapshot(ctx, "s", SnapshotFinal, ir.NewObject(ir.O("a", ir.Int(1))))
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	if _, err := s.AppendEvent(ctx, "s", createTestEvent("a", ir.Int(2))); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}
	state := ir.NewObject(ir.O("a", ir.Int(2)))
	second, err := s.WriteSnapshot(ctx, "s", SnapshotFinal, state)
	if err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	if first.StateHash == second.StateHash {
		t.Error("state hash did not change with state")
	}
	if second.StateHash != ir.MustStateHash(state) {
		t.Errorf("StateHash = %s, want ir.StateHash", second.StateHash)
	}

	got, err := s.ReadSnapshot(ctx, "s", SnapshotFinal)
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}
	if got.StateHash != second.StateHash {
		t.Errorf("read hash = %s, want %s", got.StateHash, second.StateHash)
	}
	if got.EventSeq != 1 {
		t.Errorf("EventSeq = %d, want 1", got.EventSeq)
	}
	if !ir.DeepEqual(got.State, state) {
		t.Errorf("State = %v, want %v", got.State, state)
	}
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), "s", SnapshotInitial)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadSnapshot() error = %v, want ErrNotFound", err)
	}
}

func TestStreams_SortedAndDeletable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		if err := s.CreateStream(ctx, name); err != nil {
			t.Fatalf("CreateStream(%q) failed: %v", name, err)
		}
	}
	if err := s.CreateStream(ctx, "a"); err != nil {
		t.Fatalf("CreateStream() not idempotent: %v", err)
	}
	if _, err := s.AppendEvent(ctx, "b", createTestEvent("x", ir.Int(1))); err != nil {
		t.Fatalf("AppendEvent() failed: %v", err)
	}

	names, err := s.Streams(ctx)
	if err != nil {
		t.Fatalf("Streams() failed: %v", err)
	}
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("Streams() = %v, want [a b c]", names)
	}

	if err := s.DeleteStream(ctx, "b"); err != nil {
		t.Fatalf("DeleteStream() failed: %v", err)
	}
	ok, err := s.StreamExists(ctx, "b")
	if err != nil {
		t.Fatalf("StreamExists() failed: %v", err)
	}
	if ok {
		t.Error("stream b still exists after delete")
	}
	records, _ := s.ReadStream(ctx, "b")
	if len(records) != 0 {
		t.Errorf("%d events survived DeleteStream", len(records))
	}
}
