package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/mirror"
	"github.com/roach88/objwatch/internal/watch"
)

// ErrNotAggregate is returned when a stream's initial snapshot is not an
// object or array.
var ErrNotAggregate = errors.New("journal: snapshot is not an object or array")

// ReplayResult reports how replaying a stream onto its initial snapshot
// compared with the recorded final snapshot.
type ReplayResult struct {
	Stream    string
	Events    int
	Applied   int
	OutOfSync int

	// ExpectedHash is the final snapshot's hash; empty when the stream has
	// no final snapshot.
	ExpectedHash string
	ActualHash   string

	State ir.Value
}

// Match reports whether the replayed state hashes to the recorded final
// state.
func (r ReplayResult) Match() bool {
	return r.ExpectedHash != "" && r.ExpectedHash == r.ActualHash
}

// Replay applies a stream's events through a mirror onto a copy of its
// initial snapshot. Events that do not apply are counted, not fatal.
//
// The mirror runs on a private registry unless opts supply one.
func (s *Store) Replay(ctx context.Context, stream string, opts ...mirror.Option) (ReplayResult, error) {
	initial, err := s.ReadSnapshot(ctx, stream, SnapshotInitial)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	return s.ReplayOnto(ctx, stream, initial.State, opts...)
}

// ReplayOnto is Replay with a caller-supplied starting state. state is
// mutated in place.
func (s *Store) ReplayOnto(ctx context.Context, stream string, state ir.Value, opts ...mirror.Option) (ReplayResult, error) {
	target, ok := ir.AsWatchable(state)
	if !ok {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", stream, ErrNotAggregate)
	}

	events, err := s.ReadEvents(ctx, stream)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{Stream: stream, Events: len(events), State: target}

	final, err := s.ReadSnapshot(ctx, stream, SnapshotFinal)
	switch {
	case err == nil:
		result.ExpectedHash = final.StateHash
	case errors.Is(err, ErrNotFound):
	default:
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	allOpts := append([]mirror.Option{mirror.WithRegistry(watch.NewRegistry())}, opts...)
	m := mirror.New(target, allOpts...)
	defer m.Dispose()

	// Out-of-sync events are reported through the counters.
	_ = m.HandleEvents(events, "")
	result.Applied = m.Applied()
	result.OutOfSync = m.OutOfSyncCount()

	result.ActualHash, err = ir.StateHash(target)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	return result, nil
}
