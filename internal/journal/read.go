package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// Record is a stored event with its stream position.
type Record struct {
	Stream string
	Seq    int64
	ID     string
	Event  watch.RecursiveEvent
}

// Snapshot is a stored state of a stream's root.
type Snapshot struct {
	Stream    string
	Kind      string
	State     ir.Value
	StateHash string

	// EventSeq is the last event seq in the stream when the snapshot was
	// taken.
	EventSeq int64
}

// ReadStream returns all events of a stream ordered by seq.
//
// Returns an empty slice (not nil) if the stream has no events.
func (s *Store) ReadStream(ctx context.Context, stream string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, event_id, payload
		FROM events
		WHERE stream = ?
		ORDER BY seq ASC
	`, stream)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     = Record{Stream: stream}
			payload string
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Event, err = unmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("event seq %d: %w", rec.Seq, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []Record{}
	}

	return records, nil
}

// ReadEvents is ReadStream without positions.
func (s *Store) ReadEvents(ctx context.Context, stream string) ([]watch.RecursiveEvent, error) {
	records, err := s.ReadStream(ctx, stream)
	if err != nil {
		return nil, err
	}
	events := make([]watch.RecursiveEvent, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}
	return events, nil
}

// ReadSnapshot returns the snapshot of the given kind. Returns ErrNotFound
// if it was never written.
func (s *Store) ReadSnapshot(ctx context.Context, stream, kind string) (Snapshot, error) {
	var (
		snap      = Snapshot{Stream: stream, Kind: kind}
		stateJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT state, state_hash, event_seq
		FROM snapshots
		WHERE stream = ? AND kind = ?
	`, stream, kind).Scan(&stateJSON, &snap.StateHash, &snap.EventSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("snapshot %s/%s: %w", stream, kind, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}

	snap.State, err = ir.UnmarshalValue([]byte(stateJSON))
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s/%s: %w", stream, kind, err)
	}
	return snap, nil
}

// Streams returns all stream names in byte order.
func (s *Store) Streams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM streams ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return names, nil
}

// StreamExists reports whether a stream has been created.
func (s *Store) StreamExists(ctx context.Context, stream string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM streams WHERE name = ?
	`, stream).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query stream: %w", err)
	}
	return n > 0, nil
}
