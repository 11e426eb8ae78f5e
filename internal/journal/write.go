package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// Snapshot kinds written by the recorder.
const (
	SnapshotInitial = "initial"
	SnapshotFinal   = "final"
)

// CreateStream registers a stream name. Uses ON CONFLICT DO NOTHING, so
// creating an existing stream is a no-op.
func (s *Store) CreateStream(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streams (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	return nil
}

// AppendEvent appends one event to a stream and returns its seq.
func (s *Store) AppendEvent(ctx context.Context, stream string, evt watch.RecursiveEvent) (int64, error) {
	seqs, err := s.AppendEvents(ctx, stream, []watch.RecursiveEvent{evt})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// AppendEvents appends events to a stream in a single transaction. The
// stream is created if needed. Seqs continue from the stream's last seq and
// are returned in input order.
//
// Events are serialized to canonical JSON per RFC 8785; the event ID is the
// domain hash of (stream, seq, payload).
func (s *Store) AppendEvents(ctx context.Context, stream string, events []watch.RecursiveEvent) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append events: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO streams (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, stream); err != nil {
		return nil, fmt.Errorf("append events: %w", err)
	}

	last, err := lastSeq(ctx, tx, stream)
	if err != nil {
		return nil, fmt.Errorf("append events: %w", err)
	}

	seqs := make([]int64, 0, len(events))
	for i, evt := range events {
		payload, err := marshalEvent(evt)
		if err != nil {
			return nil, fmt.Errorf("append events: event %d: %w", i, err)
		}
		seq := last + int64(i) + 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (stream, seq, event_id, event_type, path, payload, source)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			stream,
			seq,
			eventID(stream, seq, payload),
			string(evt.Type),
			evt.Path.String(),
			payload,
			evt.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("append events: event %d: %w", i, err)
		}
		seqs = append(seqs, seq)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append events: commit: %w", err)
	}
	return seqs, nil
}

// WriteSnapshot stores state under (stream, kind), replacing any earlier
// snapshot of that kind. The snapshot is pinned to the stream's current
// last seq.
func (s *Store) WriteSnapshot(ctx context.Context, stream, kind string, state ir.Value) (Snapshot, error) {
	stateJSON, err := marshalState(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}
	hash := ir.DomainHash(ir.DomainState, []byte(stateJSON))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO streams (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, stream); err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	seq, err := lastSeq(ctx, tx, stream)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (stream, kind, state, state_hash, event_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stream, kind) DO UPDATE SET
			state = excluded.state,
			state_hash = excluded.state_hash,
			event_seq = excluded.event_seq
	`, stream, kind, stateJSON, hash, seq)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: commit: %w", err)
	}

	return Snapshot{
		Stream:    stream,
		Kind:      kind,
		State:     state,
		StateHash: hash,
		EventSeq:  seq,
	}, nil
}

// DeleteStream removes a stream with its events and snapshots.
func (s *Store) DeleteStream(ctx context.Context, stream string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete stream: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM events WHERE stream = ?`,
		`DELETE FROM snapshots WHERE stream = ?`,
		`DELETE FROM streams WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, stream); err != nil {
			return fmt.Errorf("delete stream: %w", err)
		}
	}
	return tx.Commit()
}

func lastSeq(ctx context.Context, tx *sql.Tx, stream string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events WHERE stream = ?
	`, stream).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
