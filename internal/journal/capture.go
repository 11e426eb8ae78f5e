package journal

import (
	"context"
	"fmt"

	"github.com/roach88/objwatch/internal/ir"
	"github.com/roach88/objwatch/internal/watch"
)

// Capture records the recursive events of one root into a stream.
//
// Listener delivery is synchronous and cannot block on the database, so
// events are buffered in memory and written by Flush.
//
// Thread-safety: Capture runs on the goroutine that owns the registry.
type Capture struct {
	store   *Store
	stream  string
	root    ir.Watchable
	buf     []watch.RecursiveEvent
	dispose func()
}

// NewCapture creates a capture for stream. Nothing is recorded until Start.
func NewCapture(store *Store, stream string) *Capture {
	return &Capture{store: store, stream: stream}
}

// Stream returns the stream name.
func (c *Capture) Stream() string { return c.stream }

// Start writes the initial snapshot of root and begins buffering its
// recursive events.
func (c *Capture) Start(ctx context.Context, reg *watch.Registry, root ir.Watchable) error {
	if c.dispose != nil {
		return fmt.Errorf("capture %s: already started", c.stream)
	}
	if _, err := c.store.WriteSnapshot(ctx, c.stream, SnapshotInitial, root); err != nil {
		return fmt.Errorf("capture %s: %w", c.stream, err)
	}
	c.root = root
	c.dispose = reg.Watch(root).AddRecursiveListener(c.Listener())
	return nil
}

// Listener returns a recursive listener that buffers normalized events.
func (c *Capture) Listener() watch.RecursiveListener {
	return func(_ ir.Watchable, evt watch.Event, reversePath ir.Path) {
		c.buf = append(c.buf, watch.Normalize(evt, reversePath))
	}
}

// Pending returns the number of buffered events.
func (c *Capture) Pending() int { return len(c.buf) }

// Flush appends buffered events to the stream and clears the buffer.
// Returns the number of events written.
func (c *Capture) Flush(ctx context.Context) (int, error) {
	if len(c.buf) == 0 {
		return 0, nil
	}
	if _, err := c.store.AppendEvents(ctx, c.stream, c.buf); err != nil {
		return 0, fmt.Errorf("capture %s: %w", c.stream, err)
	}
	n := len(c.buf)
	c.buf = nil
	return n, nil
}

// Stop flushes, writes the final snapshot and detaches the listener.
func (c *Capture) Stop(ctx context.Context) (Snapshot, error) {
	if c.dispose == nil {
		return Snapshot{}, fmt.Errorf("capture %s: not started", c.stream)
	}
	c.dispose()
	c.dispose = nil

	if _, err := c.Flush(ctx); err != nil {
		return Snapshot{}, err
	}
	snap, err := c.store.WriteSnapshot(ctx, c.stream, SnapshotFinal, c.root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture %s: %w", c.stream, err)
	}
	return snap, nil
}
