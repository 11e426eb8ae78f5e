package watch

import "sync/atomic"

// Clock is a monotonic counter used for watcher IDs.
//
// Watcher IDs are process-unique: every registry draws from the package
// clock, so IDs never collide even when tests run registries in parallel.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next value and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

var watcherIDs = NewClock()
