package watch

import "github.com/roach88/objwatch/internal/ir"

// queuedDelivery is a buffered event. own entries originated at this
// watcher and replay the full delivery; the others arrived from a
// descendant and resume propagation here with the recorded path and the
// visited set of the original delivery.
type queuedDelivery struct {
	own     bool
	evt     Event
	path    ir.Path
	visited map[int64]struct{}
}

// RequestQueueChanges starts (or nests) a batch. Until the matching
// RequestDequeueChanges, events at this watcher and recursive deliveries
// reaching it are buffered in arrival order.
func (w *Watcher) RequestQueueChanges() {
	w.queueDepth++
}

// RequestDequeueChanges ends one level of batching. When the outermost
// level ends, buffered deliveries flush in arrival order.
// Fails with ErrUnbalancedQueue when no batch is open.
func (w *Watcher) RequestDequeueChanges() error {
	if w.queueDepth <= 0 {
		return newWatcherError(ErrUnbalancedQueue, w.id)
	}
	w.queueDepth--

	// A listener may open a new batch mid-flush; whatever is left waits for it.
	for w.queueDepth == 0 && len(w.queue) > 0 {
		q := w.queue[0]
		w.queue[0] = queuedDelivery{}
		if len(w.queue) == 1 {
			w.queue = w.queue[:0]
		} else {
			w.queue = w.queue[1:]
		}

		if q.own {
			w.deliver(q.evt)
		} else {
			w.fanOut(q.evt, q.path, q.visited)
		}
	}
	return nil
}

// QueueDepth returns the current batching depth.
func (w *Watcher) QueueDepth() int { return w.queueDepth }

// QueuedLen returns the number of buffered deliveries.
func (w *Watcher) QueuedLen() int { return len(w.queue) }
