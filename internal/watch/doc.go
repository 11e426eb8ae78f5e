// Package watch implements change notification over ir object graphs.
//
// A Registry attaches at most one Watcher to each *ir.Object or *ir.Array.
// Mutations made through a watcher (or through the Registry's free functions,
// which pick the right Handle for any value) update the object and then
// deliver an Event:
//
//   - flat listeners of the mutated object, in registration order
//   - recursive listeners of the mutated object and of every watched
//     ancestor, each with the reverse path from the mutation site up to the
//     listener's object
//
// Recursive watching is opt-in per root and never turns off. Enabling it
// walks the subtree, gives every aggregate a watcher and records
// (parent watcher, key) links; structural mutations keep those links current
// so paths always name present positions. A watcher is disposed as soon as
// its ref count is zero and no ancestor links remain.
//
// Path and filter listeners are recursive listeners that match the event's
// path against a subscribed path or a Filter before calling back.
//
// Batching: RequestQueueChanges on a watcher buffers its own events and the
// recursive deliveries arriving from below until the matching
// RequestDequeueChanges, then flushes them in arrival order.
//
// Key design constraints:
//   - Single-threaded: a Registry and everything reachable from it belong to
//     one goroutine
//   - A listener panic is recovered, logged and reported; other listeners
//     still run
//   - Each event reaches each watcher once, even through diamonds and cycles
package watch
