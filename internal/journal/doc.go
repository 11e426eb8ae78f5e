// Package journal provides SQLite-backed storage for recorded event streams.
//
// A stream is the ordered list of normalized recursive events observed at
// one root while a scenario ran, plus snapshots of the root's state:
//   - "initial": the state before the first event
//   - "final": the state after the last event
//
// Replaying a stream through a mirror onto a copy of the initial snapshot
// must reproduce the final snapshot's state hash.
//
// # Critical Patterns
//
// Logical ordering
//   - Events are ordered by seq within a stream, NEVER by timestamps
//   - All queries include ORDER BY seq ASC
//
// Deterministic payloads
//   - Events and snapshots are stored as RFC 8785 canonical JSON
//   - Event IDs and state hashes come from ir.DomainHash / ir.StateHash
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
