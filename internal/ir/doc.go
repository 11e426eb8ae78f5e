// Package ir provides the value model that watched graphs are built from.
//
// A graph is made of scalar values (Null, String, Int, Bool) and mutable
// aggregates (*Object, *Array). Aggregates are the only values that may carry
// a watcher; they are compared by pointer identity, scalars by value.
//
// This package imports nothing internal. The watch, mirror and binding
// packages build on it.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Aggregates expose children through Watchable.VisitChildren, never reflection
//   - Object keys enumerate in RFC 8785 order so every walk is deterministic
//   - Raw mutators (Object.Set, Array.Splice, ...) never notify; notification is
//     the watch package's job
package ir
