// Package store defines the persistence boundary of the transition engine:
// reading the current value of an entity's governed attribute and committing
// a new value with an atomic compare-and-write.
//
// The engine performs exactly one read and at most one conditional write per
// attempt. ConditionalWrite is the whole concurrency story: when two racing
// attempts both read the same current value, the store guarantees that
// exactly one write succeeds and the loser observes ok=false with no partial
// write. Any durable key/record store that can express this check-and-set
// atomically qualifies.
//
// Three implementations ship with the package:
//
//   - Memory — mutex-guarded maps for tests and local development.
//   - Postgres — a single conditional UPDATE (or INSERT .. ON CONFLICT DO
//     NOTHING for the first write) over a pgx pool.
//   - Redis — a Lua script performing the check-and-set server side.
//
// By convention an empty expected value means "no value persisted yet"; the
// graph builder guarantees state names are never empty, so the convention is
// unambiguous.
package store
