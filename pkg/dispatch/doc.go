// Package dispatch executes transition side effects: inline for synchronous
// actions and callbacks, or through a submitted task when the work is
// declared queued.
//
// The Dispatcher never blocks the transition pipeline on queued work.
// Submit persists a Task — the callable's registered name, its build-time
// params, and a serialized snapshot of the attempt's Input — through a small
// QueueRepository interface, and returns immediately. Delivery is
// at-least-once with no ordering guarantee; queued failures are observed by
// the worker's log and can never fail the transition that enqueued them.
//
// Only named callables can be queued: a closure has no stable identity to
// serialize. The graph builder and the engine both reject queued closures
// before any work runs; Submit keeps a final defensive check.
//
// The Worker claims pending tasks, reloads the owning entity by id, and
// runs the named handler resolved from the shared catalog. A task whose
// entity no longer exists is completed as a no-op with a diagnostic log
// entry, not an error.
package dispatch
