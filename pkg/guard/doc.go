// Package guard composes and evaluates ordered guard sets for the transition
// engine.
//
// A Composite takes the guards of one transition, orders them by descending
// priority, and evaluates them under one of three strategies:
//
//   - graph.AllMustPass — every guard must return true; all failures are
//     collected and reported together.
//   - graph.AnyMustPass — the first passing guard wins; failure reasons are
//     collected only when every guard fails.
//   - graph.PriorityFirst — strict priority order, stop entirely on the
//     first pass.
//
// A guard with StopOnFailure set is critical: when it fails, evaluation
// halts immediately and lower-priority guards never run. A guard whose
// function returns an error (as opposed to false) is treated as a failed
// guard, wrapped with its description; it is never propagated raw.
//
// Evaluation failures are reported as *graph.TransitionError with code
// graph.CodeGuardRejected, whose reason literally enumerates every failing
// guard's description.
package guard
