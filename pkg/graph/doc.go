// Package graph defines the compiled, immutable description of a state
// machine attached to one (entity type, attribute) pair: states, transitions,
// guards, callbacks and actions, plus the runtime Input that travels through
// a single transition attempt.
//
// A Graph is built once at application start through the Builder and is then
// shared, read-only, across every transition attempt. All identity is plain
// string keys; host applications that prefer typed state enumerations convert
// at the boundary.
//
// # Building a graph
//
//	g, err := graph.NewBuilder("order", "status").
//	    Initial("pending").
//	    State(graph.State{Name: "delivered", Terminal: true}).
//	    Transition(graph.Transition{
//	        From:  "pending",
//	        To:    "processing",
//	        Event: "process",
//	        Guards: []graph.Guard{{
//	            Check:       hasStock,
//	            Description: "stock available",
//	            Priority:    10,
//	        }},
//	    }).
//	    Build()
//
// States referenced by a transition are registered automatically; declaring
// them explicitly is only needed to attach entry/exit behaviour, a terminal
// flag, or metadata.
//
// # Callables
//
// Side effects are modelled as a tagged Callable variant: either an inline
// Go function or a named reference resolvable through a handler registry.
// Only named callables may be queued for deferred execution; the Builder
// rejects a queued closure at compile time and the engine re-checks before
// any guard work runs.
//
// # Failure type
//
// Every failure an attempt can produce is normalized into *TransitionError,
// which carries the failure code, pipeline stage, and both state values, so
// callers always handle a single type.
package graph
