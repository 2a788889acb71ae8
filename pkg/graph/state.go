package graph

// State describes one node of a transition graph. States are keyed uniquely
// by Name within a graph.
type State struct {
	Name string
	// Terminal marks a state with no outgoing transitions expected.
	Terminal bool
	Priority int
	Category string
	Meta     map[string]any
	// EntryGuards gate entering the state regardless of which transition
	// targets it. Evaluated after the transition's own guard set.
	EntryGuards []Guard
	// OnEnter callbacks run after a committed transition into this state.
	OnEnter []Callback
	// OnExit callbacks run after a committed transition out of this state.
	OnExit []Callback
}

// Wildcard is the fromState value matching any current state. Wildcard
// transitions are the lowest-precedence fallback: they are consulted only
// when no exact fromState match exists.
const Wildcard = "*"
