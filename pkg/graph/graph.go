package graph

import (
	"slices"
)

// Graph is the compiled, immutable transition description for one
// (entity type, attribute) pair. Build one through the Builder and share it
// across attempts; it is never mutated after Build.
type Graph struct {
	entityType  string
	attribute   string
	initial     string
	states      map[string]*State
	transitions []*Transition
}

// EntityType returns the owning entity type.
func (g *Graph) EntityType() string { return g.entityType }

// Attribute returns the governed attribute name.
func (g *Graph) Attribute() string { return g.attribute }

// Initial returns the initial state name.
func (g *Graph) Initial() string { return g.initial }

// State looks up a state by name.
func (g *Graph) State(name string) (*State, bool) {
	s, ok := g.states[name]
	return s, ok
}

// StateNames returns all state names in sorted order.
func (g *Graph) StateNames() []string {
	names := make([]string, 0, len(g.states))
	for name := range g.states {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Transitions returns the transitions in declaration order.
func (g *Graph) Transitions() []*Transition {
	return g.transitions
}

// TransitionsFrom returns transitions whose fromState is exactly the given
// state, plus wildcard transitions, in declaration order.
func (g *Graph) TransitionsFrom(state string) []*Transition {
	var out []*Transition
	for _, t := range g.transitions {
		if t.From == state || t.IsWildcard() {
			out = append(out, t)
		}
	}
	return out
}

// Find locates the best-matching transition for an attempt from the current
// state to a requested target. An exact fromState match always takes
// precedence; wildcard transitions are consulted only when no exact match
// exists. An empty event matches any transition; a non-empty event must
// match exactly.
func (g *Graph) Find(from, to, event string) (*Transition, bool) {
	match := func(t *Transition) bool {
		if t.To != to {
			return false
		}
		return event == "" || t.Event == event
	}
	for _, t := range g.transitions {
		if t.From == from && match(t) {
			return t, true
		}
	}
	for _, t := range g.transitions {
		if t.IsWildcard() && match(t) {
			return t, true
		}
	}
	return nil, false
}

// FindByEvent resolves the transition (and therefore the target state) for
// an event fired from the given state, with the same exact-before-wildcard
// precedence as Find.
func (g *Graph) FindByEvent(from, event string) (*Transition, bool) {
	for _, t := range g.transitions {
		if t.From == from && t.Event == event {
			return t, true
		}
	}
	for _, t := range g.transitions {
		if t.IsWildcard() && t.Event == event {
			return t, true
		}
	}
	return nil, false
}
