package graph

import (
	"errors"
	"fmt"
)

// Builder assembles a Graph. Errors are collected and returned once from
// Build so call sites can chain fluently.
type Builder struct {
	entityType  string
	attribute   string
	initial     string
	states      map[string]*State
	transitions []*Transition
	errs        []error
}

// NewBuilder starts a graph for the given entity type and attribute.
func NewBuilder(entityType, attribute string) *Builder {
	b := &Builder{
		entityType: entityType,
		attribute:  attribute,
		states:     make(map[string]*State),
	}
	if entityType == "" {
		b.errs = append(b.errs, errors.New("entity type cannot be empty"))
	}
	if attribute == "" {
		b.errs = append(b.errs, errors.New("attribute cannot be empty"))
	}
	return b
}

// Initial sets the graph's initial state, registering it if needed. Setting
// it twice is an error: a graph has at most one initial state.
func (b *Builder) Initial(name string) *Builder {
	if b.initial != "" {
		b.errs = append(b.errs, fmt.Errorf("%w: %q then %q", ErrDuplicateInitialState, b.initial, name))
		return b
	}
	b.initial = name
	b.ensureState(name)
	return b
}

// State declares a state explicitly, replacing any auto-registered stub with
// the same name. Last write wins.
func (b *Builder) State(s State) *Builder {
	if s.Name == "" {
		b.errs = append(b.errs, errors.New("state name cannot be empty"))
		return b
	}
	if s.Name == Wildcard {
		b.errs = append(b.errs, fmt.Errorf("%q is reserved for wildcard transitions", Wildcard))
		return b
	}
	for i, cb := range s.OnEnter {
		b.checkQueueable(fmt.Sprintf("state %q enter callback %d", s.Name, i), cb.Callable, cb.Queued)
	}
	for i, cb := range s.OnExit {
		b.checkQueueable(fmt.Sprintf("state %q exit callback %d", s.Name, i), cb.Callable, cb.Queued)
	}
	st := s
	b.states[s.Name] = &st
	return b
}

// Transition appends a transition, auto-registering any state it references
// that has not been declared. A wildcard fromState is never registered as a
// state.
func (b *Builder) Transition(t Transition) *Builder {
	if t.To == "" {
		b.errs = append(b.errs, errors.New("transition target state cannot be empty"))
		return b
	}
	if t.From == "" {
		b.errs = append(b.errs, fmt.Errorf("transition to %q has no source state; use %q for a wildcard", t.To, Wildcard))
		return b
	}
	label := fmt.Sprintf("transition %s -> %s", t.From, t.To)
	for i, a := range t.Actions {
		b.checkQueueable(fmt.Sprintf("%s action %d", label, i), a.Callable, a.Queued)
	}
	for i, cb := range t.Before {
		b.checkQueueable(fmt.Sprintf("%s before callback %d", label, i), cb.Callable, cb.Queued)
	}
	for i, cb := range t.After {
		b.checkQueueable(fmt.Sprintf("%s after callback %d", label, i), cb.Callable, cb.Queued)
	}
	if !t.IsWildcard() {
		b.ensureState(t.From)
	}
	b.ensureState(t.To)
	tr := t
	b.transitions = append(b.transitions, &tr)
	return b
}

// Build validates and returns the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if b.initial == "" {
		b.errs = append(b.errs, ErrNoInitialState)
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("graph %s.%s: %w", b.entityType, b.attribute, errors.Join(b.errs...))
	}

	states := make(map[string]*State, len(b.states))
	for name, s := range b.states {
		states[name] = s
	}
	return &Graph{
		entityType:  b.entityType,
		attribute:   b.attribute,
		initial:     b.initial,
		states:      states,
		transitions: b.transitions,
	}, nil
}

// MustBuild is Build with fail-fast panics for static graph definitions
// wired at application start.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func (b *Builder) ensureState(name string) {
	if _, ok := b.states[name]; ok {
		return
	}
	b.states[name] = &State{Name: name}
}

func (b *Builder) checkQueueable(where string, c Callable, queued bool) {
	if c.IsZero() {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", where, ErrEmptyCallable))
		return
	}
	if queued && !c.IsNamed() {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", where, ErrQueuedClosure))
	}
}
