package graph

// Transition describes one permitted state change. From may be Wildcard.
// Multiple transitions may share an event name as long as From differs.
type Transition struct {
	From        string
	To          string
	Event       string
	Description string
	// Strategy selects guard composition; zero value is AllMustPass.
	Strategy Strategy
	Guards   []Guard
	// Before callbacks run during guard checking, prior to the commit.
	Before []Callback
	// After callbacks run once the new state is persisted.
	After   []Callback
	Actions []Action
}

// ActionsByTier returns the transition's actions of the given tier,
// preserving declaration order.
func (t *Transition) ActionsByTier(tier Tier) []Action {
	var out []Action
	for _, a := range t.Actions {
		if a.Tier == tier {
			out = append(out, a)
		}
	}
	return out
}

// IsWildcard reports whether the transition matches any current state.
func (t *Transition) IsWildcard() bool {
	return t.From == Wildcard
}
