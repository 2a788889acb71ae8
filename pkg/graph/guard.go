package graph

import "context"

// GuardFunc decides whether a transition may proceed. Only an explicit true
// passes; an error return counts as a failure and is wrapped with the guard's
// description. Guards must not mutate entity state.
type GuardFunc func(ctx context.Context, in *Input, params map[string]any) (bool, error)

// Guard is a described, prioritized predicate gating a transition.
type Guard struct {
	Check       GuardFunc
	Description string
	// Priority orders evaluation; higher runs first.
	Priority int
	// StopOnFailure marks the guard critical: if it fails, evaluation halts
	// immediately and lower-priority guards never run.
	StopOnFailure bool
	Params        map[string]any
}

// Strategy selects how a transition's guard set is composed.
type Strategy int

const (
	// AllMustPass requires every guard to pass; failures are collected and
	// reported together unless a critical guard short-circuits.
	AllMustPass Strategy = iota
	// AnyMustPass succeeds on the first passing guard in priority order and
	// fails only when every guard has failed.
	AnyMustPass
	// PriorityFirst evaluates in strict priority order and stops entirely on
	// the first pass, skipping all remaining guards.
	PriorityFirst
)

// String implements fmt.Stringer for log output.
func (s Strategy) String() string {
	switch s {
	case AllMustPass:
		return "all_must_pass"
	case AnyMustPass:
		return "any_must_pass"
	case PriorityFirst:
		return "priority_first"
	default:
		return "unknown"
	}
}
