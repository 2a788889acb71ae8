package graph

import "context"

// Func is an inline side-effect callable. Params carry the arguments attached
// to the owning action or callback at graph build time.
type Func func(ctx context.Context, in *Input, params map[string]any) error

// Callable is a tagged variant: either an inline function or a named,
// addressable reference that a handler registry can resolve. Only named
// callables are serializable and therefore queueable.
type Callable struct {
	fn     Func
	name   string
	params map[string]any
}

// NewFunc wraps an inline function as a Callable.
func NewFunc(fn Func) Callable {
	return Callable{fn: fn}
}

// Named creates a Callable referencing a registered handler by name.
func Named(name string, params map[string]any) Callable {
	return Callable{name: name, params: params}
}

// IsNamed reports whether the callable is a named reference.
func (c Callable) IsNamed() bool {
	return c.name != ""
}

// IsZero reports whether the callable holds neither a function nor a name.
func (c Callable) IsZero() bool {
	return c.fn == nil && c.name == ""
}

// Name returns the handler name for named callables, empty otherwise.
func (c Callable) Name() string {
	return c.name
}

// Params returns the arguments attached at build time.
func (c Callable) Params() map[string]any {
	return c.params
}

// Fn returns the inline function, or nil for named callables.
func (c Callable) Fn() Func {
	return c.fn
}

// Tier orders synchronous action execution around the commit point.
type Tier int

const (
	// TierImmediate actions run before the commit and observe the
	// pre-transition state value.
	TierImmediate Tier = iota
	// TierRegular actions run after the commit and observe the new,
	// persisted state value.
	TierRegular
	// TierCleanup actions run last, after every callback of the attempt.
	TierCleanup
)

// String implements fmt.Stringer for log output.
func (t Tier) String() string {
	switch t {
	case TierImmediate:
		return "immediate"
	case TierRegular:
		return "regular"
	case TierCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Action is a side-effecting operation tied to a transition.
type Action struct {
	Callable    Callable
	Tier        Tier
	Queued      bool
	Description string
}

// Callback is a side-effecting hook tied to a transition (before/after) or a
// state (entry/exit). Higher priority runs first.
type Callback struct {
	Callable    Callable
	Priority    int
	Queued      bool
	Description string
}
