package guard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Composite evaluates one transition's guard set under a strategy.
type Composite struct {
	strategy graph.Strategy
	guards   []graph.Guard
}

// NewComposite builds a composite over the given guards. Guards are ordered
// by descending priority; the original slice is not modified.
func NewComposite(strategy graph.Strategy, guards []graph.Guard) *Composite {
	ordered := slices.Clone(guards)
	slices.SortStableFunc(ordered, func(a, b graph.Guard) int {
		return b.Priority - a.Priority
	})
	return &Composite{strategy: strategy, guards: ordered}
}

// Evaluate runs the guard set against the attempt input. It returns nil on
// success, otherwise a *graph.TransitionError enumerating the failing
// guards' descriptions.
func (c *Composite) Evaluate(ctx context.Context, in *graph.Input) error {
	if len(c.guards) == 0 {
		return nil
	}
	switch c.strategy {
	case graph.AnyMustPass:
		return c.evaluateAny(ctx, in)
	case graph.PriorityFirst:
		return c.evaluatePriorityFirst(ctx, in)
	default:
		return c.evaluateAll(ctx, in)
	}
}

// Evaluate is a convenience wrapper for a one-shot evaluation.
func Evaluate(ctx context.Context, strategy graph.Strategy, guards []graph.Guard, in *graph.Input) error {
	return NewComposite(strategy, guards).Evaluate(ctx, in)
}

// outcome is a single guard's evaluation result.
type outcome struct {
	passed bool
	desc   string
	err    error
}

func (c *Composite) run(ctx context.Context, g graph.Guard, in *graph.Input) outcome {
	desc := g.Description
	if desc == "" {
		desc = "unnamed guard"
	}
	if g.Check == nil {
		return outcome{passed: false, desc: desc, err: fmt.Errorf("guard %q has no check function", desc)}
	}
	ok, err := g.Check(ctx, in, g.Params)
	if err != nil {
		return outcome{passed: false, desc: desc, err: fmt.Errorf("guard %q: %w", desc, err)}
	}
	return outcome{passed: ok, desc: desc}
}

func (c *Composite) evaluateAll(ctx context.Context, in *graph.Input) error {
	var failed []outcome
	for _, g := range c.guards {
		o := c.run(ctx, g, in)
		if o.passed {
			continue
		}
		if g.StopOnFailure {
			return critical(in, o)
		}
		failed = append(failed, o)
	}
	if len(failed) == 0 {
		return nil
	}
	return rejected(in, failed)
}

func (c *Composite) evaluateAny(ctx context.Context, in *graph.Input) error {
	var failed []outcome
	for _, g := range c.guards {
		o := c.run(ctx, g, in)
		if o.passed {
			return nil
		}
		if g.StopOnFailure {
			return critical(in, o)
		}
		failed = append(failed, o)
	}
	return rejected(in, failed)
}

// evaluatePriorityFirst stops on the first pass and, unlike AnyMustPass,
// reports only the highest-priority failure when everything fails.
func (c *Composite) evaluatePriorityFirst(ctx context.Context, in *graph.Input) error {
	var first *outcome
	for _, g := range c.guards {
		o := c.run(ctx, g, in)
		if o.passed {
			return nil
		}
		if g.StopOnFailure {
			return critical(in, o)
		}
		if first == nil {
			first = &o
		}
	}
	return rejected(in, []outcome{*first})
}

func critical(in *graph.Input, o outcome) error {
	return graph.NewGuardRejected(in.EntityType, in.Attribute, in.From, in.To,
		fmt.Sprintf("critical guard failed: %s", o.desc), o.err)
}

func rejected(in *graph.Input, failed []outcome) error {
	descs := make([]string, len(failed))
	var errs []error
	for i, o := range failed {
		descs[i] = o.desc
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	reason := "Guard failed: " + descs[0]
	if len(descs) > 1 {
		reason = "Multiple guards failed: " + strings.Join(descs, ", ")
	}
	return graph.NewGuardRejected(in.EntityType, in.Attribute, in.From, in.To, reason, errors.Join(errs...))
}
