package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

func noop(context.Context, *graph.Input, map[string]any) error { return nil }

func TestBuilder(t *testing.T) {
	t.Parallel()

	t.Run("builds a minimal graph", func(t *testing.T) {
		t.Parallel()
		g, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{From: "pending", To: "paid"}).
			Build()

		require.NoError(t, err)
		assert.Equal(t, "order", g.EntityType())
		assert.Equal(t, "status", g.Attribute())
		assert.Equal(t, "pending", g.Initial())
	})

	t.Run("auto-registers transition endpoints as states", func(t *testing.T) {
		t.Parallel()
		g, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{From: "pending", To: "paid"}).
			Transition(graph.Transition{From: "paid", To: "shipped"}).
			Build()

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"pending", "paid", "shipped"}, g.StateNames())
	})

	t.Run("fails without initial state", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Transition(graph.Transition{From: "pending", To: "paid"}).
			Build()

		assert.ErrorIs(t, err, graph.ErrNoInitialState)
	})

	t.Run("fails when initial state is set twice", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Initial("paid").
			Build()

		assert.ErrorIs(t, err, graph.ErrDuplicateInitialState)
	})

	t.Run("rejects wildcard as state name", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			State(graph.State{Name: graph.Wildcard}).
			Build()

		assert.Error(t, err)
	})

	t.Run("rejects queued closure in actions", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending",
				To:   "paid",
				Actions: []graph.Action{
					{Callable: graph.NewFunc(noop), Queued: true},
				},
			}).
			Build()

		assert.ErrorIs(t, err, graph.ErrQueuedClosure)
	})

	t.Run("accepts queued named reference", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending",
				To:   "paid",
				Actions: []graph.Action{
					{Callable: graph.Named("send_receipt", nil), Queued: true},
				},
			}).
			Build()

		assert.NoError(t, err)
	})

	t.Run("rejects queued closure in state callbacks", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			State(graph.State{
				Name:    "paid",
				OnEnter: []graph.Callback{{Callable: graph.NewFunc(noop), Queued: true}},
			}).
			Build()

		assert.ErrorIs(t, err, graph.ErrQueuedClosure)
	})

	t.Run("rejects empty callable", func(t *testing.T) {
		t.Parallel()
		_, err := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From:    "pending",
				To:      "paid",
				Actions: []graph.Action{{}},
			}).
			Build()

		assert.ErrorIs(t, err, graph.ErrEmptyCallable)
	})

	t.Run("MustBuild panics on invalid graph", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			graph.NewBuilder("order", "status").MustBuild()
		})
	})
}

func TestGraphFind(t *testing.T) {
	t.Parallel()

	g := graph.NewBuilder("ticket", "status").
		Initial("open").
		Transition(graph.Transition{From: "open", To: "closed", Event: "close"}).
		Transition(graph.Transition{From: graph.Wildcard, To: "archived", Event: "archive"}).
		Transition(graph.Transition{From: graph.Wildcard, To: "closed", Event: "force_close"}).
		MustBuild()

	t.Run("finds exact transition", func(t *testing.T) {
		t.Parallel()
		tr, ok := g.Find("open", "closed", "close")
		require.True(t, ok)
		assert.Equal(t, "open", tr.From)
	})

	t.Run("exact match wins over wildcard", func(t *testing.T) {
		t.Parallel()
		tr, ok := g.Find("open", "closed", "")
		require.True(t, ok)
		assert.False(t, tr.IsWildcard())
	})

	t.Run("falls back to wildcard", func(t *testing.T) {
		t.Parallel()
		tr, ok := g.Find("closed", "archived", "")
		require.True(t, ok)
		assert.True(t, tr.IsWildcard())
	})

	t.Run("reports missing transition", func(t *testing.T) {
		t.Parallel()
		_, ok := g.Find("closed", "open", "")
		assert.False(t, ok)
	})

	t.Run("finds by event", func(t *testing.T) {
		t.Parallel()
		tr, ok := g.FindByEvent("open", "close")
		require.True(t, ok)
		assert.Equal(t, "closed", tr.To)

		tr, ok = g.FindByEvent("closed", "archive")
		require.True(t, ok)
		assert.Equal(t, "archived", tr.To)

		_, ok = g.FindByEvent("open", "unknown")
		assert.False(t, ok)
	})
}

func TestTransitionErrorPredicates(t *testing.T) {
	t.Parallel()

	err := graph.NewNoSuchTransition("order", "status", "paid", "pending")
	assert.True(t, graph.IsNoSuchTransition(err))
	assert.False(t, graph.IsGuardRejected(err))
	assert.Contains(t, err.Error(), `no defined transition from "paid" to "pending"`)

	gerr := graph.NewGuardRejected("order", "status", "pending", "paid", "Guard failed: has funds", nil)
	assert.True(t, graph.IsGuardRejected(gerr))
	assert.False(t, graph.IsConcurrentModification(gerr))
}
