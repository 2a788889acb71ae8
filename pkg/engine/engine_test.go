package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateflow/pkg/dispatch"
	"github.com/dmitrymomot/stateflow/pkg/engine"
	"github.com/dmitrymomot/stateflow/pkg/eventlog"
	"github.com/dmitrymomot/stateflow/pkg/graph"
	"github.com/dmitrymomot/stateflow/pkg/registry"
	"github.com/dmitrymomot/stateflow/pkg/store"
)

type fixture struct {
	registry *registry.Registry
	catalog  *registry.Catalog
	store    *store.Memory
	queue    *dispatch.MemoryQueue
	log      *eventlog.Service
	engine   *engine.Engine
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	f := &fixture{
		registry: registry.New(),
		catalog:  registry.NewCatalog(),
		store:    store.NewMemory(),
		queue:    dispatch.NewMemoryQueue(),
	}
	d, err := dispatch.NewDispatcher(f.catalog, dispatch.WithQueue(f.queue))
	require.NoError(t, err)

	f.log, err = eventlog.NewService(eventlog.NewMemory(), f.registry)
	require.NoError(t, err)

	opts = append([]engine.Option{engine.WithRecorder(f.log)}, opts...)
	f.engine, err = engine.New(f.registry, f.store, d, opts...)
	require.NoError(t, err)
	return f
}

var (
	orderRef = store.Ref{Type: "order", ID: "ord_1"}
	orderKey = eventlog.Key{EntityType: "order", EntityID: "ord_1", Attribute: "status"}
)

func payRequest() engine.Request {
	return engine.Request{
		EntityType: "order",
		EntityID:   "ord_1",
		Attribute:  "status",
		To:         "paid",
	}
}

func simpleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return graph.NewBuilder("order", "status").
		Initial("pending").
		Transition(graph.Transition{From: "pending", To: "paid", Event: "pay"}).
		Transition(graph.Transition{From: "paid", To: "refunded", Event: "refund"}).
		MustBuild()
}

func readState(t *testing.T, f *fixture) (string, bool) {
	t.Helper()
	v, found, err := f.store.ReadState(context.Background(), orderRef, "status")
	require.NoError(t, err)
	return v, found
}

func TestTransitionSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commits, records and runs callbacks", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var afterRan bool
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				After: []graph.Callback{{
					Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
						afterRan = true
						return nil
					}),
				}},
			}).
			MustBuild())

		require.NoError(t, f.engine.Transition(ctx, payRequest()))

		v, found := readState(t, f)
		require.True(t, found)
		assert.Equal(t, "paid", v)
		assert.True(t, afterRan)

		entries, err := f.log.History(ctx, orderKey)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "pending", entries[0].From)
		assert.Equal(t, "paid", entries[0].To)
	})

	t.Run("unwritten entity starts from the initial state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(simpleGraph(t))

		require.NoError(t, f.engine.Transition(ctx, payRequest()))

		v, _ := readState(t, f)
		assert.Equal(t, "paid", v)
	})

	t.Run("callback priority orders execution", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var order []string
		cb := func(name string, priority int) graph.Callback {
			return graph.Callback{
				Priority: priority,
				Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
					order = append(order, name)
					return nil
				}),
			}
		}
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				After: []graph.Callback{cb("low", 1), cb("high", 10), cb("mid", 5)},
			}).
			MustBuild())

		require.NoError(t, f.engine.Transition(ctx, payRequest()))
		assert.Equal(t, []string{"high", "mid", "low"}, order)
	})
}

func TestTransitionFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("undefined transition leaves state unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(simpleGraph(t))
		f.store.Seed(orderRef, "status", "refunded")

		err := f.engine.Transition(ctx, payRequest())
		require.Error(t, err)
		assert.True(t, graph.IsNoSuchTransition(err))

		v, _ := readState(t, f)
		assert.Equal(t, "refunded", v)
	})

	t.Run("unregistered graph is a configuration error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.engine.Transition(ctx, payRequest())
		assert.ErrorIs(t, err, engine.ErrDefinitionNotFound)
	})

	t.Run("guard rejection keeps state and skips later stages", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var afterRan bool
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				Guards: []graph.Guard{{
					Description: "has funds",
					Check: func(context.Context, *graph.Input, map[string]any) (bool, error) {
						return false, nil
					},
				}},
				After: []graph.Callback{{
					Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
						afterRan = true
						return nil
					}),
				}},
			}).
			MustBuild())

		err := f.engine.Transition(ctx, payRequest())
		require.Error(t, err)
		assert.True(t, graph.IsGuardRejected(err))
		assert.Contains(t, err.Error(), "Guard failed: has funds")
		assert.False(t, afterRan)

		_, found := readState(t, f)
		assert.False(t, found, "rejected attempt must not write state")
	})

	t.Run("entry guards gate the destination state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			State(graph.State{
				Name: "paid",
				EntryGuards: []graph.Guard{{
					Description: "payment verified",
					Check: func(context.Context, *graph.Input, map[string]any) (bool, error) {
						return false, nil
					},
				}},
			}).
			Transition(graph.Transition{From: "pending", To: "paid"}).
			MustBuild())

		err := f.engine.Transition(ctx, payRequest())
		require.Error(t, err)
		assert.True(t, graph.IsGuardRejected(err))
		assert.Contains(t, err.Error(), "payment verified")
	})

	t.Run("queued closure is rejected before guards run", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var guardRan bool
		// Assembled without the builder to bypass its build-time check.
		b := graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				Guards: []graph.Guard{{
					Description: "has funds",
					Check: func(context.Context, *graph.Input, map[string]any) (bool, error) {
						guardRan = true
						return true, nil
					},
				}},
			})
		g := b.MustBuild()
		tr, ok := g.Find("pending", "paid", "")
		require.True(t, ok)
		tr.Actions = append(tr.Actions, graph.Action{
			Queued:   true,
			Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error { return nil }),
		})
		f.registry.Register(g)

		err := f.engine.Transition(ctx, payRequest())
		require.Error(t, err)
		assert.True(t, graph.IsQueuedClosureRejected(err))
		assert.False(t, guardRan, "closure rejection must precede guard evaluation")

		_, found := readState(t, f)
		assert.False(t, found)
	})

	t.Run("post-commit failure reports but does not roll back", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				After: []graph.Callback{{
					Description: "sync crm",
					Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
						return errors.New("crm timeout")
					}),
				}},
			}).
			MustBuild())

		err := f.engine.Transition(ctx, payRequest())
		require.Error(t, err)
		assert.True(t, graph.IsCallbackFailure(err))

		v, _ := readState(t, f)
		assert.Equal(t, "paid", v, "commit must survive dispatch failures")

		entries, lerr := f.log.History(ctx, orderKey)
		require.NoError(t, lerr)
		assert.Len(t, entries, 1)
	})
}

// casStore wedges between the engine and a Memory store to force a lost
// compare-and-set, simulating a concurrent writer.
type casStore struct {
	*store.Memory
	interfere func()
}

func (s *casStore) ConditionalWrite(ctx context.Context, ref store.Ref, attribute, expected, value string) (bool, error) {
	if s.interfere != nil {
		s.interfere()
		s.interfere = nil
	}
	return s.Memory.ConditionalWrite(ctx, ref, attribute, expected, value)
}

func TestConcurrentModification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := store.NewMemory()
	mem.Seed(orderRef, "status", "pending")
	wedged := &casStore{Memory: mem}
	wedged.interfere = func() {
		// A rival writer lands between this attempt's read and its write.
		ok, err := mem.ConditionalWrite(ctx, orderRef, "status", "pending", "cancelled")
		require.NoError(t, err)
		require.True(t, ok)
	}

	reg := registry.New()
	reg.Register(graph.NewBuilder("order", "status").
		Initial("pending").
		Transition(graph.Transition{From: "pending", To: "paid"}).
		Transition(graph.Transition{From: "pending", To: "cancelled"}).
		MustBuild())

	d, err := dispatch.NewDispatcher(registry.NewCatalog())
	require.NoError(t, err)
	eng, err := engine.New(reg, wedged, d)
	require.NoError(t, err)

	err = eng.Transition(ctx, payRequest())
	require.Error(t, err)
	assert.True(t, graph.IsConcurrentModification(err))

	v, _, err := mem.ReadState(ctx, orderRef, "status")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", v, "final state must be exactly the winner's value")
}

func TestActionTiers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	var observed = map[string]string{}
	snapshot := func(tier string) graph.Func {
		return func(ctx context.Context, in *graph.Input, _ map[string]any) error {
			v, found, err := f.store.ReadState(ctx, store.Ref{Type: in.EntityType, ID: in.EntityID}, in.Attribute)
			if err != nil {
				return err
			}
			if !found {
				v = "(unset)"
			}
			observed[tier] = v
			return nil
		}
	}
	f.registry.Register(graph.NewBuilder("order", "status").
		Initial("pending").
		Transition(graph.Transition{
			From: "pending", To: "paid",
			Actions: []graph.Action{
				{Tier: graph.TierImmediate, Callable: graph.NewFunc(snapshot("immediate"))},
				{Tier: graph.TierRegular, Callable: graph.NewFunc(snapshot("regular"))},
				{Tier: graph.TierCleanup, Callable: graph.NewFunc(snapshot("cleanup"))},
			},
		}).
		MustBuild())

	require.NoError(t, f.engine.Transition(ctx, payRequest()))

	assert.Equal(t, "(unset)", observed["immediate"], "immediate actions run before the commit")
	assert.Equal(t, "paid", observed["regular"])
	assert.Equal(t, "paid", observed["cleanup"])
}

func TestQueuedDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.catalog.RegisterFunc("send_receipt", func(context.Context, *graph.Input, map[string]any) error {
		return nil
	})
	f.registry.Register(graph.NewBuilder("order", "status").
		Initial("pending").
		Transition(graph.Transition{
			From: "pending", To: "paid",
			Actions: []graph.Action{{
				Queued:   true,
				Callable: graph.Named("send_receipt", map[string]any{"template": "v2"}),
			}},
		}).
		MustBuild())

	require.NoError(t, f.engine.Transition(ctx, payRequest()))

	tasks := f.queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "send_receipt", tasks[0].Name)
	assert.Equal(t, dispatch.TaskStatusPending, tasks[0].Status)
	assert.Equal(t, "paid", tasks[0].Input.To)
}

func TestFire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.registry.Register(simpleGraph(t))

	req := engine.Request{
		EntityType: "order",
		EntityID:   "ord_1",
		Attribute:  "status",
		Event:      "pay",
	}
	require.NoError(t, f.engine.Fire(ctx, req))

	v, _ := readState(t, f)
	assert.Equal(t, "paid", v)

	t.Run("unknown event is no such transition", func(t *testing.T) {
		err := f.engine.Fire(ctx, engine.Request{
			EntityType: "order", EntityID: "ord_1", Attribute: "status", Event: "archive",
		})
		require.Error(t, err)
		assert.True(t, graph.IsNoSuchTransition(err))
	})

	t.Run("event is required", func(t *testing.T) {
		err := f.engine.Fire(ctx, engine.Request{
			EntityType: "order", EntityID: "ord_1", Attribute: "status",
		})
		assert.ErrorIs(t, err, engine.ErrInvalidRequest)
	})
}

func TestDryRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("possible transition with no side effects", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		var sideEffects int
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				Before: []graph.Callback{{
					Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
						sideEffects++
						return nil
					}),
				}},
				Actions: []graph.Action{{
					Tier: graph.TierImmediate,
					Callable: graph.NewFunc(func(context.Context, *graph.Input, map[string]any) error {
						sideEffects++
						return nil
					}),
				}},
			}).
			MustBuild())

		res, err := f.engine.DryRun(ctx, payRequest())
		require.NoError(t, err)
		assert.True(t, res.CanTransition)
		assert.Equal(t, "pending", res.From)
		assert.Equal(t, "paid", res.To)

		assert.Zero(t, sideEffects, "dry run must not run callbacks or actions")
		_, found := readState(t, f)
		assert.False(t, found, "dry run must not write state")
		entries, err := f.log.History(ctx, orderKey)
		require.NoError(t, err)
		assert.Empty(t, entries, "dry run must not record history")
		assert.Empty(t, f.queue.Tasks(), "dry run must not enqueue tasks")
	})

	t.Run("impossible transition explains itself without an error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(simpleGraph(t))
		f.store.Seed(orderRef, "status", "refunded")

		res, err := f.engine.DryRun(ctx, payRequest())
		require.NoError(t, err)
		assert.False(t, res.CanTransition)
		assert.Equal(t, "refunded", res.From)
		assert.Contains(t, res.Message, "no defined transition")
		assert.Equal(t, string(graph.CodeNoSuchTransition), res.Reason)
	})

	t.Run("guard rejection is explained", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.registry.Register(graph.NewBuilder("order", "status").
			Initial("pending").
			Transition(graph.Transition{
				From: "pending", To: "paid",
				Guards: []graph.Guard{{
					Description: "has funds",
					Check: func(context.Context, *graph.Input, map[string]any) (bool, error) {
						return false, nil
					},
				}},
			}).
			MustBuild())

		res, err := f.engine.DryRun(ctx, payRequest())
		require.NoError(t, err)
		assert.False(t, res.CanTransition)
		assert.Contains(t, res.Message, "Guard failed: has funds")
		assert.Equal(t, string(graph.CodeGuardRejected), res.Reason)
	})
}

func TestObservers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var kinds []engine.Kind
	obs := engine.ObserverFunc(func(_ context.Context, n engine.Notification) {
		kinds = append(kinds, n.Kind)
	})
	metrics := engine.NewMetrics()

	f := newFixture(t, engine.WithObserver(obs), engine.WithObserver(metrics))
	f.registry.Register(simpleGraph(t))

	require.NoError(t, f.engine.Transition(ctx, payRequest()))
	assert.Equal(t, []engine.Kind{engine.Attempted, engine.Succeeded}, kinds)

	// Second attempt fails: paid -> paid has no transition.
	err := f.engine.Transition(ctx, payRequest())
	require.Error(t, err)
	assert.Equal(t, []engine.Kind{engine.Attempted, engine.Succeeded, engine.Attempted, engine.Failed}, kinds)

	v := metrics.Values("order", "status")
	assert.EqualValues(t, 2, v.Attempted)
	assert.EqualValues(t, 1, v.Succeeded)
	assert.EqualValues(t, 1, v.Failed)
}
