package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/stateflow/pkg/eventlog"
	"github.com/dmitrymomot/stateflow/pkg/graph"
	"github.com/dmitrymomot/stateflow/pkg/guard"
	"github.com/dmitrymomot/stateflow/pkg/store"
)

// GraphProvider resolves a transition graph for an entity type and
// attribute. The definition registry satisfies it.
type GraphProvider interface {
	Get(entityType, attribute string) (*graph.Graph, bool)
}

// Runner executes callbacks and actions, inline or via the task queue.
// The dispatch package's Dispatcher satisfies it.
type Runner interface {
	RunInline(ctx context.Context, c graph.Callable, in *graph.Input) error
	Submit(ctx context.Context, c graph.Callable, in *graph.Input) error
}

// Recorder appends committed transitions to the event log.
type Recorder interface {
	Record(ctx context.Context, entry eventlog.Entry) error
}

// Engine runs transition attempts through the pipeline.
type Engine struct {
	graphs    GraphProvider
	store     store.EntityStore
	runner    Runner
	recorder  Recorder
	logger    *slog.Logger
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches an event log; committed transitions are recorded.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers a lifecycle observer. May be repeated.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New creates an engine over the given graphs, entity store and runner.
func New(graphs GraphProvider, st store.EntityStore, runner Runner, opts ...Option) (*Engine, error) {
	if graphs == nil {
		return nil, ErrGraphsNil
	}
	if st == nil {
		return nil, ErrStoreNil
	}
	if runner == nil {
		return nil, ErrRunnerNil
	}
	e := &Engine{
		graphs: graphs,
		store:  st,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Request describes one transition attempt. To names the target state; for
// event-driven attempts via Fire, Event is set instead and the target is
// resolved from the graph.
type Request struct {
	EntityType string
	EntityID   string
	Attribute  string
	To         string
	Event      string
	// Context is the caller payload handed to guards, callbacks and actions.
	Context map[string]any
}

func (r Request) validate() error {
	if r.EntityType == "" || r.EntityID == "" || r.Attribute == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Transition attempts to move the entity's attribute to req.To. On success
// the new state is committed, the event log entry recorded and side effects
// dispatched. Failures return a *graph.TransitionError; configuration
// problems return plain errors.
//
// A failure during post-commit dispatch does not roll the state back: the
// returned error carries CodeCallbackFailure, but the entity remains in the
// new state and the transition is recorded.
func (e *Engine) Transition(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	if req.To == "" {
		return fmt.Errorf("%w: target state is required", ErrInvalidRequest)
	}
	return e.run(ctx, req, false)
}

// Fire is the event-driven form of Transition: the destination state comes
// from the transition matching req.Event in the entity's current state.
func (e *Engine) Fire(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return err
	}
	if req.Event == "" {
		return fmt.Errorf("%w: event is required", ErrInvalidRequest)
	}
	return e.run(ctx, req, true)
}

func (e *Engine) run(ctx context.Context, req Request, byEvent bool) error {
	start := time.Now()

	g, t, current, found, err := e.resolve(ctx, req, byEvent)
	if err != nil {
		return err
	}

	in := &graph.Input{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Attribute:  req.Attribute,
		From:       current,
		Event:      req.Event,
		Context:    req.Context,
	}
	if t != nil {
		in.To = t.To
	} else {
		in.To = req.To
	}
	e.notify(ctx, Attempted, in, nil, 0)

	if t == nil {
		return e.fail(ctx, in, start,
			graph.NewNoSuchTransition(req.EntityType, req.Attribute, current, in.To))
	}
	if err := checkQueuedCallables(g, t, in); err != nil {
		return e.fail(ctx, in, start, err)
	}

	if err := e.guardStage(ctx, g, t, in); err != nil {
		return e.fail(ctx, in, start, err)
	}

	if err := e.commit(ctx, in, current, found); err != nil {
		return e.fail(ctx, in, start, err)
	}

	dispatchErr := e.dispatchStage(ctx, g, t, in)

	e.record(ctx, in)
	e.notify(ctx, Succeeded, in, nil, time.Since(start))
	e.logger.InfoContext(ctx, "transition committed",
		slog.String("entity", in.EntityType+"/"+in.EntityID),
		slog.String("attribute", in.Attribute),
		slog.String("from", in.From),
		slog.String("to", in.To),
		slog.Duration("duration", time.Since(start)))

	if dispatchErr != nil {
		return graph.NewCallbackFailure(graph.StageDispatching,
			in.EntityType, in.Attribute, in.From, in.To,
			"post-commit dispatch failed", dispatchErr)
	}
	return nil
}

// DryRunResult is the outcome of a dry-run check.
type DryRunResult struct {
	CanTransition bool   `json:"can_transition"`
	From          string `json:"from"`
	To            string `json:"to"`
	Message       string `json:"message,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// DryRun answers whether the transition would currently succeed, running
// resolution and guard checks only. No state is written, no callback or
// action runs, no notification fires and nothing is recorded.
func (e *Engine) DryRun(ctx context.Context, req Request) (DryRunResult, error) {
	if err := req.validate(); err != nil {
		return DryRunResult{}, err
	}
	byEvent := req.To == "" && req.Event != ""

	g, t, current, _, err := e.resolve(ctx, req, byEvent)
	if err != nil {
		return DryRunResult{}, err
	}
	if t == nil {
		terr := graph.NewNoSuchTransition(req.EntityType, req.Attribute, current, req.To)
		return DryRunResult{From: current, To: req.To, Message: terr.Reason, Reason: string(terr.Code)}, nil
	}

	in := &graph.Input{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Attribute:  req.Attribute,
		From:       current,
		To:         t.To,
		Event:      req.Event,
		Context:    req.Context,
	}
	if err := checkQueuedCallables(g, t, in); err != nil {
		return dryRejected(in, err), nil
	}
	if err := guard.Evaluate(ctx, t.Strategy, t.Guards, in); err != nil {
		return dryRejected(in, err), nil
	}
	if dest, ok := g.State(t.To); ok && len(dest.EntryGuards) > 0 {
		if err := guard.Evaluate(ctx, graph.AllMustPass, dest.EntryGuards, in); err != nil {
			return dryRejected(in, err), nil
		}
	}
	return DryRunResult{CanTransition: true, From: current, To: t.To}, nil
}

func dryRejected(in *graph.Input, err error) DryRunResult {
	res := DryRunResult{From: in.From, To: in.To, Message: err.Error()}
	var terr *graph.TransitionError
	if errors.As(err, &terr) {
		res.Message = terr.Reason
		res.Reason = string(terr.Code)
	}
	return res
}

// resolve looks up the graph, reads the current state (falling back to the
// graph's initial state when the entity has never been written) and finds
// the matching transition. t is nil when no transition matches.
func (e *Engine) resolve(ctx context.Context, req Request, byEvent bool) (g *graph.Graph, t *graph.Transition, current string, found bool, err error) {
	g, ok := e.graphs.Get(req.EntityType, req.Attribute)
	if !ok {
		return nil, nil, "", false, fmt.Errorf("%w: %s.%s", ErrDefinitionNotFound, req.EntityType, req.Attribute)
	}

	ref := store.Ref{Type: req.EntityType, ID: req.EntityID}
	current, found, err = e.store.ReadState(ctx, ref, req.Attribute)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("engine: read state: %w", err)
	}
	if !found {
		current = g.Initial()
	}

	if byEvent {
		t, _ = g.FindByEvent(current, req.Event)
	} else {
		t, _ = g.Find(current, req.To, req.Event)
	}
	return g, t, current, found, nil
}

// checkQueuedCallables rejects the attempt when any queued action or
// callback on this transition holds an inline closure. The builder enforces
// this at build time; this covers graphs assembled by hand.
func checkQueuedCallables(g *graph.Graph, t *graph.Transition, in *graph.Input) error {
	reject := func(desc string) error {
		return graph.NewQueuedClosureRejected(in.EntityType, in.Attribute, in.From, in.To, desc)
	}
	for _, cb := range t.Before {
		if cb.Queued && !cb.Callable.IsNamed() {
			return reject(cb.Description)
		}
	}
	for _, cb := range t.After {
		if cb.Queued && !cb.Callable.IsNamed() {
			return reject(cb.Description)
		}
	}
	for _, a := range t.Actions {
		if a.Queued && !a.Callable.IsNamed() {
			return reject(a.Description)
		}
	}
	for _, cb := range stateCallbacks(g, t.To, true) {
		if cb.Queued && !cb.Callable.IsNamed() {
			return reject(cb.Description)
		}
	}
	for _, cb := range stateCallbacks(g, in.From, false) {
		if cb.Queued && !cb.Callable.IsNamed() {
			return reject(cb.Description)
		}
	}
	return nil
}

// guardStage runs pre-commit work: inline before-callbacks in priority
// order, the transition's guard set, the destination's entry guards and
// inline immediate actions. The entity is still in its origin state here.
func (e *Engine) guardStage(ctx context.Context, g *graph.Graph, t *graph.Transition, in *graph.Input) error {
	for _, cb := range sortedCallbacks(t.Before) {
		if cb.Queued {
			continue
		}
		if err := e.runner.RunInline(ctx, cb.Callable, in); err != nil {
			return graph.NewCallbackFailure(graph.StageGuards,
				in.EntityType, in.Attribute, in.From, in.To,
				fmt.Sprintf("before callback %q failed", label(cb.Description, cb.Callable)), err)
		}
	}

	if err := guard.Evaluate(ctx, t.Strategy, t.Guards, in); err != nil {
		return err
	}
	if dest, ok := g.State(t.To); ok && len(dest.EntryGuards) > 0 {
		if err := guard.Evaluate(ctx, graph.AllMustPass, dest.EntryGuards, in); err != nil {
			return err
		}
	}

	for _, a := range t.ActionsByTier(graph.TierImmediate) {
		if a.Queued {
			continue
		}
		if err := e.runner.RunInline(ctx, a.Callable, in); err != nil {
			return graph.NewCallbackFailure(graph.StageGuards,
				in.EntityType, in.Attribute, in.From, in.To,
				fmt.Sprintf("immediate action %q failed", label(a.Description, a.Callable)), err)
		}
	}
	return nil
}

func (e *Engine) commit(ctx context.Context, in *graph.Input, current string, found bool) error {
	expected := ""
	if found {
		expected = current
	}
	ref := store.Ref{Type: in.EntityType, ID: in.EntityID}
	ok, err := e.store.ConditionalWrite(ctx, ref, in.Attribute, expected, in.To)
	if err != nil {
		return fmt.Errorf("engine: conditional write: %w", err)
	}
	if !ok {
		return graph.NewConcurrentModification(in.EntityType, in.Attribute, in.From, in.To, nil)
	}
	return nil
}

// dispatchStage runs post-commit work. Failures are collected and logged,
// never rolled back; every remaining item still runs. Queued callables of
// any tier are enqueued here, after the commit.
func (e *Engine) dispatchStage(ctx context.Context, g *graph.Graph, t *graph.Transition, in *graph.Input) error {
	var errs []error
	exec := func(what, desc string, c graph.Callable, queued bool) {
		var err error
		if queued {
			err = e.runner.Submit(ctx, c, in)
		} else {
			err = e.runner.RunInline(ctx, c, in)
		}
		if err != nil {
			e.logger.ErrorContext(ctx, "post-commit dispatch failed",
				slog.String("entity", in.EntityType+"/"+in.EntityID),
				slog.String("attribute", in.Attribute),
				slog.String("kind", what),
				slog.String("handler", label(desc, c)),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s %q: %w", what, label(desc, c), err))
		}
	}

	for _, cb := range sortedCallbacks(t.Before) {
		if cb.Queued {
			exec("before callback", cb.Description, cb.Callable, true)
		}
	}
	for _, a := range t.ActionsByTier(graph.TierImmediate) {
		if a.Queued {
			exec("immediate action", a.Description, a.Callable, true)
		}
	}
	for _, a := range t.ActionsByTier(graph.TierRegular) {
		exec("action", a.Description, a.Callable, a.Queued)
	}
	for _, cb := range sortedCallbacks(t.After) {
		exec("after callback", cb.Description, cb.Callable, cb.Queued)
	}
	for _, cb := range sortedCallbacks(stateCallbacks(g, in.To, true)) {
		exec("on-enter callback", cb.Description, cb.Callable, cb.Queued)
	}
	for _, cb := range sortedCallbacks(stateCallbacks(g, in.From, false)) {
		exec("on-exit callback", cb.Description, cb.Callable, cb.Queued)
	}
	for _, a := range t.ActionsByTier(graph.TierCleanup) {
		exec("cleanup action", a.Description, a.Callable, a.Queued)
	}
	return errors.Join(errs...)
}

func (e *Engine) record(ctx context.Context, in *graph.Input) {
	if e.recorder == nil {
		return
	}
	entry := eventlog.Entry{
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Attribute:  in.Attribute,
		From:       in.From,
		To:         in.To,
		Event:      in.Event,
		Context:    in.Context,
		Meta:       in.Meta,
	}
	if err := e.recorder.Record(ctx, entry); err != nil {
		e.logger.ErrorContext(ctx, "event log append failed",
			slog.String("entity", in.EntityType+"/"+in.EntityID),
			slog.String("attribute", in.Attribute),
			slog.Any("error", err))
	}
}

func (e *Engine) fail(ctx context.Context, in *graph.Input, start time.Time, err error) error {
	e.notify(ctx, Failed, in, err, time.Since(start))
	e.logger.WarnContext(ctx, "transition rejected",
		slog.String("entity", in.EntityType+"/"+in.EntityID),
		slog.String("attribute", in.Attribute),
		slog.String("from", in.From),
		slog.String("to", in.To),
		slog.Duration("duration", time.Since(start)),
		slog.Any("error", err))
	return err
}

func (e *Engine) notify(ctx context.Context, kind Kind, in *graph.Input, err error, d time.Duration) {
	if len(e.observers) == 0 {
		return
	}
	n := Notification{Kind: kind, Input: in.Snapshot(), Err: err, Duration: d}
	for _, o := range e.observers {
		o.Notify(ctx, n)
	}
}

func stateCallbacks(g *graph.Graph, name string, enter bool) []graph.Callback {
	s, ok := g.State(name)
	if !ok {
		return nil
	}
	if enter {
		return s.OnEnter
	}
	return s.OnExit
}

func sortedCallbacks(cbs []graph.Callback) []graph.Callback {
	ordered := slices.Clone(cbs)
	slices.SortStableFunc(ordered, func(a, b graph.Callback) int {
		return b.Priority - a.Priority
	})
	return ordered
}

func label(desc string, c graph.Callable) string {
	if desc != "" {
		return desc
	}
	if name := c.Name(); name != "" {
		return name
	}
	return "anonymous"
}
