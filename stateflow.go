package stateflow

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/stateflow/pkg/dispatch"
	"github.com/dmitrymomot/stateflow/pkg/engine"
	"github.com/dmitrymomot/stateflow/pkg/eventlog"
	"github.com/dmitrymomot/stateflow/pkg/registry"
	"github.com/dmitrymomot/stateflow/pkg/store"
)

// Config assembles a Flow. Zero values get in-memory defaults, so an empty
// Config yields a fully working single-process engine.
type Config struct {
	// Store persists entity attribute states. Defaults to store.NewMemory.
	Store store.EntityStore
	// EventLog persists committed transitions. Defaults to eventlog.NewMemory.
	EventLog eventlog.Storage
	// Queue holds deferred side-effect tasks. Nil disables queued dispatch;
	// queued actions and callbacks then fail at submit time.
	Queue dispatch.QueueRepository
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Observers receive transition lifecycle notifications.
	Observers []engine.Observer
}

// Flow bundles the registry, catalog, store, dispatcher, event log and
// engine behind one facade.
type Flow struct {
	registry   *registry.Registry
	catalog    *registry.Catalog
	store      store.EntityStore
	dispatcher *dispatch.Dispatcher
	log        *eventlog.Service
	engine     *engine.Engine
}

// New wires a Flow from the config.
func New(cfg Config) (*Flow, error) {
	if cfg.Store == nil {
		cfg.Store = store.NewMemory()
	}
	if cfg.EventLog == nil {
		cfg.EventLog = eventlog.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	reg := registry.New()
	cat := registry.NewCatalog()

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(cfg.Logger)}
	if cfg.Queue != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithQueue(cfg.Queue))
	}
	dispatcher, err := dispatch.NewDispatcher(cat, dispatchOpts...)
	if err != nil {
		return nil, err
	}

	log, err := eventlog.NewService(cfg.EventLog, reg)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithRecorder(log),
		engine.WithLogger(cfg.Logger),
	}
	for _, o := range cfg.Observers {
		engineOpts = append(engineOpts, engine.WithObserver(o))
	}
	eng, err := engine.New(reg, cfg.Store, dispatcher, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Flow{
		registry:   reg,
		catalog:    cat,
		store:      cfg.Store,
		dispatcher: dispatcher,
		log:        log,
		engine:     eng,
	}, nil
}

// Registry returns the graph registry for registering definitions.
func (f *Flow) Registry() *registry.Registry { return f.registry }

// Catalog returns the named guard and handler catalog.
func (f *Flow) Catalog() *registry.Catalog { return f.catalog }

// Store returns the entity store.
func (f *Flow) Store() store.EntityStore { return f.store }

// Dispatcher returns the side-effect dispatcher.
func (f *Flow) Dispatcher() *dispatch.Dispatcher { return f.dispatcher }

// Log returns the event log service.
func (f *Flow) Log() *eventlog.Service { return f.log }

// Engine returns the transition engine.
func (f *Flow) Engine() *engine.Engine { return f.engine }

// Transition attempts to move an entity attribute to the requested state.
func (f *Flow) Transition(ctx context.Context, req engine.Request) error {
	return f.engine.Transition(ctx, req)
}

// Fire attempts the transition matching the request's event in the entity's
// current state.
func (f *Flow) Fire(ctx context.Context, req engine.Request) error {
	return f.engine.Fire(ctx, req)
}

// DryRun answers whether the transition would currently succeed, without
// side effects.
func (f *Flow) DryRun(ctx context.Context, req engine.Request) (engine.DryRunResult, error) {
	return f.engine.DryRun(ctx, req)
}

// History returns the recorded transitions for one entity attribute.
func (f *Flow) History(ctx context.Context, key eventlog.Key) ([]eventlog.Entry, error) {
	return f.log.History(ctx, key)
}

// Replay reconstructs the attribute's state from its recorded history.
func (f *Flow) Replay(ctx context.Context, key eventlog.Key) (eventlog.ReplayResult, error) {
	return f.log.Replay(ctx, key)
}

// ValidateHistory checks the recorded chain for gaps and wrong origins.
func (f *Flow) ValidateHistory(ctx context.Context, key eventlog.Key) (eventlog.ValidationReport, error) {
	return f.log.ValidateHistory(ctx, key)
}

// Statistics aggregates the attribute's recorded history.
func (f *Flow) Statistics(ctx context.Context, key eventlog.Key) (eventlog.Statistics, error) {
	return f.log.Statistics(ctx, key)
}

// Worker builds a queue worker over the given repository, resolving handlers
// through the flow's catalog and skipping tasks for deleted entities.
func (f *Flow) Worker(repo dispatch.WorkerRepository, opts ...dispatch.WorkerOption) (*dispatch.Worker, error) {
	return dispatch.NewWorker(repo, f.catalog, f.store, opts...)
}
