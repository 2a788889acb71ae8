package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Resolver maps callable names to handler functions. The registry Catalog
// satisfies it.
type Resolver interface {
	Func(name string) (graph.Func, bool)
}

// QueueRepository persists submitted tasks. Any at-least-once store works;
// the package ships a MemoryQueue for tests and local development.
type QueueRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Dispatcher runs callables inline or hands them to the task queue.
type Dispatcher struct {
	resolver   Resolver
	repo       QueueRepository
	logger     *slog.Logger
	maxRetries int8
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueue attaches a queue repository enabling Submit.
func WithQueue(repo QueueRepository) Option {
	return func(d *Dispatcher) { d.repo = repo }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMaxRetries sets the retry budget stamped on submitted tasks.
func WithMaxRetries(n int8) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// NewDispatcher creates a dispatcher resolving named callables through the
// given resolver.
func NewDispatcher(resolver Resolver, opts ...Option) (*Dispatcher, error) {
	if resolver == nil {
		return nil, ErrResolverNil
	}
	d := &Dispatcher{
		resolver:   resolver,
		logger:     slog.Default(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RunInline executes a callable synchronously on the caller's goroutine.
func (d *Dispatcher) RunInline(ctx context.Context, c graph.Callable, in *graph.Input) error {
	if fn := c.Fn(); fn != nil {
		return fn(ctx, in, c.Params())
	}
	if !c.IsNamed() {
		return ErrNotQueueable
	}
	fn, ok := d.resolver.Func(c.Name())
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandler, c.Name())
	}
	return fn(ctx, in, c.Params())
}

// Submit persists the callable as a queued task and returns without waiting
// for execution. The caller's transition outcome is already decided by the
// time Submit runs; a submission error is reported, never retried inline.
func (d *Dispatcher) Submit(ctx context.Context, c graph.Callable, in *graph.Input) error {
	if d.repo == nil {
		return ErrNoQueue
	}
	if !c.IsNamed() {
		return fmt.Errorf("%w: got a closure", ErrNotQueueable)
	}

	task := &Task{
		ID:         uuid.New(),
		Name:       c.Name(),
		Params:     c.Params(),
		Input:      in.Snapshot(),
		Status:     TaskStatusPending,
		MaxRetries: d.maxRetries,
		CreatedAt:  time.Now(),
	}
	if err := d.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("dispatch: submit task %q: %w", c.Name(), err)
	}

	d.logger.DebugContext(ctx, "task submitted",
		slog.String("task_id", task.ID.String()),
		slog.String("handler", task.Name),
		slog.String("entity", in.EntityType+"/"+in.EntityID))
	return nil
}
