package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/stateflow/pkg/store"
)

// WorkerRepository is the storage side of the worker loop.
type WorkerRepository interface {
	// ClaimTask atomically claims the next runnable task, locking it for
	// lockFor. Returns ErrNoTask when the queue is empty.
	ClaimTask(ctx context.Context, lockFor time.Duration) (*Task, error)
	// CompleteTask marks the task done.
	CompleteTask(ctx context.Context, id uuid.UUID) error
	// FailTask records the error and either requeues the task or marks it
	// permanently failed once retries are exhausted.
	FailTask(ctx context.Context, id uuid.UUID, errMsg string) error
}

// EntityChecker answers whether the task's owning entity still exists.
// The entity store satisfies it.
type EntityChecker interface {
	Exists(ctx context.Context, ref store.Ref) (bool, error)
}

// Worker pulls queued side-effect tasks and runs their named handlers.
type Worker struct {
	repo     WorkerRepository
	resolver Resolver
	entities EntityChecker
	logger   *slog.Logger

	pullInterval time.Duration
	lockTimeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPullInterval sets the poll cadence of the background loop.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pullInterval = d
		}
	}
}

// WithLockTimeout sets how long a claimed task stays locked.
func WithLockTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.lockTimeout = d
		}
	}
}

// WithWorkerLogger overrides the default slog logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker creates a worker. entities may be nil, in which case the
// entity-existence check is skipped.
func NewWorker(repo WorkerRepository, resolver Resolver, entities EntityChecker, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}
	w := &Worker{
		repo:         repo,
		resolver:     resolver,
		entities:     entities,
		logger:       slog.Default(),
		pullInterval: time.Second,
		lockTimeout:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start launches the background claim loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errors.New("dispatch: worker already started")
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.InfoContext(ctx, "dispatch worker started",
		slog.Duration("pull_interval", w.pullInterval))
	return nil
}

// Stop cancels the loop and waits for the in-flight task, if any.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return errors.New("dispatch: worker not started")
	}
	cancel()
	w.wg.Wait()
	w.logger.Info("dispatch worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain everything runnable before sleeping again.
			for {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					w.logger.ErrorContext(ctx, "task processing failed", slog.Any("error", err))
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessOne claims and runs a single task. It returns false when the queue
// is empty. Exposed so tests and cron-style hosts can drive the worker
// without the background loop.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.repo.ClaimTask(ctx, w.lockTimeout)
	if errors.Is(err, ErrNoTask) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dispatch: claim task: %w", err)
	}
	return true, w.process(ctx, task)
}

func (w *Worker) process(ctx context.Context, task *Task) (retErr error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("dispatch: panic in handler %q: %v", task.Name, r)
			_ = w.repo.FailTask(ctx, task.ID, retErr.Error())
		}
	}()

	in := task.Input.Input()

	// A deleted entity makes the task a no-op by contract, not an error.
	if w.entities != nil {
		ref := store.Ref{Type: in.EntityType, ID: in.EntityID}
		exists, err := w.entities.Exists(ctx, ref)
		if err != nil {
			_ = w.repo.FailTask(ctx, task.ID, err.Error())
			return fmt.Errorf("dispatch: entity check for task %s: %w", task.ID, err)
		}
		if !exists {
			w.logger.InfoContext(ctx, "entity gone, skipping queued task",
				slog.String("task_id", task.ID.String()),
				slog.String("handler", task.Name),
				slog.String("entity", ref.String()))
			return w.repo.CompleteTask(ctx, task.ID)
		}
	}

	fn, ok := w.resolver.Func(task.Name)
	if !ok {
		// Retrying cannot help an unregistered handler.
		w.logger.ErrorContext(ctx, "queued task has no handler",
			slog.String("task_id", task.ID.String()),
			slog.String("handler", task.Name))
		if err := w.repo.FailTask(ctx, task.ID, fmt.Sprintf("no handler registered for %q", task.Name)); err != nil {
			return err
		}
		return fmt.Errorf("%w: %q", ErrUnknownHandler, task.Name)
	}

	if err := fn(ctx, in, task.Params); err != nil {
		w.logger.ErrorContext(ctx, "queued task failed",
			slog.String("task_id", task.ID.String()),
			slog.String("handler", task.Name),
			slog.Int("retry_count", int(task.RetryCount)),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return w.repo.FailTask(ctx, task.ID, err.Error())
	}

	w.logger.DebugContext(ctx, "queued task completed",
		slog.String("task_id", task.ID.String()),
		slog.String("handler", task.Name),
		slog.Duration("duration", time.Since(start)))
	return w.repo.CompleteTask(ctx, task.ID)
}
