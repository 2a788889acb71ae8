package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresQueue implements QueueRepository and WorkerRepository over the
// dispatch_tasks table shipped in pkg/pg migrations. Claims use FOR UPDATE
// SKIP LOCKED so multiple workers never pick the same task.
type PostgresQueue struct {
	pool *pgxpool.Pool
}

// NewPostgresQueue creates a Postgres-backed task queue.
func NewPostgresQueue(pool *pgxpool.Pool) (*PostgresQueue, error) {
	if pool == nil {
		return nil, errors.New("dispatch: pgx pool cannot be nil")
	}
	return &PostgresQueue{pool: pool}, nil
}

func (q *PostgresQueue) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("dispatch: task cannot be nil")
	}
	_, err := q.pool.Exec(ctx, `
		INSERT INTO dispatch_tasks (id, name, params, input, status, retry_count, max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.Name, task.Params, task.Input, task.Status,
		task.RetryCount, task.MaxRetries, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("dispatch: create task: %w", err)
	}
	return nil
}

func (q *PostgresQueue) ClaimTask(ctx context.Context, lockFor time.Duration) (*Task, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE dispatch_tasks SET status = 'processing', locked_until = now() + $1
		WHERE id = (
			SELECT id FROM dispatch_tasks
			WHERE status = 'pending'
			   OR (status = 'processing' AND locked_until < now())
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, params, input, status, retry_count, max_retries, error, locked_until, created_at, processed_at`,
		lockFor)

	var t Task
	err := row.Scan(&t.ID, &t.Name, &t.Params, &t.Input, &t.Status,
		&t.RetryCount, &t.MaxRetries, &t.Error, &t.LockedUntil, &t.CreatedAt, &t.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("dispatch: claim task: %w", err)
	}
	return &t, nil
}

func (q *PostgresQueue) CompleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE dispatch_tasks
		SET status = 'completed', processed_at = now(), locked_until = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("dispatch: complete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dispatch: unknown task %s", id)
	}
	return nil
}

func (q *PostgresQueue) FailTask(ctx context.Context, id uuid.UUID, errMsg string) error {
	// One statement decides retry-vs-permanent-failure so two racing workers
	// cannot double count the retry.
	tag, err := q.pool.Exec(ctx, `
		UPDATE dispatch_tasks
		SET retry_count  = retry_count + 1,
		    error        = $2,
		    locked_until = NULL,
		    status       = CASE WHEN retry_count + 1 > max_retries THEN 'failed' ELSE 'pending' END,
		    processed_at = CASE WHEN retry_count + 1 > max_retries THEN now() ELSE processed_at END
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return fmt.Errorf("dispatch: fail task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dispatch: unknown task %s", id)
	}
	return nil
}
