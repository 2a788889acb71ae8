package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue implements QueueRepository and WorkerRepository with
// mutex-guarded maps, for tests and local development.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	order []uuid.UUID
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{tasks: make(map[uuid.UUID]*Task)}
}

func (q *MemoryQueue) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("dispatch: task cannot be nil")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.tasks[task.ID]; exists {
		return fmt.Errorf("dispatch: task %s already exists", task.ID)
	}
	cp := *task
	q.tasks[task.ID] = &cp
	q.order = append(q.order, task.ID)
	return nil
}

func (q *MemoryQueue) ClaimTask(_ context.Context, lockFor time.Duration) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	for _, id := range q.order {
		t := q.tasks[id]
		claimable := t.Status == TaskStatusPending ||
			(t.Status == TaskStatusProcessing && t.LockedUntil != nil && t.LockedUntil.Before(now))
		if !claimable {
			continue
		}
		t.Status = TaskStatusProcessing
		until := now.Add(lockFor)
		t.LockedUntil = &until
		cp := *t
		return &cp, nil
	}
	return nil, ErrNoTask
}

func (q *MemoryQueue) CompleteTask(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("dispatch: unknown task %s", id)
	}
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.ProcessedAt = &now
	t.LockedUntil = nil
	return nil
}

func (q *MemoryQueue) FailTask(_ context.Context, id uuid.UUID, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("dispatch: unknown task %s", id)
	}
	t.RetryCount++
	t.Error = &errMsg
	t.LockedUntil = nil
	if t.RetryCount > t.MaxRetries {
		now := time.Now()
		t.Status = TaskStatusFailed
		t.ProcessedAt = &now
		return nil
	}
	t.Status = TaskStatusPending
	return nil
}

// Tasks returns a snapshot of all tasks in submission order, for tests.
func (q *MemoryQueue) Tasks() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.tasks[id])
	}
	return out
}
