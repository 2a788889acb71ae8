package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// TaskStatus tracks a queued task through its lifecycle.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of deferred side-effect work. It is immutable once
// persisted except for status bookkeeping.
type Task struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Params      map[string]any `json:"params,omitempty"`
	Input       graph.Snapshot `json:"input"`
	Status      TaskStatus     `json:"status"`
	RetryCount  int8           `json:"retry_count"`
	MaxRetries  int8           `json:"max_retries"`
	Error       *string        `json:"error,omitempty"`
	LockedUntil *time.Time     `json:"locked_until,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
