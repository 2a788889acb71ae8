package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/stateflow/pkg/graph"
)

// Kind classifies a notification.
type Kind int

const (
	// Attempted fires when a transition enters the pipeline.
	Attempted Kind = iota
	// Succeeded fires after the new state is committed.
	Succeeded
	// Failed fires when any stage rejects the attempt.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Attempted:
		return "attempted"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notification is delivered to observers on transition lifecycle events.
type Notification struct {
	Kind     Kind
	Input    graph.Snapshot
	Err      error
	Duration time.Duration
}

// Observer receives transition lifecycle notifications. Implementations must
// not block; slow consumers should hand off internally.
type Observer interface {
	Notify(ctx context.Context, n Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, n Notification)

func (f ObserverFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Metrics is an Observer counting transition outcomes per entity type and
// attribute. Safe for concurrent use.
type Metrics struct {
	mu       sync.RWMutex
	counters map[metricKey]*MetricValues
}

type metricKey struct {
	entityType string
	attribute  string
}

// MetricValues holds the aggregates for one entity type and attribute.
type MetricValues struct {
	Attempted     int64         `json:"attempted"`
	Succeeded     int64         `json:"succeeded"`
	Failed        int64         `json:"failed"`
	TotalDuration time.Duration `json:"total_duration"`
}

// NewMetrics creates an empty metrics observer.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[metricKey]*MetricValues)}
}

// Notify records the notification.
func (m *Metrics) Notify(_ context.Context, n Notification) {
	key := metricKey{entityType: n.Input.EntityType, attribute: n.Input.Attribute}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.counters[key]
	if !ok {
		v = &MetricValues{}
		m.counters[key] = v
	}
	switch n.Kind {
	case Attempted:
		v.Attempted++
	case Succeeded:
		v.Succeeded++
		v.TotalDuration += n.Duration
	case Failed:
		v.Failed++
		v.TotalDuration += n.Duration
	}
}

// Values returns a copy of the aggregates for one entity type and attribute.
func (m *Metrics) Values(entityType, attribute string) MetricValues {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.counters[metricKey{entityType: entityType, attribute: attribute}]; ok {
		return *v
	}
	return MetricValues{}
}
