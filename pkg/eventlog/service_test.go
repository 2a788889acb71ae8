package eventlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateflow/pkg/eventlog"
)

type staticResolver map[string]string

func (r staticResolver) InitialState(entityType, attribute string) (string, bool) {
	v, ok := r[entityType+"."+attribute]
	return v, ok
}

var orderKey = eventlog.Key{EntityType: "order", EntityID: "ord_1", Attribute: "status"}

func newService(t *testing.T) *eventlog.Service {
	t.Helper()
	svc, err := eventlog.NewService(eventlog.NewMemory(), staticResolver{"order.status": "pending"})
	require.NoError(t, err)
	return svc
}

func record(t *testing.T, svc *eventlog.Service, from, to string) {
	t.Helper()
	require.NoError(t, svc.Record(context.Background(), eventlog.Entry{
		EntityType: orderKey.EntityType,
		EntityID:   orderKey.EntityID,
		Attribute:  orderKey.Attribute,
		From:       from,
		To:         to,
	}))
}

func TestServiceRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fills id and timestamp", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		record(t, svc, "pending", "paid")

		entries, err := svc.History(ctx, orderKey)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NotZero(t, entries[0].ID)
		assert.False(t, entries[0].OccurredAt.IsZero())
	})

	t.Run("keeps timestamps strictly increasing", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		// Same-instant records must still order deterministically.
		for range 50 {
			record(t, svc, "a", "b")
		}

		entries, err := svc.History(ctx, orderKey)
		require.NoError(t, err)
		for i := 1; i < len(entries); i++ {
			assert.True(t, entries[i].OccurredAt.After(entries[i-1].OccurredAt))
		}
	})

	t.Run("rejects incomplete keys", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		err := svc.Record(ctx, eventlog.Entry{EntityType: "order"})
		assert.ErrorIs(t, err, eventlog.ErrInvalidKey)
	})
}

func TestServiceReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("folds history into the final state", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		record(t, svc, "pending", "paid")
		record(t, svc, "paid", "shipped")
		record(t, svc, "shipped", "delivered")

		result, err := svc.Replay(ctx, orderKey)
		require.NoError(t, err)
		assert.Equal(t, "delivered", result.FinalState)
		assert.Equal(t, 3, result.TransitionCount)
		assert.Len(t, result.Steps, 3)
	})

	t.Run("empty history is an error", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		_, err := svc.Replay(ctx, orderKey)
		assert.ErrorIs(t, err, eventlog.ErrEmptyHistory)
	})
}

func TestServiceValidateHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("clean chain is valid", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		record(t, svc, "pending", "paid")
		record(t, svc, "paid", "shipped")

		report, err := svc.ValidateHistory(ctx, orderKey)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Issues)
	})

	t.Run("empty history is valid", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		report, err := svc.ValidateHistory(ctx, orderKey)
		require.NoError(t, err)
		assert.True(t, report.Valid)
	})

	t.Run("reports a gap at its position", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		record(t, svc, "pending", "paid")
		record(t, svc, "shipped", "delivered")

		report, err := svc.ValidateHistory(ctx, orderKey)
		require.NoError(t, err, "inconsistency must be reported, not returned")
		assert.False(t, report.Valid)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, 2, report.Issues[0].Position)
		assert.Contains(t, report.Issues[0].Detail, `leaves "shipped"`)
	})

	t.Run("reports a wrong starting state", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)
		record(t, svc, "paid", "shipped")

		report, err := svc.ValidateHistory(ctx, orderKey)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, 1, report.Issues[0].Position)
		assert.Contains(t, report.Issues[0].Detail, `initial state is "pending"`)
	})
}

func TestServiceStatistics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newService(t)
	record(t, svc, "pending", "paid")
	record(t, svc, "paid", "failed")
	record(t, svc, "failed", "paid")
	record(t, svc, "paid", "shipped")

	stats, err := svc.Statistics(ctx, orderKey)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTransitions)
	assert.Equal(t, 2, stats.StateFrequencies["paid"])
	assert.Equal(t, 1, stats.StateFrequencies["shipped"])
	assert.Equal(t, 2, stats.PatternCounts["pending->paid"]+stats.PatternCounts["failed->paid"])
	assert.Equal(t, 1, stats.PatternCounts["paid->failed"])
}

func TestMemoryStorageOrdering(t *testing.T) {
	t.Parallel()

	m := eventlog.NewMemory()
	ctx := context.Background()
	base := time.Now()
	for i, to := range []string{"a", "b", "c"} {
		require.NoError(t, m.Append(ctx, eventlog.Entry{
			EntityType: "order", EntityID: "ord_1", Attribute: "status",
			To: to, OccurredAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := m.Query(ctx, orderKey)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].To)
	assert.Equal(t, "c", entries[2].To)
}
