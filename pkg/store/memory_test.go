package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stateflow/pkg/store"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ref := store.Ref{Type: "order", ID: "ord_1"}

	t.Run("missing attribute reads as not found", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()
		_, found, err := m.ReadState(ctx, ref, "status")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("empty expected writes only when absent", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()

		ok, err := m.ConditionalWrite(ctx, ref, "status", "", "pending")
		require.NoError(t, err)
		assert.True(t, ok)

		// A second first-write must lose.
		ok, err = m.ConditionalWrite(ctx, ref, "status", "", "paid")
		require.NoError(t, err)
		assert.False(t, ok)

		v, found, err := m.ReadState(ctx, ref, "status")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "pending", v)
	})

	t.Run("write succeeds only against the expected value", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()
		m.Seed(ref, "status", "pending")

		ok, err := m.ConditionalWrite(ctx, ref, "status", "paid", "shipped")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = m.ConditionalWrite(ctx, ref, "status", "pending", "paid")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("exactly one concurrent writer wins", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()
		m.Seed(ref, "status", "pending")

		const writers = 16
		var wg sync.WaitGroup
		wins := make(chan string, writers)
		for i := range writers {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				target := "paid"
				if n%2 == 0 {
					target = "cancelled"
				}
				if ok, _ := m.ConditionalWrite(ctx, ref, "status", "pending", target); ok {
					wins <- target
				}
			}(i)
		}
		wg.Wait()
		close(wins)

		var winners []string
		for w := range wins {
			winners = append(winners, w)
		}
		require.Len(t, winners, 1)

		v, _, err := m.ReadState(ctx, ref, "status")
		require.NoError(t, err)
		assert.Equal(t, winners[0], v, "final value must be exactly the winner's target")
	})

	t.Run("exists tracks attributes and deletion", func(t *testing.T) {
		t.Parallel()
		m := store.NewMemory()

		exists, err := m.Exists(ctx, ref)
		require.NoError(t, err)
		assert.False(t, exists)

		m.Seed(ref, "status", "pending")
		exists, err = m.Exists(ctx, ref)
		require.NoError(t, err)
		assert.True(t, exists)

		m.Delete(ref)
		exists, err = m.Exists(ctx, ref)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
