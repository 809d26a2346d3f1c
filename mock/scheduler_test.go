package mock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("emits on the configured cadence until cancelled", func(t *testing.T) {
		scheduler := NewScheduler()
		var count atomic.Int64

		task, err := scheduler.Schedule(context.Background(), "room/tick", 100*time.Millisecond, func(_ context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)

		time.Sleep(550 * time.Millisecond)
		task.Cancel()
		observed := count.Load()

		assert.GreaterOrEqual(t, observed, int64(4))
		assert.LessOrEqual(t, observed, int64(6))

		time.Sleep(250 * time.Millisecond)
		assert.Equal(t, observed, count.Load())
	})

	t.Run("rejects a non-positive interval", func(t *testing.T) {
		scheduler := NewScheduler()

		_, err := scheduler.Schedule(context.Background(), "room/tick", 0, func(_ context.Context) error {
			return nil
		})
		assert.Error(t, err)

		_, err = scheduler.Schedule(context.Background(), "room/tick", -time.Second, func(_ context.Context) error {
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("an emission failure does not halt the schedule", func(t *testing.T) {
		scheduler := NewScheduler()
		var count atomic.Int64

		task, err := scheduler.Schedule(context.Background(), "room/tick", 20*time.Millisecond, func(_ context.Context) error {
			count.Add(1)
			return errors.New("broker unavailable")
		})
		require.NoError(t, err)

		time.Sleep(110 * time.Millisecond)
		task.Cancel()

		assert.Greater(t, count.Load(), int64(2))
	})

	t.Run("cancelling one task leaves the others running", func(t *testing.T) {
		scheduler := NewScheduler()
		defer scheduler.Stop()
		var first, second atomic.Int64

		taskA, err := scheduler.Schedule(context.Background(), "a", 20*time.Millisecond, func(_ context.Context) error {
			first.Add(1)
			return nil
		})
		require.NoError(t, err)
		_, err = scheduler.Schedule(context.Background(), "b", 20*time.Millisecond, func(_ context.Context) error {
			second.Add(1)
			return nil
		})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		taskA.Cancel()
		frozen := first.Load()
		before := second.Load()

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, frozen, first.Load())
		assert.Greater(t, second.Load(), before)
	})

	t.Run("stop cancels every task", func(t *testing.T) {
		scheduler := NewScheduler()
		var count atomic.Int64

		for i := 0; i < 3; i++ {
			_, err := scheduler.Schedule(context.Background(), "task", 20*time.Millisecond, func(_ context.Context) error {
				count.Add(1)
				return nil
			})
			require.NoError(t, err)
		}

		time.Sleep(50 * time.Millisecond)
		scheduler.Stop()
		frozen := count.Load()

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, frozen, count.Load())
	})

	t.Run("context cancellation stops the loop", func(t *testing.T) {
		scheduler := NewScheduler()
		ctx, cancel := context.WithCancel(context.Background())
		var count atomic.Int64

		_, err := scheduler.Schedule(ctx, "task", 20*time.Millisecond, func(_ context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		cancel()
		time.Sleep(30 * time.Millisecond)
		frozen := count.Load()

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, frozen, count.Load())
	})
}
