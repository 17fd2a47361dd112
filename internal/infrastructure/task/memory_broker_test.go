package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()

	t.Run("fifo", func(t *testing.T) {
		b := NewMemoryBroker(4)
		defer b.Close()

		require.NoError(t, b.Enqueue(ctx, &Task{Name: "a"}))
		require.NoError(t, b.Enqueue(ctx, &Task{Name: "b"}))
		assert.Equal(t, 2, b.Pending())

		first, _ := b.Dequeue(ctx)
		second, _ := b.Dequeue(ctx)
		assert.Equal(t, "a", first.Name)
		assert.Equal(t, "b", second.Name)
	})

	t.Run("full", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()

		require.NoError(t, b.Enqueue(ctx, &Task{Name: "a"}))
		assert.ErrorIs(t, b.Enqueue(ctx, &Task{Name: "b"}), ErrQueueFull)
	})

	t.Run("delayed task becomes ready", func(t *testing.T) {
		b := NewMemoryBroker(4)
		defer b.Close()

		require.NoError(t, b.Schedule(ctx, &Task{Name: "later", ETA: time.Now().Add(20 * time.Millisecond)}))
		assert.Equal(t, 1, b.Pending())
		assert.Equal(t, 0, b.Ready())

		dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		got, err := b.Dequeue(dctx)
		require.NoError(t, err)
		assert.Equal(t, "later", got.Name)
	})

	t.Run("delayed task due on a full queue is dead-lettered", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()

		require.NoError(t, b.Enqueue(ctx, &Task{Name: "filler"}))
		require.NoError(t, b.Schedule(ctx, &Task{Name: "retry", ETA: time.Now().Add(20 * time.Millisecond)}))

		require.Eventually(t, func() bool {
			return len(b.DeadLetters()) == 1
		}, 2*time.Second, 5*time.Millisecond)

		letters := b.DeadLetters()
		assert.Equal(t, "retry", letters[0].Task.Name)
		assert.Contains(t, letters[0].Error, ErrQueueFull.Error())
		assert.Equal(t, 1, b.Pending())

		got, err := b.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "filler", got.Name)
	})

	t.Run("dequeue honours context", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()

		dctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := b.Dequeue(dctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("close wakes consumers and dead-letters delayed tasks", func(t *testing.T) {
		b := NewMemoryBroker(1)
		require.NoError(t, b.Schedule(ctx, &Task{Name: "never", ETA: time.Now().Add(time.Hour)}))
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		_, err := b.Dequeue(ctx)
		assert.ErrorIs(t, err, ErrBrokerClosed)
		assert.ErrorIs(t, b.Enqueue(ctx, &Task{}), ErrBrokerClosed)
		assert.ErrorIs(t, b.Schedule(ctx, &Task{ETA: time.Now().Add(time.Hour)}), ErrBrokerClosed)
		assert.Equal(t, 0, b.Pending())

		letters := b.DeadLetters()
		require.Len(t, letters, 1)
		assert.Equal(t, "never", letters[0].Task.Name)
		assert.Equal(t, ErrBrokerClosed.Error(), letters[0].Error)
	})

	t.Run("dead letters", func(t *testing.T) {
		b := NewMemoryBroker(1)
		defer b.Close()

		require.NoError(t, b.DeadLetter(ctx, &Task{Name: "bad"}, errors.New("boom")))
		letters := b.DeadLetters()
		require.Len(t, letters, 1)
		assert.Equal(t, "bad", letters[0].Task.Name)
		assert.Equal(t, "boom", letters[0].Error)
	})
}
