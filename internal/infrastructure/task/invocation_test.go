package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocation_Retry(t *testing.T) {
	cause := errors.New("smtp: 421 service not available")
	policy := RetryPolicy{MaxRetries: 2, Backoff: Power{Base: 60 * time.Second}}

	t.Run("schedules next attempt with backoff", func(t *testing.T) {
		sub := &recordingSubmitter{}
		tk, _ := New("mail.send", map[string]string{"to": "a@b.c"})
		inv := NewInvocation(tk, policy, sub)

		err := inv.Retry(context.Background(), cause)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetryScheduled)
		assert.ErrorIs(t, err, cause)

		var rs *RetryScheduledError
		require.ErrorAs(t, err, &rs)
		assert.Equal(t, 1, rs.Attempt)
		assert.Equal(t, 60*time.Second, rs.Delay)

		calls := sub.submissions()
		require.Len(t, calls, 1)
		assert.Equal(t, 1, calls[0].Task.Retries)
		assert.Equal(t, 60*time.Second, calls[0].Delay)
		assert.Equal(t, tk.ID, calls[0].Task.ID)
		assert.Equal(t, 0, tk.Retries, "original task is not mutated")
	})

	t.Run("second retry waits 60 squared", func(t *testing.T) {
		sub := &recordingSubmitter{}
		tk := &Task{Name: "mail.send", Retries: 1}

		err := NewInvocation(tk, policy, sub).Retry(context.Background(), cause)
		assert.ErrorIs(t, err, ErrRetryScheduled)
		assert.Equal(t, 3600*time.Second, sub.submissions()[0].Delay)
	})

	t.Run("exhausted", func(t *testing.T) {
		sub := &recordingSubmitter{}
		tk := &Task{Name: "mail.send", Retries: 2}

		err := NewInvocation(tk, policy, sub).Retry(context.Background(), cause)
		assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrRetryScheduled)
		assert.Empty(t, sub.submissions())
	})

	t.Run("zero max retries never resubmits", func(t *testing.T) {
		sub := &recordingSubmitter{}
		err := NewInvocation(&Task{Name: "x"}, RetryPolicy{}, sub).Retry(context.Background(), cause)
		assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
		assert.Empty(t, sub.submissions())
	})

	t.Run("submit failure", func(t *testing.T) {
		sub := &recordingSubmitter{err: ErrQueueFull}
		err := NewInvocation(&Task{Name: "x"}, policy, sub).Retry(context.Background(), cause)
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.NotErrorIs(t, err, ErrRetryScheduled)
	})
}

func TestInvocation_Attempt(t *testing.T) {
	inv := NewInvocation(&Task{Retries: 3}, RetryPolicy{MaxRetries: 5}, nil)
	assert.Equal(t, 3, inv.Attempt())
	assert.Equal(t, 5, inv.MaxRetries())
}

func TestInvocation_RetryOnFullMemoryQueue(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(1)
	defer broker.Close()
	registry := NewRegistry()
	registry.MustRegister(Definition{Name: "mail.send", Handler: func(context.Context, *Invocation) error { return nil }})
	queue := NewQueue(broker, registry, nil)

	_, err := queue.Enqueue(ctx, "mail.send", map[string]string{"to": "filler@b.c"})
	require.NoError(t, err)

	tk, _ := New("mail.send", map[string]string{"to": "a@b.c"})
	inv := NewInvocation(tk, RetryPolicy{MaxRetries: 3, Backoff: Constant{Interval: 20 * time.Millisecond}}, queue)
	require.ErrorIs(t, inv.Retry(ctx, errors.New("smtp: 421")), ErrRetryScheduled)

	require.Eventually(t, func() bool {
		return len(broker.DeadLetters()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	letter := broker.DeadLetters()[0]
	assert.Equal(t, tk.ID, letter.Task.ID)
	assert.Equal(t, 1, letter.Task.Retries)
	assert.Contains(t, letter.Error, ErrQueueFull.Error())
}
