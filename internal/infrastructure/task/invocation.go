package task

import (
	"context"
	"fmt"
	"time"
)

// Retrier re-enqueues the current task for a later attempt
type Retrier interface {
	// Attempt is the number of retries already made (0 on the first run)
	Attempt() int
	// Retry schedules the next attempt and returns an error matching
	// ErrRetryScheduled, or one matching ErrMaxRetriesExceeded when none are left.
	Retry(ctx context.Context, cause error) error
}

// RetryScheduledError reports a successfully scheduled retry
type RetryScheduledError struct {
	Task    string
	Attempt int
	Delay   time.Duration
	Cause   error
}

func (e *RetryScheduledError) Error() string {
	return fmt.Sprintf("task %s: retry %d scheduled in %s: %v", e.Task, e.Attempt, e.Delay, e.Cause)
}

// Unwrap matches both ErrRetryScheduled and the cause
func (e *RetryScheduledError) Unwrap() []error {
	return []error{ErrRetryScheduled, e.Cause}
}

// Invocation is a single run of a task
type Invocation struct {
	Task      *Task
	policy    RetryPolicy
	submitter Submitter
}

// NewInvocation creates an invocation whose retries go through submitter
func NewInvocation(t *Task, policy RetryPolicy, submitter Submitter) *Invocation {
	return &Invocation{Task: t, policy: policy, submitter: submitter}
}

var _ Retrier = (*Invocation)(nil)

// Attempt returns the number of retries already made
func (i *Invocation) Attempt() int {
	return i.Task.Retries
}

// MaxRetries returns the retry bound of the task's policy
func (i *Invocation) MaxRetries() int {
	return i.policy.MaxRetries
}

// Retry re-enqueues the task with Retries+1 after the policy's backoff delay
func (i *Invocation) Retry(ctx context.Context, cause error) error {
	if i.Task.Retries >= i.policy.MaxRetries {
		return fmt.Errorf("task %s after %d retries: %w: %w", i.Task.Name, i.Task.Retries, ErrMaxRetriesExceeded, cause)
	}

	next := i.Task.clone()
	next.Retries++
	backoff := i.policy.Backoff
	if backoff == nil {
		backoff = Power{Base: 60 * time.Second}
	}
	delay := backoff.Delay(next.Retries)

	if err := i.submitter.SubmitAfter(ctx, next, delay); err != nil {
		return fmt.Errorf("task %s: schedule retry: %w (cause: %v)", i.Task.Name, err, cause)
	}
	return &RetryScheduledError{Task: i.Task.Name, Attempt: next.Retries, Delay: delay, Cause: cause}
}
