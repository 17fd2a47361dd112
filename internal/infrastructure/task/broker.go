package task

import (
	"context"
	"time"
)

// Broker stores queued tasks between submission and execution
type Broker interface {
	// Enqueue makes t ready for the next Dequeue
	Enqueue(ctx context.Context, t *Task) error
	// Schedule makes t ready once t.ETA has passed
	Schedule(ctx context.Context, t *Task) error
	// Dequeue blocks until a task is ready or ctx is done
	Dequeue(ctx context.Context) (*Task, error)
	// DeadLetter records a task that failed for good
	DeadLetter(ctx context.Context, t *Task, cause error) error
	// Close releases broker resources
	Close() error
}

// DeadLetter is a task that failed for good
type DeadLetter struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
