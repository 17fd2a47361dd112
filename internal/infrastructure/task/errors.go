package task

import "errors"

var (
	// ErrRetryScheduled is returned by a handler whose task was re-enqueued for a later attempt
	ErrRetryScheduled = errors.New("task retry scheduled")

	// ErrMaxRetriesExceeded is returned when a task asks for a retry with no retries left
	ErrMaxRetriesExceeded = errors.New("task max retries exceeded")

	// ErrUnknownTask is returned for task names missing from the registry
	ErrUnknownTask = errors.New("unknown task")

	// ErrDuplicateTask is returned when a task name is registered twice
	ErrDuplicateTask = errors.New("task already registered")

	// ErrQueueFull is returned when the in-memory broker cannot accept more tasks
	ErrQueueFull = errors.New("task queue is full")

	// ErrBrokerClosed is returned when using a broker after Close
	ErrBrokerClosed = errors.New("task broker is closed")
)
