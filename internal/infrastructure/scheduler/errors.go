package scheduler

import "errors"

var (
	// ErrNotPeriodic is returned when a manual trigger names a task without an interval
	ErrNotPeriodic = errors.New("task is not periodic")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
