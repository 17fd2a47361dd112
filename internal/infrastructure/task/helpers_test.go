package task

import (
	"context"
	"sync"
	"time"
)

type submission struct {
	Task  *Task
	Delay time.Duration
}

// recordingSubmitter captures submissions without running them
type recordingSubmitter struct {
	mu    sync.Mutex
	calls []submission
	err   error
}

func (s *recordingSubmitter) Submit(ctx context.Context, t *Task) error {
	return s.SubmitAfter(ctx, t, 0)
}

func (s *recordingSubmitter) SubmitAfter(_ context.Context, t *Task, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, submission{Task: t, Delay: delay})
	return nil
}

func (s *recordingSubmitter) submissions() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.calls...)
}
