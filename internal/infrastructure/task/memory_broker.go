package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBroker is an in-process broker backed by a buffered channel.
// Delayed tasks are held by timers; everything is lost on restart.
type MemoryBroker struct {
	ready  chan *Task
	closed chan struct{}

	mu      sync.Mutex
	timers  map[*time.Timer]*Task
	dead    []DeadLetter
	isClose bool
}

// NewMemoryBroker creates a MemoryBroker holding up to capacity ready tasks
func NewMemoryBroker(capacity int) *MemoryBroker {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryBroker{
		ready:  make(chan *Task, capacity),
		closed: make(chan struct{}),
		timers: make(map[*time.Timer]*Task),
	}
}

var _ Broker = (*MemoryBroker)(nil)

// Enqueue implements Broker
func (b *MemoryBroker) Enqueue(_ context.Context, t *Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClose {
		return ErrBrokerClosed
	}
	select {
	case b.ready <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Schedule implements Broker. A delayed task that cannot be made ready
// when its timer fires is dead-lettered with the enqueue error.
func (b *MemoryBroker) Schedule(ctx context.Context, t *Task) error {
	delay := time.Until(t.ETA)
	if delay <= 0 {
		return b.Enqueue(ctx, t)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClose {
		return ErrBrokerClosed
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		b.mu.Lock()
		delete(b.timers, timer)
		b.mu.Unlock()
		if err := b.Enqueue(context.Background(), t); err != nil {
			_ = b.DeadLetter(context.Background(), t, fmt.Errorf("enqueue delayed task: %w", err))
		}
	})
	b.timers[timer] = t
	return nil
}

// Dequeue implements Broker
func (b *MemoryBroker) Dequeue(ctx context.Context) (*Task, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.closed:
		return nil, ErrBrokerClosed
	case t := <-b.ready:
		return t, nil
	}
}

// DeadLetter implements Broker
func (b *MemoryBroker) DeadLetter(_ context.Context, t *Task, cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	b.dead = append(b.dead, DeadLetter{Task: t, Error: msg, FailedAt: time.Now()})
	return nil
}

// DeadLetters returns a copy of the dead-lettered tasks
func (b *MemoryBroker) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DeadLetter(nil), b.dead...)
}

// Ready returns the number of tasks a Dequeue would return without waiting
func (b *MemoryBroker) Ready() int {
	return len(b.ready)
}

// Pending returns the number of ready and delayed tasks
func (b *MemoryBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ready) + len(b.timers)
}

// Close wakes blocked consumers and dead-letters tasks still waiting on a timer
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClose {
		return nil
	}
	b.isClose = true
	now := time.Now()
	for timer, t := range b.timers {
		if timer.Stop() {
			b.dead = append(b.dead, DeadLetter{Task: t, Error: ErrBrokerClosed.Error(), FailedAt: now})
		}
	}
	b.timers = map[*time.Timer]*Task{}
	close(b.closed)
	return nil
}
