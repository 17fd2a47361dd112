package task

import (
	"context"
	"time"

	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submitter enqueues tasks
type Submitter interface {
	Submit(ctx context.Context, t *Task) error
	SubmitAfter(ctx context.Context, t *Task, delay time.Duration) error
}

// Queue submits registered tasks to a broker.
// A task without a tenant picks up the tenant scope active on ctx.
type Queue struct {
	broker   Broker
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewQueue creates a Queue
func NewQueue(broker Broker, registry *Registry, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		broker:   broker,
		registry: registry,
		logger:   logger.Component(log, "task_queue"),
		now:      time.Now,
	}
}

var _ Submitter = (*Queue)(nil)

// Submit enqueues t for immediate execution
func (q *Queue) Submit(ctx context.Context, t *Task) error {
	return q.SubmitAfter(ctx, t, 0)
}

// SubmitAfter enqueues t to run once delay has elapsed
func (q *Queue) SubmitAfter(ctx context.Context, t *Task, delay time.Duration) error {
	if _, err := q.registry.Get(t.Name); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if !t.HasTenant() {
		if tn, ok := tenancy.Current(ctx); ok {
			t.TenantID = tn.ID
			t.TenantSchema = tn.SchemaName
		}
	}

	now := q.now()
	t.EnqueuedAt = now
	t.ETA = now.Add(delay)

	var err error
	if delay > 0 {
		err = q.broker.Schedule(ctx, t)
	} else {
		err = q.broker.Enqueue(ctx, t)
	}
	if err != nil {
		return err
	}

	q.logger.Debug("Task submitted",
		zap.String("task", t.Name),
		zap.String("task_id", t.ID.String()),
		zap.String("tenant_schema", t.TenantSchema),
		zap.Int("retries", t.Retries),
		zap.Duration("delay", delay),
	)
	return nil
}

// Enqueue builds and submits a task from a name and payload
func (q *Queue) Enqueue(ctx context.Context, name string, payload any) (*Task, error) {
	t, err := New(name, payload)
	if err != nil {
		return nil, err
	}
	if err := q.Submit(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
