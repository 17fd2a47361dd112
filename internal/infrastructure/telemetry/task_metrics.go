package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/task"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"go.opentelemetry.io/otel/metric"
)

const taskMeterName = "github.com/eta/backend/task"

// TaskMetrics records task runs, per-tenant periodic work and active tenant scopes
type TaskMetrics struct {
	tasksTotal   *Counter
	taskDuration *Histogram
	tenantRuns   *Counter
	tenantFailed *Counter
	activeScopes *UpDownCounter
}

// NewTaskMetrics creates the task runtime instruments on meter
func NewTaskMetrics(meter metric.Meter) (*TaskMetrics, error) {
	tasksTotal, err := NewCounter(meter, "eta.tasks.completed", "Task runs by outcome", "{task}")
	if err != nil {
		return nil, err
	}
	taskDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "eta.tasks.duration",
		Description: "Task run duration",
		Unit:        "s",
		Boundaries:  TaskDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	tenantRuns, err := NewCounter(meter, "eta.tenant_work.attempted", "Tenants attempted by periodic work", "{tenant}")
	if err != nil {
		return nil, err
	}
	tenantFailed, err := NewCounter(meter, "eta.tenant_work.failed", "Tenants whose periodic work failed", "{tenant}")
	if err != nil {
		return nil, err
	}
	activeScopes, err := NewUpDownCounter(meter, "eta.tenant_scopes.active", "Tenant scopes currently active", "{scope}")
	if err != nil {
		return nil, err
	}
	return &TaskMetrics{
		tasksTotal:   tasksTotal,
		taskDuration: taskDuration,
		tenantRuns:   tenantRuns,
		tenantFailed: tenantFailed,
		activeScopes: activeScopes,
	}, nil
}

// NewTaskMetricsFromProvider creates TaskMetrics on the provider's task meter
func NewTaskMetricsFromProvider(mp *MeterProvider) (*TaskMetrics, error) {
	m, err := NewTaskMetrics(mp.Meter(taskMeterName))
	if err != nil {
		return nil, fmt.Errorf("create task metrics: %w", err)
	}
	return m, nil
}

var _ task.Observer = (*TaskMetrics)(nil)

// TaskFinished implements task.Observer
func (m *TaskMetrics) TaskFinished(ctx context.Context, name string, outcome task.Outcome, elapsed time.Duration) {
	m.tasksTotal.Inc(ctx, AttrTaskName.String(name), AttrTaskOutcome.String(string(outcome)))
	m.taskDuration.RecordDuration(ctx, elapsed, AttrTaskName.String(name))
}

// TenantRunFinished records one pass of periodic work over all tenants
func (m *TaskMetrics) TenantRunFinished(ctx context.Context, work string, attempted, failed int) {
	m.tenantRuns.Add(ctx, int64(attempted), AttrWorkName.String(work))
	if failed > 0 {
		m.tenantFailed.Add(ctx, int64(failed), AttrWorkName.String(work))
	}
}

// ScopeHook returns a tenant scope hook that tracks active scopes
func (m *TaskMetrics) ScopeHook() scope.Hook {
	return scope.Hook{
		Enter: func(ctx context.Context, t tenancy.Tenant) {
			m.activeScopes.Add(ctx, 1, AttrTenantSchema.String(t.SchemaName))
		},
		Exit: func(ctx context.Context, t tenancy.Tenant) {
			m.activeScopes.Add(ctx, -1, AttrTenantSchema.String(t.SchemaName))
		},
	}
}
