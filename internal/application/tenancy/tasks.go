package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/eta/backend/internal/domain/order"
	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/task"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"go.uber.org/zap"
)

// Task names
const (
	ConnectionCheckTask = "tenant.connection_check"
	LogConnectionTask   = "tenant.log_connection"
	OrderSummaryTask    = "report.order_summary"
)

// ErrNoTenantScope is returned by a tenant task that runs without an active scope
var ErrNoTenantScope = errors.New("no tenant scope active")

// TasksConfig holds the intervals of the periodic tenant tasks
type TasksConfig struct {
	ConnectionCheckInterval time.Duration
	OrderSummaryInterval    time.Duration
}

// Tasks holds the tenant-aware periodic work and its follow-on task
type Tasks struct {
	executor  *Executor
	submitter task.Submitter
	orders    order.Repository
	now       func() time.Time
}

// NewTasks creates Tasks
func NewTasks(executor *Executor, submitter task.Submitter, orders order.Repository) *Tasks {
	return &Tasks{
		executor:  executor,
		submitter: submitter,
		orders:    orders,
		now:       time.Now,
	}
}

// Register adds the tenant tasks to registry
func (t *Tasks) Register(registry *task.Registry, cfg TasksConfig) error {
	defs := []task.Definition{
		{
			Name:        ConnectionCheckTask,
			Description: "Enqueue a connection log task for every tenant",
			Handler:     TenantAware(t.executor, "connection_check", t.ConnectionCheck),
			Interval:    cfg.ConnectionCheckInterval,
		},
		{
			Name:        LogConnectionTask,
			Description: "Log the schema of the tenant the task runs for",
			Handler:     t.LogConnection,
		},
		{
			Name:        OrderSummaryTask,
			Description: "Log the previous day's order totals for every tenant",
			Handler:     TenantAware(t.executor, "order_summary", t.OrderSummary),
			Interval:    cfg.OrderSummaryInterval,
		},
	}
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Works returns the per-tenant work of the periodic tasks by task name
func (t *Tasks) Works() map[string]WorkFunc {
	return map[string]WorkFunc{
		ConnectionCheckTask: t.ConnectionCheck,
		OrderSummaryTask:    t.OrderSummary,
	}
}

// ConnectionCheck enqueues a LogConnectionTask inside the tenant's scope, so
// the follow-on task carries the tenant.
func (t *Tasks) ConnectionCheck(ctx context.Context, _ tenancy.Tenant) error {
	next, err := task.New(LogConnectionTask, nil)
	if err != nil {
		return err
	}
	return t.submitter.Submit(ctx, next)
}

// LogConnection logs the schema of the active tenant scope
func (t *Tasks) LogConnection(ctx context.Context, _ *task.Invocation) error {
	current, ok := scope.Current(ctx)
	if !ok {
		return ErrNoTenantScope
	}
	logger.L(ctx).Info("Tenant connection check",
		zap.String("schema", current.SchemaName),
	)
	return nil
}

// OrderSummary logs the tenant's orders placed during the previous UTC day
func (t *Tasks) OrderSummary(ctx context.Context, tn tenancy.Tenant) error {
	to := t.now().UTC().Truncate(24 * time.Hour)
	from := to.Add(-24 * time.Hour)

	summary, err := t.orders.Summarize(ctx, from, to)
	if err != nil {
		return err
	}
	logger.L(ctx).Info("Daily order summary",
		zap.String("day", from.Format(time.DateOnly)),
		zap.Int64("orders", summary.OrderCount),
		zap.Int64("lines", summary.LineCount),
		zap.String("revenue", summary.Revenue.StringFixed(2)),
	)
	return nil
}
