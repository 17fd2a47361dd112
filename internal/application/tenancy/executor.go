// Package tenancy runs periodic work once per tenant, each run isolated in
// that tenant's scope.
package tenancy

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/eta/backend/internal/infrastructure/telemetry"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"go.uber.org/zap"
)

// WorkFunc is a unit of periodic work run inside one tenant's scope
type WorkFunc func(ctx context.Context, t tenancy.Tenant) error

// RunReport summarizes one pass of a WorkFunc over all tenants
type RunReport struct {
	Name          string
	Attempted     int
	Succeeded     int
	Failed        int
	FailedTenants []string
}

// RunRecorder receives a report after every pass
type RunRecorder interface {
	TenantRunFinished(ctx context.Context, work string, attempted, failed int)
}

// PanicError is returned for a tenant whose work panicked
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Executor runs work for every tenant of the directory except public.
// Tenants run one after another; a failing tenant never stops the others.
type Executor struct {
	directory tenancy.Directory
	scope     *scope.Scope
	logger    *zap.Logger
	recorder  RunRecorder
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithRunRecorder reports every pass to r
func WithRunRecorder(r RunRecorder) ExecutorOption {
	return func(e *Executor) {
		e.recorder = r
	}
}

// NewExecutor creates an Executor
func NewExecutor(directory tenancy.Directory, tenantScope *scope.Scope, log *zap.Logger, opts ...ExecutorOption) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	if tenantScope == nil {
		tenantScope = scope.NewScope(log)
	}
	e := &Executor{
		directory: directory,
		scope:     tenantScope,
		logger:    logger.Component(log, "tenant_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunForAllTenants calls work once per tenant in listing order.
//
// A directory failure aborts the run and is returned. Errors and panics from
// work are logged with the tenant schema and the work name, counted in the
// report, and do not stop the remaining tenants. The run stops early only
// when ctx is done.
func (e *Executor) RunForAllTenants(ctx context.Context, name string, work WorkFunc) (RunReport, error) {
	report := RunReport{Name: name}

	tenants, err := e.directory.ListActive(ctx)
	if err != nil {
		e.logger.Error("Failed to list tenants",
			zap.String("work", name),
			zap.Error(err),
		)
		return report, fmt.Errorf("run %s for all tenants: %w", name, err)
	}
	tenants = tenancy.ExcludePublic(tenants)

	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("Tenant run interrupted",
				zap.String("work", name),
				zap.Int("remaining", len(tenants)-report.Attempted),
			)
			e.record(ctx, report)
			return report, err
		}

		report.Attempted++
		if err := e.runTenant(ctx, name, t, work); err != nil {
			report.Failed++
			report.FailedTenants = append(report.FailedTenants, t.SchemaName)
			e.logFailure(name, t, err)
			continue
		}
		report.Succeeded++
	}

	e.logger.Info("Tenant run finished",
		zap.String("work", name),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	e.record(ctx, report)
	return report, nil
}

// runTenant runs work inside t's scope. The scope is released before a panic
// is turned into an error.
func (e *Executor) runTenant(ctx context.Context, name string, t tenancy.Tenant, work WorkFunc) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "tenant_work."+name,
		telemetry.WithAttribute(telemetry.SpanAttrWorkName, name),
		telemetry.WithAttribute(telemetry.SpanAttrTenantSchema, t.SchemaName),
	)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
	}()

	return e.scope.Run(ctx, t, func(ctx context.Context) error {
		return work(ctx, t)
	})
}

func (e *Executor) logFailure(name string, t tenancy.Tenant, err error) {
	fields := []zap.Field{
		zap.String("work", name),
		zap.String("tenant_schema", t.SchemaName),
		zap.String("tenant_id", t.ID.String()),
		zap.Error(err),
	}
	if pe, ok := err.(*PanicError); ok {
		fields = append(fields, zap.ByteString("stack", pe.Stack))
	}
	e.logger.Error("Tenant work failed", fields...)
}

func (e *Executor) record(ctx context.Context, report RunReport) {
	if e.recorder != nil {
		e.recorder.TenantRunFinished(ctx, report.Name, report.Attempted, report.Failed)
	}
}

// TenantAware turns per-tenant work into a task handler that runs it for
// every tenant. Only a directory failure fails the task.
func TenantAware(executor *Executor, name string, work WorkFunc) task.Handler {
	return func(ctx context.Context, _ *task.Invocation) error {
		_, err := executor.RunForAllTenants(ctx, name, work)
		return err
	}
}
