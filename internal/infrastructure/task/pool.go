package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"go.uber.org/zap"
)

// Outcome is how a task run ended
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
)

// Observer is notified after every task run
type Observer interface {
	TaskFinished(ctx context.Context, name string, outcome Outcome, elapsed time.Duration)
}

// TenantResolver reloads a task's tenant before it runs
type TenantResolver interface {
	FindBySchema(ctx context.Context, schema string) (*tenancy.Tenant, error)
}

// PoolConfig holds worker pool configuration
type PoolConfig struct {
	Workers    int
	JobTimeout time.Duration
	// ErrorPause is how long a worker waits after a broker error
	ErrorPause time.Duration
}

// DefaultPoolConfig returns default worker pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    4,
		JobTimeout: 5 * time.Minute,
		ErrorPause: time.Second,
	}
}

// Pool runs tasks pulled from a broker on a fixed number of workers
type Pool struct {
	config    PoolConfig
	broker    Broker
	registry  *Registry
	submitter Submitter
	scope     *scope.Scope
	resolver  TenantResolver
	observer  Observer
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithTenantResolver reloads each task's tenant by schema before running it
func WithTenantResolver(r TenantResolver) PoolOption {
	return func(p *Pool) { p.resolver = r }
}

// WithObserver reports task outcomes to o
func WithObserver(o Observer) PoolOption {
	return func(p *Pool) { p.observer = o }
}

// NewPool creates a worker pool. Retries requested by handlers go through submitter.
func NewPool(config PoolConfig, broker Broker, registry *Registry, submitter Submitter, tenantScope *scope.Scope, log *zap.Logger, opts ...PoolOption) *Pool {
	if config.Workers <= 0 {
		config.Workers = DefaultPoolConfig().Workers
	}
	if config.ErrorPause <= 0 {
		config.ErrorPause = DefaultPoolConfig().ErrorPause
	}
	if log == nil {
		log = zap.NewNop()
	}
	if tenantScope == nil {
		tenantScope = scope.NewScope(log)
	}
	p := &Pool{
		config:    config,
		broker:    broker,
		registry:  registry,
		submitter: submitter,
		scope:     tenantScope,
		logger:    logger.Component(log, "task_worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	p.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Task workers started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop cancels the workers and waits for running tasks until ctx is done
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Task workers stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Task workers stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are started
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", workerID))
	for {
		t, err := p.broker.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrBrokerClosed) {
				p.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
				return
			}
			p.logger.Error("Failed to dequeue task", zap.Int("worker_id", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.config.ErrorPause):
			}
			continue
		}
		// In-flight tasks finish after Stop; JobTimeout bounds them
		_ = p.Process(context.WithoutCancel(ctx), t)
	}
}

// Process runs one task to completion: a success, a scheduled retry, or a
// failure that is dead-lettered. It returns the handler's error.
func (p *Pool) Process(ctx context.Context, t *Task) error {
	start := time.Now()
	ctx, log := logger.WithTaskID(ctx, p.logger, t.ID.String())
	log = log.With(zap.String("task", t.Name), zap.Int("retries", t.Retries))
	if t.HasTenant() {
		log = log.With(zap.String("tenant_schema", t.TenantSchema))
	}

	err := p.execute(ctx, t)

	outcome := OutcomeSucceeded
	switch {
	case err == nil:
		log.Info("Task succeeded", zap.Duration("elapsed", time.Since(start)))
	case errors.Is(err, ErrRetryScheduled):
		outcome = OutcomeRetried
		log.Warn("Task retry scheduled", zap.Error(err))
	default:
		outcome = OutcomeFailed
		log.Error("Task failed", zap.Error(err))
		if dlErr := p.broker.DeadLetter(ctx, t, err); dlErr != nil {
			log.Error("Failed to dead-letter task", zap.Error(dlErr))
		}
	}

	if p.observer != nil {
		p.observer.TaskFinished(ctx, t.Name, outcome, time.Since(start))
	}
	return err
}

func (p *Pool) execute(ctx context.Context, t *Task) error {
	def, err := p.registry.Get(t.Name)
	if err != nil {
		return err
	}

	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	inv := NewInvocation(t, def.Retry, p.submitter)
	run := func(ctx context.Context) error {
		return safeCall(ctx, def.Handler, inv)
	}

	if !t.HasTenant() {
		return run(ctx)
	}

	tn := t.Tenant()
	if p.resolver != nil {
		resolved, err := p.resolver.FindBySchema(ctx, t.TenantSchema)
		if err != nil {
			return fmt.Errorf("resolve tenant %s: %w", t.TenantSchema, err)
		}
		tn = *resolved
	}
	return p.scope.Run(ctx, tn, run)
}

// safeCall turns a handler panic into an error
func safeCall(ctx context.Context, h Handler, inv *Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v\n%s", inv.Task.Name, r, debug.Stack())
		}
	}()
	return h(ctx, inv)
}
