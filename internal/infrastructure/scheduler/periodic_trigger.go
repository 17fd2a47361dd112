// Package scheduler submits periodic tasks to the task queue on their intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/task"
	"go.uber.org/zap"
)

// PeriodicTriggerConfig holds configuration for the periodic trigger
type PeriodicTriggerConfig struct {
	// CheckInterval is how often due tasks are looked for
	CheckInterval time.Duration
}

// DefaultPeriodicTriggerConfig returns default periodic trigger configuration
func DefaultPeriodicTriggerConfig() PeriodicTriggerConfig {
	return PeriodicTriggerConfig{
		CheckInterval: time.Second,
	}
}

// PeriodicTrigger submits every periodic definition of a registry once its
// interval has elapsed. The first run of a task happens one interval after Start.
type PeriodicTrigger struct {
	config    PeriodicTriggerConfig
	registry  *task.Registry
	submitter task.Submitter
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	nextRun   map[string]time.Time
}

// NewPeriodicTrigger creates a new periodic trigger
func NewPeriodicTrigger(
	config PeriodicTriggerConfig,
	registry *task.Registry,
	submitter task.Submitter,
	log *zap.Logger,
) (*PeriodicTrigger, error) {
	if config.CheckInterval <= 0 {
		return nil, fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PeriodicTrigger{
		config:    config,
		registry:  registry,
		submitter: submitter,
		logger:    logger.Component(log, "periodic_trigger"),
		now:       time.Now,
		nextRun:   make(map[string]time.Time),
	}, nil
}

// Start starts the trigger loop
func (p *PeriodicTrigger) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	start := p.now()
	for _, def := range p.registry.Periodic() {
		p.nextRun[def.Name] = start.Add(def.Interval)
	}
	scheduled := len(p.nextRun)
	ctx, p.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go p.runLoop(ctx, done)

	p.logger.Info("Periodic trigger started",
		zap.Int("periodic_tasks", scheduled),
		zap.Duration("check_interval", p.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (p *PeriodicTrigger) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	cancel()

	select {
	case <-done:
		p.logger.Info("Periodic trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the trigger loop is running
func (p *PeriodicTrigger) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

func (p *PeriodicTrigger) runLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger submits every periodic task whose next run is due.
// A submit failure is logged and retried on the next interval.
func (p *PeriodicTrigger) checkAndTrigger(ctx context.Context) {
	now := p.now()

	var due []*task.Definition
	p.mu.Lock()
	for _, def := range p.registry.Periodic() {
		next, ok := p.nextRun[def.Name]
		if !ok {
			p.nextRun[def.Name] = now.Add(def.Interval)
			continue
		}
		if now.Before(next) {
			continue
		}
		p.nextRun[def.Name] = now.Add(def.Interval)
		due = append(due, def)
	}
	p.mu.Unlock()

	for _, def := range due {
		if _, err := p.submit(ctx, def.Name); err != nil {
			p.logger.Error("Failed to submit periodic task",
				zap.String("task", def.Name),
				zap.Error(err),
			)
		}
	}
}

// Trigger submits a periodic task immediately, outside its schedule
func (p *PeriodicTrigger) Trigger(ctx context.Context, name string) (*task.Task, error) {
	def, err := p.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if !def.Periodic() {
		return nil, fmt.Errorf("%w: %s", ErrNotPeriodic, name)
	}
	return p.submit(ctx, name)
}

// NextRun returns when the named task is due next
func (p *PeriodicTrigger) NextRun(name string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextRun[name]
	return next, ok
}

func (p *PeriodicTrigger) submit(ctx context.Context, name string) (*task.Task, error) {
	t, err := task.New(name, nil)
	if err != nil {
		return nil, err
	}
	if err := p.submitter.Submit(ctx, t); err != nil {
		return nil, fmt.Errorf("submit periodic task %s: %w", name, err)
	}
	p.logger.Info("Periodic task submitted",
		zap.String("task", name),
		zap.String("task_id", t.ID.String()),
	)
	return t, nil
}
