package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	tenancyapp "github.com/eta/backend/internal/application/tenancy"
	"github.com/eta/backend/internal/infrastructure/persistence"
	"github.com/eta/backend/internal/infrastructure/task"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Run tenant-aware periodic tasks",
}

var tasksRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Runs a periodic task for every tenant in this process",
	Long: `Runs the per-tenant work of a periodic task synchronously, one tenant at a time.
Follow-on tasks it enqueues run in this process too, before the command returns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		r, err := newLocalRunner(e)
		if err != nil {
			return err
		}
		defer r.close()

		report, err := r.run(ctx, args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d tenants failed", report.Failed, report.Attempted)
		}
		return nil
	},
}

// localRunner runs tenant work and drains its follow-on tasks in-process
type localRunner struct {
	log      *zap.Logger
	executor *tenancyapp.Executor
	tasks    *tenancyapp.Tasks
	broker   *task.MemoryBroker
	pool     *task.Pool
}

func newLocalRunner(e *env) (*localRunner, error) {
	directory := persistence.NewGormTenantDirectory(e.db.DB)
	tenantScope := scope.NewScope(e.log)

	registry := task.NewRegistry()
	broker := task.NewMemoryBroker(1024)
	queue := task.NewQueue(broker, registry, e.log)

	executor := tenancyapp.NewExecutor(directory, tenantScope, e.log)
	tasks := tenancyapp.NewTasks(executor, queue, persistence.NewGormOrderRepository(e.db.DB))
	if err := tasks.Register(registry, tenancyapp.TasksConfig{
		ConnectionCheckInterval: e.cfg.Scheduler.ConnectionCheckInterval,
		OrderSummaryInterval:    e.cfg.Scheduler.OrderSummaryInterval,
	}); err != nil {
		_ = broker.Close()
		return nil, err
	}

	pool := task.NewPool(task.DefaultPoolConfig(), broker, registry, queue, tenantScope, e.log,
		task.WithTenantResolver(directory),
	)
	return &localRunner{
		log:      e.log,
		executor: executor,
		tasks:    tasks,
		broker:   broker,
		pool:     pool,
	}, nil
}

func (r *localRunner) run(ctx context.Context, name string) (tenancyapp.RunReport, error) {
	works := r.tasks.Works()
	work, ok := works[name]
	if !ok {
		names := make([]string, 0, len(works))
		for n := range works {
			names = append(names, n)
		}
		sort.Strings(names)
		return tenancyapp.RunReport{}, fmt.Errorf("%w: %s (periodic tasks: %s)", task.ErrUnknownTask, name, strings.Join(names, ", "))
	}

	report, err := r.executor.RunForAllTenants(ctx, name, work)
	if err != nil {
		return report, err
	}
	return report, r.drain(ctx)
}

// drain processes every ready follow-on task
func (r *localRunner) drain(ctx context.Context) error {
	for r.broker.Ready() > 0 {
		t, err := r.broker.Dequeue(ctx)
		if err != nil {
			return err
		}
		if err := r.pool.Process(ctx, t); err != nil {
			r.log.Warn("Follow-on task failed",
				zap.String("task", t.Name),
				zap.String("tenant", t.TenantSchema),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (r *localRunner) close() {
	_ = r.broker.Close()
}

func printReport(out io.Writer, report tenancyapp.RunReport) {
	fmt.Fprintf(out, "%s: %d tenants, %d succeeded, %d failed\n",
		report.Name, report.Attempted, report.Succeeded, report.Failed)
	for _, schema := range report.FailedTenants {
		fmt.Fprintf(out, "  failed: %s\n", schema)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	tasksCmd.AddCommand(tasksRunCmd)
	rootCmd.AddCommand(tasksCmd)
}

