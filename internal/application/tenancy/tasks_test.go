package tenancy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eta/backend/internal/domain/order"
	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/task"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockOrderRepo is a mock implementation of order.Repository
type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockOrderRepo) Summarize(ctx context.Context, from, to time.Time) (*order.Summary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Summary), args.Error(1)
}

type taskHarness struct {
	registry *task.Registry
	broker   *task.MemoryBroker
	pool     *task.Pool
	tasks    *Tasks
	orders   *mockOrderRepo
	logs     *observer.ObservedLogs
}

func newTaskHarness(t *testing.T, tenants ...tenancy.Tenant) *taskHarness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	dir := new(mockDirectory)
	dir.On("ListActive", mock.Anything).Return(tenants, nil)

	tenantScope := scope.NewScope(log)
	registry := task.NewRegistry()
	broker := task.NewMemoryBroker(16)
	t.Cleanup(func() { _ = broker.Close() })
	queue := task.NewQueue(broker, registry, log)

	orders := new(mockOrderRepo)
	tasks := NewTasks(NewExecutor(dir, tenantScope, log), queue, orders)
	require.NoError(t, tasks.Register(registry, TasksConfig{
		ConnectionCheckInterval: 10 * time.Second,
		OrderSummaryInterval:    24 * time.Hour,
	}))

	pool := task.NewPool(task.DefaultPoolConfig(), broker, registry, queue, tenantScope, log)
	return &taskHarness{registry: registry, broker: broker, pool: pool, tasks: tasks, orders: orders, logs: logs}
}

func (h *taskHarness) dequeue(t *testing.T) *task.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next, err := h.broker.Dequeue(ctx)
	require.NoError(t, err)
	return next
}

func TestTasks_Register(t *testing.T) {
	h := newTaskHarness(t)

	periodic := h.registry.Periodic()
	require.Len(t, periodic, 2)
	assert.Equal(t, OrderSummaryTask, periodic[0].Name)
	assert.Equal(t, 24*time.Hour, periodic[0].Interval)
	assert.Equal(t, ConnectionCheckTask, periodic[1].Name)
	assert.Equal(t, 10*time.Second, periodic[1].Interval)

	def, err := h.registry.Get(LogConnectionTask)
	require.NoError(t, err)
	assert.False(t, def.Periodic())

	assert.ErrorIs(t, h.tasks.Register(h.registry, TasksConfig{}), task.ErrDuplicateTask)
	assert.Len(t, h.tasks.Works(), 2)
}

func TestConnectionCheck_EnqueuesFollowOnPerTenant(t *testing.T) {
	a, b := newTenant("tenant_a"), newTenant("tenant_b")
	h := newTaskHarness(t, a, b)
	ctx := context.Background()

	check, err := task.New(ConnectionCheckTask, nil)
	require.NoError(t, err)
	require.NoError(t, h.pool.Process(ctx, check))

	first, second := h.dequeue(t), h.dequeue(t)
	assert.Equal(t, LogConnectionTask, first.Name)
	assert.Equal(t, "tenant_a", first.TenantSchema)
	assert.Equal(t, a.ID, first.TenantID)
	assert.Equal(t, "tenant_b", second.TenantSchema)

	require.NoError(t, h.pool.Process(ctx, first))
	require.NoError(t, h.pool.Process(ctx, second))

	entries := h.logs.FilterMessage("Tenant connection check").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "tenant_a", entries[0].ContextMap()["schema"])
	assert.Equal(t, "tenant_a", entries[0].ContextMap()["tenant_schema"])
	assert.Equal(t, "tenant_b", entries[1].ContextMap()["schema"])
}

func TestLogConnection_RequiresScope(t *testing.T) {
	h := newTaskHarness(t)
	err := h.tasks.LogConnection(context.Background(), task.NewInvocation(&task.Task{Name: LogConnectionTask}, task.RetryPolicy{}, nil))
	assert.ErrorIs(t, err, ErrNoTenantScope)
}

func TestOrderSummary(t *testing.T) {
	a, b := newTenant("tenant_a"), newTenant("tenant_b")
	h := newTaskHarness(t, a, b)
	h.tasks.now = func() time.Time { return time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC) }

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	isTenant := func(schema string) any {
		return mock.MatchedBy(func(ctx context.Context) bool {
			return logger.GetTenantSchema(ctx) == schema
		})
	}
	h.orders.On("Summarize", isTenant("tenant_a"), from, to).
		Return(&order.Summary{From: from, To: to, OrderCount: 3, LineCount: 5, Revenue: decimal.RequireFromString("42.5")}, nil)
	h.orders.On("Summarize", isTenant("tenant_b"), from, to).
		Return(nil, errors.New("relation \"orders\" does not exist"))

	summary, err := task.New(OrderSummaryTask, nil)
	require.NoError(t, err)
	require.NoError(t, h.pool.Process(context.Background(), summary))

	entries := h.logs.FilterMessage("Daily order summary").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "2024-03-01", fields["day"])
	assert.Equal(t, int64(3), fields["orders"])
	assert.Equal(t, "42.50", fields["revenue"])
	assert.Equal(t, "tenant_a", fields["tenant_schema"])

	failures := h.logs.FilterMessage("Tenant work failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "tenant_b", failures[0].ContextMap()["tenant_schema"])

	h.orders.AssertExpectations(t)
}
