package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eta/backend/internal/application/notification"
	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/scheduler"
	"github.com/eta/backend/internal/infrastructure/task"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/eta/backend/internal/interfaces/http/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// staticTenants resolves tenants from a fixed list
type staticTenants []tenancy.Tenant

func (s staticTenants) find(match func(tenancy.Tenant) bool) (*tenancy.Tenant, error) {
	for _, tn := range s {
		if match(tn) {
			return &tn, nil
		}
	}
	return nil, tenancy.ErrTenantNotFound
}

func (s staticTenants) FindByID(_ context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	return s.find(func(tn tenancy.Tenant) bool { return tn.ID == id })
}

func (s staticTenants) FindBySchema(_ context.Context, schema string) (*tenancy.Tenant, error) {
	return s.find(func(tn tenancy.Tenant) bool { return tn.SchemaName == schema })
}

func (s staticTenants) FindByDomain(_ context.Context, domain string) (*tenancy.Tenant, error) {
	return s.find(func(tn tenancy.Tenant) bool {
		for _, d := range tn.Domains {
			if d == domain {
				return true
			}
		}
		return false
	})
}

type apiHarness struct {
	broker *task.MemoryBroker
	server *httptest.Server
	acme   tenancy.Tenant
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	log := zaptest.NewLogger(t)
	noop := func(context.Context, *task.Invocation) error { return nil }

	registry := task.NewRegistry()
	require.NoError(t, registry.Register(task.Definition{Name: notification.OrderConfirmationTask, Handler: noop}))
	require.NoError(t, registry.Register(task.Definition{Name: "tenant.connection_check", Handler: noop, Interval: time.Minute}))

	broker := task.NewMemoryBroker(16)
	t.Cleanup(func() { _ = broker.Close() })
	queue := task.NewQueue(broker, registry, log)
	trigger, err := scheduler.NewPeriodicTrigger(scheduler.DefaultPeriodicTriggerConfig(), registry, queue, log)
	require.NoError(t, err)

	acme := tenancy.Tenant{ID: uuid.New(), SchemaName: "acme", Domains: []string{"acme.shop.test"}}
	engine := NewEngine(Config{
		Logger:              log,
		Version:             "test",
		Tenants:             staticTenants{acme},
		Scope:               scope.NewScope(log),
		Queue:               queue,
		Tasks:               registry,
		Runner:              trigger,
		ManualRunsPerMinute: 1,
	})
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return &apiHarness{broker: broker, server: server, acme: acme}
}

func (h *apiHarness) do(t *testing.T, method, path string, headers map[string]string) (*http.Response, dto.Response) {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body dto.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (h *apiHarness) dequeue(t *testing.T) *task.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	queued, err := h.broker.Dequeue(ctx)
	require.NoError(t, err)
	return queued
}

func TestAPI_OrderConfirmation(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/orders/100023/confirmation",
		map[string]string{middleware.TenantSchemaHeader: "acme"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "acme", body.Data.(map[string]any)["tenant_schema"])

	queued := h.dequeue(t)
	assert.Equal(t, notification.OrderConfirmationTask, queued.Name)
	assert.Equal(t, h.acme.ID, queued.TenantID)

	var payload notification.OrderConfirmationPayload
	require.NoError(t, queued.Decode(&payload))
	assert.Equal(t, "100023", payload.OrderNumber)
}

func TestAPI_OrderConfirmationRequiresTenant(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/orders/100023/confirmation", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dto.ErrCodeTenantRequired, body.Error.Code)
	assert.Zero(t, h.broker.Pending())
}

func TestAPI_PeriodicRun(t *testing.T) {
	h := newAPIHarness(t)

	resp, _ := h.do(t, http.MethodPost, "/api/v1/system/periodic/tenant.connection_check/run", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "tenant.connection_check", h.dequeue(t).Name)

	resp, body := h.do(t, http.MethodPost, "/api/v1/system/periodic/tenant.connection_check/run", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, dto.ErrCodeRateLimited, body.Error.Code)
}

func TestAPI_PeriodicRunRejectsRegularTask(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/system/periodic/"+notification.OrderConfirmationTask+"/run", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, dto.ErrCodeNotPeriodic, body.Error.Code)
}

func TestAPI_Health(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := h.server.Client().Get(h.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
