package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// TaskCatalog lists registered task definitions
type TaskCatalog interface {
	Definitions() []*task.Definition
}

// PeriodicRunner triggers periodic tasks out of schedule
type PeriodicRunner interface {
	Trigger(ctx context.Context, name string) (*task.Task, error)
	NextRun(name string) (time.Time, bool)
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler serves health checks and the task administration endpoints
type SystemHandler struct {
	BaseHandler
	catalog   TaskCatalog
	runner    PeriodicRunner
	checks    map[string]Pinger
	version   string
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler. Ready pings every entry in checks.
func NewSystemHandler(catalog TaskCatalog, runner PeriodicRunner, version string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{
		catalog:   catalog,
		runner:    runner,
		checks:    checks,
		version:   version,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "ETA Backend",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health reports that the process is serving
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Ready pings every dependency and answers 503 when one is down
func (h *SystemHandler) Ready(c *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(status, resp)
}

// ListTasks handles GET /system/tasks and lists every registered task definition
func (h *SystemHandler) ListTasks(c *gin.Context) {
	defs := h.catalog.Definitions()
	resp := make([]dto.TaskDefinitionResponse, 0, len(defs))
	for _, def := range defs {
		item := dto.TaskDefinitionResponse{
			Name:        def.Name,
			Description: def.Description,
			Periodic:    def.Periodic(),
			MaxRetries:  def.Retry.MaxRetries,
		}
		if def.Periodic() {
			item.Interval = def.Interval.String()
			if next, ok := h.runner.NextRun(def.Name); ok {
				item.NextRunAt = &next
			}
		}
		resp = append(resp, item)
	}
	h.Success(c, resp)
}

// RunPeriodic handles POST /system/periodic/:name/run.
// It answers 202 once the task is queued, 404 for unknown names and 400 for
// tasks that are not periodic.
func (h *SystemHandler) RunPeriodic(c *gin.Context) {
	t, err := h.runner.Trigger(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, enqueued(t))
}
