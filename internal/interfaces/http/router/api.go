package router

import (
	"time"

	"github.com/eta/backend/internal/infrastructure/logger"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/eta/backend/internal/interfaces/http/handler"
	"github.com/eta/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config carries the collaborators of the trigger API
type Config struct {
	Logger  *zap.Logger
	Version string

	Tenants middleware.TenantLookup
	Scope   *scope.Scope
	Queue   handler.TaskEnqueuer
	Tasks   handler.TaskCatalog
	Runner  handler.PeriodicRunner
	Checks  map[string]handler.Pinger

	Tracing        middleware.TracingConfig
	TracerProvider trace.TracerProvider
	Meter          metric.Meter

	// MaxBodyBytes bounds request bodies; 0 means 1 MiB
	MaxBodyBytes int64
	// ManualRunsPerMinute bounds manual periodic runs per client; 0 means 10
	ManualRunsPerMinute int
}

// NewEngine builds the gin engine with middleware and all routes mounted.
//
//	GET  /health, /ready
//	POST /api/v1/orders/:number/confirmation        (tenant scoped)
//	POST /api/v1/customers/:id/emails/:kind         (tenant scoped)
//	GET  /api/v1/system/info, /api/v1/system/tasks
//	POST /api/v1/system/periodic/:name/run
func NewEngine(cfg Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.ManualRunsPerMinute <= 0 {
		cfg.ManualRunsPerMinute = 10
	}
	tracing := cfg.Tracing
	if cfg.TracerProvider != nil {
		tracing.TracerProvider = cfg.TracerProvider
	}

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.Tracing(tracing),
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(cfg.Meter, log),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)

	system := handler.NewSystemHandler(cfg.Tasks, cfg.Runner, cfg.Version, cfg.Checks)
	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)

	tenantScope := middleware.TenantScope(middleware.TenantConfig{
		Lookup: cfg.Tenants,
		Scope:  cfg.Scope,
		Logger: log,
	})
	notifications := handler.NewNotificationHandler(cfg.Queue)
	manualRuns := middleware.RateLimit(middleware.NewRateLimiter(cfg.ManualRunsPerMinute, time.Minute))

	NewRouter(engine).
		Register(NewDomainGroup("orders", "/orders").
			Use(tenantScope).
			POST("/:number/confirmation", notifications.SendOrderConfirmation)).
		Register(NewDomainGroup("customers", "/customers").
			Use(tenantScope).
			POST("/:id/emails/:kind", notifications.SendAccountEmail)).
		Register(NewDomainGroup("system", "/system").
			GET("/info", system.GetSystemInfo).
			GET("/tasks", system.ListTasks).
			POST("/periodic/:name/run", manualRuns, system.RunPeriodic)).
		Setup()

	return engine
}
