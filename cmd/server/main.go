package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/eta/backend/internal/application/notification"
	tenancyapp "github.com/eta/backend/internal/application/tenancy"
	"github.com/eta/backend/internal/infrastructure/config"
	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/eta/backend/internal/infrastructure/mail"
	"github.com/eta/backend/internal/infrastructure/persistence"
	"github.com/eta/backend/internal/infrastructure/scheduler"
	"github.com/eta/backend/internal/infrastructure/task"
	"github.com/eta/backend/internal/infrastructure/telemetry"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/eta/backend/internal/interfaces/http/handler"
	"github.com/eta/backend/internal/interfaces/http/middleware"
	"github.com/eta/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ETA Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.ExportLogs,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)

	taskMetrics, err := telemetry.NewTaskMetricsFromProvider(meterProvider)
	if err != nil {
		log.Fatal("Failed to initialize task metrics", zap.Error(err))
	}

	// Initialize database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.TraceDB,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	directory := persistence.NewGormTenantDirectory(db.DB)
	orders := persistence.NewGormOrderRepository(db.DB)
	users := persistence.NewGormUserRepository(db.DB)
	tenantScope := scope.NewScope(log, taskMetrics.ScopeHook())

	// Task queue
	broker, closeBroker, err := newBroker(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize task broker", zap.Error(err))
	}
	defer closeBroker()

	registry := task.NewRegistry()
	queue := task.NewQueue(broker, registry, log)

	mailer, err := mail.NewMailer(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	templates, err := notification.LoadTemplates()
	if err != nil {
		log.Fatal("Failed to load email templates", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(orders, users, mailer, templates, log)
	if err := notification.RegisterTasks(registry, dispatcher, notification.RetryConfig{
		OrderConfirmationMaxRetries: cfg.Tasks.OrderConfirmationMaxRetries,
		CustomerEmailMaxRetries:     cfg.Tasks.CustomerEmailMaxRetries,
		BackoffBase:                 cfg.Tasks.BackoffBase,
	}); err != nil {
		log.Fatal("Failed to register notification tasks", zap.Error(err))
	}

	executor := tenancyapp.NewExecutor(directory, tenantScope, log, tenancyapp.WithRunRecorder(taskMetrics))
	tenantTasks := tenancyapp.NewTasks(executor, queue, orders)
	if err := tenantTasks.Register(registry, tenancyapp.TasksConfig{
		ConnectionCheckInterval: cfg.Scheduler.ConnectionCheckInterval,
		OrderSummaryInterval:    cfg.Scheduler.OrderSummaryInterval,
	}); err != nil {
		log.Fatal("Failed to register tenant tasks", zap.Error(err))
	}

	pool := task.NewPool(task.PoolConfig{
		Workers:    cfg.Tasks.Workers,
		JobTimeout: cfg.Tasks.JobTimeout,
		ErrorPause: time.Second,
	}, broker, registry, queue, tenantScope, log,
		task.WithObserver(taskMetrics),
		task.WithTenantResolver(directory),
	)
	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start task workers", zap.Error(err))
	}

	trigger, err := scheduler.NewPeriodicTrigger(scheduler.PeriodicTriggerConfig{
		CheckInterval: cfg.Scheduler.CheckInterval,
	}, registry, queue, log)
	if err != nil {
		log.Fatal("Failed to create periodic trigger", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start periodic trigger", zap.Error(err))
		}
	} else {
		log.Info("Periodic trigger disabled")
	}

	engine := router.NewEngine(router.Config{
		Logger:  log,
		Version: version,
		Tenants: directory,
		Scope:   tenantScope,
		Queue:   queue,
		Tasks:   registry,
		Runner:  trigger,
		Checks:  map[string]handler.Pinger{"database": db},
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		TracerProvider: tracerProvider.Provider(),
		Meter:          meterProvider.Meter(telemetry.TracerName),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop periodic trigger", zap.Error(err))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop task workers", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newBroker builds the broker selected by cfg.Tasks.Broker and its close func
func newBroker(cfg *config.Config, log *zap.Logger) (task.Broker, func(), error) {
	switch cfg.Tasks.Broker {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		broker := task.NewRedisBroker(client, task.RedisBrokerConfig{Queue: cfg.Tasks.Queue})
		log.Info("Using redis task broker",
			zap.String("addr", cfg.Redis.Addr()),
			zap.String("queue", cfg.Tasks.Queue),
		)
		return broker, func() {
			_ = broker.Close()
			_ = client.Close()
		}, nil
	default:
		broker := task.NewMemoryBroker(1024)
		log.Info("Using in-memory task broker")
		return broker, func() { _ = broker.Close() }, nil
	}
}
