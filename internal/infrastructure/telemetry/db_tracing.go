package telemetry

import (
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// WithVariables includes bound query values in spans; keep off in production
	WithVariables bool
	// TracerProvider defaults to the global provider
	TracerProvider trace.TracerProvider
}

// RegisterDBTracing adds otelgorm spans to db and tags every statement span
// with the schema of the active tenant scope.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, log *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// runs between otelgorm's span start and the statement itself
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"eta:tenant:create", cb.Create().Before("gorm:create").After("otel:before:create").Register},
		{"eta:tenant:select", cb.Query().Before("gorm:query").After("otel:before:select").Register},
		{"eta:tenant:update", cb.Update().Before("gorm:update").After("otel:before:update").Register},
		{"eta:tenant:delete", cb.Delete().Before("gorm:delete").After("otel:before:delete").Register},
		{"eta:tenant:row", cb.Row().Before("gorm:row").After("otel:before:row").Register},
		{"eta:tenant:raw", cb.Raw().Before("gorm:raw").After("otel:before:raw").Register},
	}
	for _, h := range hooks {
		if err := h.register(h.name, tagTenant); err != nil {
			return err
		}
	}

	log.Info("Database tracing enabled", zap.Bool("with_variables", cfg.WithVariables))
	return nil
}

func tagTenant(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if t, ok := scope.Current(ctx); ok {
		span.SetAttributes(attribute.String(SpanAttrTenantSchema, t.SchemaName))
	}
}
