package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	scope "github.com/eta/backend/internal/infrastructure/tenancy"
	"github.com/eta/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// TenantIDHeader selects the tenant by ID
	TenantIDHeader = "X-Tenant-ID"
	// TenantSchemaHeader selects the tenant by schema name
	TenantSchemaHeader = "X-Tenant-Schema"
	// TenantKey is the gin context key holding the resolved tenancy.Tenant
	TenantKey = "tenant"
)

// TenantLookup resolves the tenant a request addresses
type TenantLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error)
	FindBySchema(ctx context.Context, schema string) (*tenancy.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*tenancy.Tenant, error)
}

// TenantConfig holds configuration for the tenant scope middleware
type TenantConfig struct {
	Lookup TenantLookup
	Scope  *scope.Scope
	Logger *zap.Logger
}

// TenantScope resolves the tenant of the request and runs the rest of the
// chain inside its scope. Resolution order: X-Tenant-ID header,
// X-Tenant-Schema header, request host matched against tenant domains.
func TenantScope(cfg TenantConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = logger.Component(log, "tenant_middleware")

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		tn, method, err := resolveTenant(ctx, cfg.Lookup, c)
		if err != nil {
			respondTenantError(c, log, method, err)
			return
		}

		scoped, guard, err := cfg.Scope.Enter(ctx, *tn)
		if err != nil {
			respondTenantError(c, log, method, err)
			return
		}
		defer guard.Exit()

		logger.FromContext(scoped).Debug("Tenant identified",
			zap.String("tenant_schema", tn.SchemaName),
			zap.String("method", method),
		)
		c.Set(TenantKey, *tn)
		c.Request = c.Request.WithContext(scoped)
		c.Next()
	}
}

var (
	errTenantRequired  = errors.New("tenant identification required")
	errInvalidTenantID = errors.New("invalid tenant ID")
)

func resolveTenant(ctx context.Context, lookup TenantLookup, c *gin.Context) (*tenancy.Tenant, string, error) {
	if raw := c.GetHeader(TenantIDHeader); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, "header", fmt.Errorf("%w: %v", errInvalidTenantID, err)
		}
		tn, err := lookup.FindByID(ctx, id)
		return tn, "header", err
	}
	if schema := c.GetHeader(TenantSchemaHeader); schema != "" {
		tn, err := lookup.FindBySchema(ctx, schema)
		return tn, "header", err
	}
	if host := hostname(c.Request.Host); host != "" {
		tn, err := lookup.FindByDomain(ctx, host)
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			return nil, "domain", errTenantRequired
		}
		return tn, "domain", err
	}
	return nil, "", errTenantRequired
}

// hostname strips the port from a Host header and lowercases it
func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func respondTenantError(c *gin.Context, log *zap.Logger, method string, err error) {
	status, code, message := http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Tenant directory is unavailable"
	switch {
	case errors.Is(err, errTenantRequired):
		status, code, message = http.StatusBadRequest, dto.ErrCodeTenantRequired, "Tenant identification required"
	case errors.Is(err, tenancy.ErrTenantNotFound):
		status, code, message = http.StatusNotFound, dto.ErrCodeTenantNotFound, "Tenant not found"
	case errors.Is(err, tenancy.ErrScopeAlreadyActive):
		status, code, message = http.StatusConflict, dto.ErrCodeConflict, "A tenant scope is already active"
	case errors.Is(err, errInvalidTenantID):
		status, code, message = http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid tenant ID format"
	}

	if status >= http.StatusInternalServerError {
		log.Error("Tenant resolution failed", zap.String("method", method), zap.Error(err))
	} else {
		log.Warn("Tenant resolution failed", zap.String("method", method), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetTenant returns the tenant resolved by TenantScope
func GetTenant(c *gin.Context) (tenancy.Tenant, bool) {
	v, ok := c.Get(TenantKey)
	if !ok {
		return tenancy.Tenant{}, false
	}
	tn, ok := v.(tenancy.Tenant)
	return tn, ok
}
