// Package tenancy binds a tenant to a context call chain.
//
// A scope is entered with Scope.Enter and released with Guard.Exit, or run as
// a block with Scope.Run. While active, the scoped context carries the tenant
// ID read by persistence/tenant.TenantDB, the schema name, and a logger
// enriched with both. Scopes do not nest.
//
// Usage:
//
//	err := scope.Run(ctx, t, func(ctx context.Context) error {
//		return repo.DoWork(ctx) // queries are filtered to t
//	})
package tenancy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type scopeKey struct{}

// Hook observes scope activation and release
type Hook struct {
	Enter func(ctx context.Context, t tenancy.Tenant)
	Exit  func(ctx context.Context, t tenancy.Tenant)
}

// Scope activates tenants on context call chains
type Scope struct {
	logger *zap.Logger
	hooks  []Hook
}

// NewScope creates a Scope. Hooks run in order on enter and in reverse on exit.
func NewScope(log *zap.Logger, hooks ...Hook) *Scope {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scope{
		logger: logger.Component(log, "tenant_scope"),
		hooks:  hooks,
	}
}

// Guard releases an active scope
type Guard struct {
	tenant tenancy.Tenant
	ctx    context.Context
	hooks  []Hook
	once   sync.Once
	exited atomic.Bool
}

// Tenant returns the tenant bound by this guard
func (g *Guard) Tenant() tenancy.Tenant {
	return g.tenant
}

// Active reports whether the scope has not been exited yet
func (g *Guard) Active() bool {
	return !g.exited.Load()
}

// Exit releases the scope. Only the first call has an effect.
func (g *Guard) Exit() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		g.exited.Store(true)
		for i := len(g.hooks) - 1; i >= 0; i-- {
			if g.hooks[i].Exit != nil {
				g.hooks[i].Exit(g.ctx, g.tenant)
			}
		}
	})
}

// Enter binds t to a new context derived from ctx.
// It fails with ErrScopeAlreadyActive when ctx already carries an active scope;
// ctx and its scope are left untouched in that case.
func (s *Scope) Enter(ctx context.Context, t tenancy.Tenant) (context.Context, *Guard, error) {
	if t.SchemaName == "" {
		return ctx, nil, fmt.Errorf("enter tenant scope: empty schema name: %w", shared.ErrInvalidInput)
	}
	if outer, ok := ctx.Value(scopeKey{}).(*Guard); ok && outer.Active() {
		s.logger.Warn("Nested tenant scope rejected",
			zap.String("tenant_schema", t.SchemaName),
			zap.String("active_schema", outer.tenant.SchemaName),
		)
		return ctx, nil, fmt.Errorf("enter tenant scope %q while %q is active: %w",
			t.SchemaName, outer.tenant.SchemaName, tenancy.ErrScopeAlreadyActive)
	}

	log := logger.FromContext(ctx)
	scoped, log := logger.WithTenantID(ctx, log, t.ID.String())
	scoped, _ = logger.WithTenantSchema(scoped, log, t.SchemaName)

	guard := &Guard{tenant: t, hooks: s.hooks}
	scoped = context.WithValue(scoped, scopeKey{}, guard)
	guard.ctx = scoped

	for _, h := range s.hooks {
		if h.Enter != nil {
			h.Enter(scoped, t)
		}
	}
	return scoped, guard, nil
}

// Run enters t, calls body with the scoped context, and always exits.
// A panic in body is re-raised after the scope is released.
func (s *Scope) Run(ctx context.Context, t tenancy.Tenant, body func(ctx context.Context) error) error {
	scoped, guard, err := s.Enter(ctx, t)
	if err != nil {
		return err
	}
	defer guard.Exit()
	return body(scoped)
}

// Current returns the tenant of the active scope on ctx, if any
func Current(ctx context.Context) (tenancy.Tenant, bool) {
	g, ok := ctx.Value(scopeKey{}).(*Guard)
	if !ok || !g.Active() {
		return tenancy.Tenant{}, false
	}
	return g.tenant, true
}
