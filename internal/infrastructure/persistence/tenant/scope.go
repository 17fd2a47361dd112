// Package tenant applies tenant filtering to GORM queries.
//
// The tenant is read from the context, where infrastructure/tenancy.Scope
// puts it while a tenant scope is active:
//
//	db := tenant.NewTenantDB(gormDB)
//	db.WithContext(ctx).Find(&orders) // WHERE tenant_id = '<active tenant>'
package tenant

import (
	"context"
	"errors"

	"github.com/eta/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a query runs outside any tenant scope
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when the context carries a malformed tenant ID
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// Scope returns a GORM scope filtering column by tenantID
func Scope(column string, tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", tenantID)
	}
}

// TenantDB wraps GORM DB with automatic tenant scoping
type TenantDB struct {
	db     *gorm.DB
	column string
}

// NewTenantDB creates a TenantDB filtering on the tenant_id column
func NewTenantDB(db *gorm.DB) *TenantDB {
	return NewTenantDBWithColumn(db, "tenant_id")
}

// NewTenantDBWithColumn creates a TenantDB filtering on a custom column
func NewTenantDBWithColumn(db *gorm.DB, column string) *TenantDB {
	if column == "" {
		column = "tenant_id"
	}
	return &TenantDB{db: db, column: column}
}

// TenantID extracts and validates the active tenant ID from ctx
func TenantID(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}

// WithContext returns a GORM DB scoped to the tenant found in ctx.
// Without a valid tenant, the returned DB fails every operation.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	db := t.db.WithContext(ctx)
	id, err := TenantID(ctx)
	if err != nil {
		_ = db.AddError(err)
		return db
	}
	return db.Scopes(Scope(t.column, id))
}

// Transaction runs fn in a transaction scoped to the tenant found in ctx
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	id, err := TenantID(ctx)
	if err != nil {
		return err
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx.Scopes(Scope(t.column, id)))
	})
}

// Unscoped returns the underlying DB without tenant filtering.
// Only the shared tenant registry should be read this way.
func (t *TenantDB) Unscoped() *gorm.DB {
	return t.db
}
