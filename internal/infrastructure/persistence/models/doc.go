// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns; each model converts itself with ToDomain.
//
// Structure:
// - base.go: BaseModel and TenantScopedModel
// - tenant.go: tenant registry (tenants, tenant_domains), shared across tenants
// - user.go: customer accounts
// - order.go: placed orders and their lines
package models
