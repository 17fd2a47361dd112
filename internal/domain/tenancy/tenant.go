// Package tenancy holds the tenant model shared by the periodic runner,
// the tenant scope and the task workers.
package tenancy

import (
	"context"
	"time"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PublicSchemaName is the reserved partition shared by all tenants.
// It never takes part in per-tenant periodic work.
const PublicSchemaName = "public"

var (
	// ErrDirectoryUnavailable is returned when the tenant registry cannot be read.
	// It is systemic and aborts a periodic run.
	ErrDirectoryUnavailable = shared.NewDomainError("DIRECTORY_UNAVAILABLE", "Tenant directory is unavailable")

	// ErrScopeAlreadyActive is returned when a tenant scope is entered while
	// another one is active on the same call chain.
	ErrScopeAlreadyActive = shared.NewDomainError("SCOPE_ALREADY_ACTIVE", "A tenant scope is already active")

	// ErrTenantNotFound is returned when a tenant lookup has no match
	ErrTenantNotFound = shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
)

// Tenant is an isolated customer partition, identified by its schema name
type Tenant struct {
	ID         uuid.UUID
	SchemaName string
	Name       string
	PaidUntil  time.Time
	OnTrial    bool
	CreatedOn  time.Time
	Domains    []string
}

// IsPublic reports whether the tenant is the shared public partition
func (t Tenant) IsPublic() bool {
	return t.SchemaName == PublicSchemaName
}

// String renders the tenant the way it appears in logs
func (t Tenant) String() string {
	if t.Name == "" {
		return t.SchemaName
	}
	return t.Name + " - " + t.SchemaName
}

// Directory enumerates tenants from the tenant registry
type Directory interface {
	// ListActive returns every tenant except the public partition, in listing order.
	// Backend failures are reported as ErrDirectoryUnavailable.
	ListActive(ctx context.Context) ([]Tenant, error)
	// FindBySchema returns the tenant with the given schema name
	FindBySchema(ctx context.Context, schema string) (*Tenant, error)
	// FindByID returns the tenant with the given ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// ListAll returns every tenant including public, with domains loaded
	ListAll(ctx context.Context) ([]Tenant, error)
}

// ExcludePublic drops the public partition from a tenant list, keeping order
func ExcludePublic(tenants []Tenant) []Tenant {
	result := make([]Tenant, 0, len(tenants))
	for _, t := range tenants {
		if t.IsPublic() {
			continue
		}
		result = append(result, t)
	}
	return result
}
