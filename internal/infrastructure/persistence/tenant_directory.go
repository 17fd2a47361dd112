package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/eta/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// listingOrder is the stable order tenants are iterated in
const listingOrder = "created_on ASC, schema_name ASC"

// GormTenantDirectory reads the shared tenant registry.
// The registry is not tenant-scoped, so it queries the raw DB.
type GormTenantDirectory struct {
	db *gorm.DB
}

// NewGormTenantDirectory creates a new GormTenantDirectory
func NewGormTenantDirectory(db *gorm.DB) *GormTenantDirectory {
	return &GormTenantDirectory{db: db}
}

var _ tenancy.Directory = (*GormTenantDirectory)(nil)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, tenancy.ErrDirectoryUnavailable, err)
}

// ListActive returns all tenants except the public partition
func (r *GormTenantDirectory) ListActive(ctx context.Context) ([]tenancy.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("schema_name <> ?", tenancy.PublicSchemaName).
		Order(listingOrder).
		Find(&rows).Error; err != nil {
		return nil, unavailable("list active tenants", err)
	}
	return toTenants(rows), nil
}

// ListAll returns every tenant, including public, with their domains
func (r *GormTenantDirectory) ListAll(ctx context.Context) ([]tenancy.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Preload("Domains", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, domain ASC")
		}).
		Order(listingOrder).
		Find(&rows).Error; err != nil {
		return nil, unavailable("list tenants", err)
	}
	return toTenants(rows), nil
}

// FindBySchema finds a tenant by its schema name
func (r *GormTenantDirectory) FindBySchema(ctx context.Context, schema string) (*tenancy.Tenant, error) {
	return r.findOne(ctx, "schema_name = ?", schema)
}

// FindByID finds a tenant by its ID
func (r *GormTenantDirectory) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByDomain finds the tenant owning a host name
func (r *GormTenantDirectory) FindByDomain(ctx context.Context, domain string) (*tenancy.Tenant, error) {
	var d models.TenantDomainModel
	if err := r.db.WithContext(ctx).Where("domain = ?", strings.ToLower(domain)).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenancy.ErrTenantNotFound
		}
		return nil, unavailable("find tenant domain", err)
	}
	return r.findOne(ctx, "id = ?", d.TenantID)
}

func (r *GormTenantDirectory) findOne(ctx context.Context, query string, arg any) (*tenancy.Tenant, error) {
	var row models.TenantModel
	if err := r.db.WithContext(ctx).Preload("Domains").Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenancy.ErrTenantNotFound
		}
		return nil, unavailable("find tenant", err)
	}
	t := row.ToDomain()
	return &t, nil
}

// Save inserts or updates a tenant and its domains
func (r *GormTenantDirectory) Save(ctx context.Context, t tenancy.Tenant) error {
	m := models.TenantModelFromDomain(t)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", t.ID).Delete(&models.TenantDomainModel{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Domains").Save(m).Error; err != nil {
			return err
		}
		if len(m.Domains) == 0 {
			return nil
		}
		return tx.Create(&m.Domains).Error
	})
}

func toTenants(rows []models.TenantModel) []tenancy.Tenant {
	tenants := make([]tenancy.Tenant, len(rows))
	for i := range rows {
		tenants[i] = rows[i].ToDomain()
	}
	return tenants
}
