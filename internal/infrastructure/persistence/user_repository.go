package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/eta/backend/internal/domain/customer"
	"github.com/eta/backend/internal/infrastructure/persistence/models"
	"github.com/eta/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository reads customer accounts of the tenant bound to the context
type GormUserRepository struct {
	db *tenant.TenantDB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: tenant.NewTenantDB(db)}
}

var _ customer.Repository = (*GormUserRepository)(nil)

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*customer.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customer.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return m.ToDomain(), nil
}
