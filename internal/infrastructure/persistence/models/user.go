package models

import (
	"github.com/eta/backend/internal/domain/customer"
)

// UserModel is a customer account
type UserModel struct {
	TenantScopedModel
	Email     string `gorm:"type:varchar(254);not null;index"`
	FirstName string `gorm:"type:varchar(150)"`
	LastName  string `gorm:"type:varchar(150)"`
	IsActive  bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain user
func (m *UserModel) ToDomain() *customer.User {
	return &customer.User{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		IsActive:  m.IsActive,
	}
}
