package models

import (
	"time"

	"github.com/eta/backend/internal/domain/tenancy"
	"github.com/google/uuid"
)

// TenantModel is a row of the shared tenant registry
type TenantModel struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SchemaName string              `gorm:"type:varchar(63);not null;uniqueIndex"`
	Name       string              `gorm:"type:varchar(100);not null"`
	PaidUntil  time.Time           `gorm:"type:date;not null"`
	OnTrial    bool                `gorm:"not null;default:false"`
	CreatedOn  time.Time           `gorm:"not null;index"`
	Domains    []TenantDomainModel `gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the model to a domain tenant
func (m *TenantModel) ToDomain() tenancy.Tenant {
	t := tenancy.Tenant{
		ID:         m.ID,
		SchemaName: m.SchemaName,
		Name:       m.Name,
		PaidUntil:  m.PaidUntil,
		OnTrial:    m.OnTrial,
		CreatedOn:  m.CreatedOn,
	}
	if len(m.Domains) > 0 {
		t.Domains = make([]string, len(m.Domains))
		for i, d := range m.Domains {
			t.Domains[i] = d.Domain
		}
	}
	return t
}

// TenantModelFromDomain converts a domain tenant to its model
func TenantModelFromDomain(t tenancy.Tenant) *TenantModel {
	m := &TenantModel{
		ID:         t.ID,
		SchemaName: t.SchemaName,
		Name:       t.Name,
		PaidUntil:  t.PaidUntil,
		OnTrial:    t.OnTrial,
		CreatedOn:  t.CreatedOn,
	}
	for i, d := range t.Domains {
		m.Domains = append(m.Domains, TenantDomainModel{
			ID:        uuid.New(),
			TenantID:  t.ID,
			Domain:    d,
			IsPrimary: i == 0,
		})
	}
	return m
}

// TenantDomainModel maps a host name to a tenant
type TenantDomainModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Domain    string    `gorm:"type:varchar(253);not null;uniqueIndex"`
	IsPrimary bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TenantDomainModel) TableName() string {
	return "tenant_domains"
}
