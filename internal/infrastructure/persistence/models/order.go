package models

import (
	"time"

	"github.com/eta/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is a placed order
type OrderModel struct {
	TenantScopedModel
	Number   string           `gorm:"type:varchar(128);not null;index"`
	Status   string           `gorm:"type:varchar(20);not null"`
	Currency string           `gorm:"type:varchar(3);not null"`
	UserID   *uuid.UUID       `gorm:"type:uuid;index"`
	User     *UserModel       `gorm:"foreignKey:UserID"`
	PlacedAt time.Time        `gorm:"not null;index"`
	Lines    []OrderLineModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model and its loaded associations to a domain order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		ID:       m.ID,
		TenantID: m.TenantID,
		Number:   m.Number,
		Status:   order.Status(m.Status),
		Currency: m.Currency,
		PlacedAt: m.PlacedAt,
		Lines:    make([]order.Line, len(m.Lines)),
	}
	if m.User != nil {
		o.Customer = &order.Customer{
			ID:        m.User.ID,
			Email:     m.User.Email,
			FirstName: m.User.FirstName,
			LastName:  m.User.LastName,
		}
	}
	for i, l := range m.Lines {
		o.Lines[i] = l.ToDomain()
	}
	return o
}

// OrderLineModel is a single line of an order
type OrderLineModel struct {
	TenantScopedModel
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(255);not null"`
	SKU       string          `gorm:"column:sku;type:varchar(128)"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the model to a domain order line
func (m *OrderLineModel) ToDomain() order.Line {
	return order.Line{
		ID:        m.ID,
		Title:     m.Title,
		SKU:       m.SKU,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}
