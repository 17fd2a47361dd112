package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eta/backend/internal/domain/order"
	"github.com/eta/backend/internal/infrastructure/persistence/models"
	"github.com/eta/backend/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOrderRepository reads orders of the tenant bound to the context
type GormOrderRepository struct {
	db *tenant.TenantDB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tenant.NewTenantDBWithColumn(db, "orders.tenant_id")}
}

var _ order.Repository = (*GormOrderRepository)(nil)

// FindByNumber loads an order with its customer and lines
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	var m models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("orders.number = ?", number).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %s: %w", number, err)
	}
	return m.ToDomain(), nil
}

type summaryRow struct {
	OrderCount int64
	LineCount  int64
	Revenue    decimal.Decimal
}

// Summarize aggregates non-cancelled orders placed in [from, to)
func (r *GormOrderRepository) Summarize(ctx context.Context, from, to time.Time) (*order.Summary, error) {
	var row summaryRow
	err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("COUNT(DISTINCT orders.id) AS order_count, " +
			"COUNT(order_lines.id) AS line_count, " +
			"COALESCE(SUM(order_lines.quantity * order_lines.unit_price), 0) AS revenue").
		Joins("LEFT JOIN order_lines ON order_lines.order_id = orders.id").
		Where("orders.placed_at >= ? AND orders.placed_at < ?", from, to).
		Where("orders.status <> ?", string(order.StatusCancelled)).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("summarize orders: %w", err)
	}
	return &order.Summary{
		From:       from,
		To:         to,
		OrderCount: row.OrderCount,
		LineCount:  row.LineCount,
		Revenue:    row.Revenue,
	}, nil
}
