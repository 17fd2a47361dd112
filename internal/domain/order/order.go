package order

import (
	"context"
	"time"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned when no order matches the requested number
var ErrOrderNotFound = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPlaced    Status = "PLACED"
	StatusShipped   Status = "SHIPPED"
	StatusCancelled Status = "CANCELLED"
)

// Customer is the purchasing user as seen from an order
type Customer struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// FullName returns the display name of the customer
func (c Customer) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.Email
	}
}

// Line is a single purchased product on an order
type Line struct {
	ID        uuid.UUID
	Title     string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity times unit price
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is a placed basket, read by the confirmation dispatcher
type Order struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Number   string
	Status   Status
	Currency string
	Customer *Customer
	Lines    []Line
	PlacedAt time.Time
}

// Total sums the line totals
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Recipient returns the email address notifications for this order go to
func (o *Order) Recipient() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Email
}

// Summary aggregates the orders placed in a period
type Summary struct {
	From       time.Time
	To         time.Time
	OrderCount int64
	LineCount  int64
	Revenue    decimal.Decimal
}

// Repository reads orders of the tenant bound to the context
type Repository interface {
	// FindByNumber loads an order with its customer and lines.
	// Returns ErrOrderNotFound when no order has the number.
	FindByNumber(ctx context.Context, number string) (*Order, error)
	// Summarize aggregates orders placed in [from, to)
	Summarize(ctx context.Context, from, to time.Time) (*Summary, error)
}
