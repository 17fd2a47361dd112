package customer

import (
	"context"

	"github.com/eta/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user matches the requested ID
var ErrUserNotFound = shared.NewDomainError("USER_NOT_FOUND", "User not found")

// User is a storefront account that receives account emails
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	IsActive  bool
}

// Repository reads users of the tenant bound to the context
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
