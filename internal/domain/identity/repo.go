package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for staff users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, organizationID string, limit, offset int) ([]*User, int, error)
	Supervisees(ctx context.Context, supervisorID uuid.UUID) ([]*User, error)
}
