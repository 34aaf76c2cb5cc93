package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for charges.
type Repository interface {
	Create(ctx context.Context, c *Charge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Charge, error)
	Update(ctx context.Context, c *Charge) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Charge, int, error)
}
