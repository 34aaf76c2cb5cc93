package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
)

// Filters narrows a client listing. Zero fields are ignored.
type Filters struct {
	Status      ClientStatus
	TherapistID *uuid.UUID
	Search      string
}

// Repository is the persistence boundary for client records.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*Client, int, error)
}
