package notes

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
)

// Filters narrows a note listing. Zero fields are ignored.
type Filters struct {
	ClientID *uuid.UUID
	AuthorID *uuid.UUID
	Status   NoteStatus
}

// Repository is the persistence boundary for clinical notes.
type Repository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error)
	Update(ctx context.Context, n *ClinicalNote) error
	List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*ClinicalNote, int, error)

	CreateAmendment(ctx context.Context, a *Amendment) error
	Amendments(ctx context.Context, noteID uuid.UUID) ([]*Amendment, error)
}
