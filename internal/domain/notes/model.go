// Package notes implements clinical documentation: drafting, signing,
// supervisor co-signature and post-signature amendments.
package notes

import (
	"time"

	"github.com/google/uuid"
)

// NoteStatus is the lifecycle state of a clinical note.
type NoteStatus string

const (
	StatusDraft         NoteStatus = "DRAFT"
	StatusPendingCosign NoteStatus = "PENDING_COSIGN"
	StatusSigned        NoteStatus = "SIGNED"
)

// ClinicalNote is a clinician's record of a session. Once SIGNED the
// content is immutable; corrections happen through Amendment rows that
// leave the original intact.
type ClinicalNote struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID string     `json:"organizationId"`
	ClientID       uuid.UUID  `json:"clientId"`
	AuthorID       uuid.UUID  `json:"authorId"`
	Status         NoteStatus `json:"status"`
	Content        string     `json:"content"`
	SessionDate    time.Time  `json:"sessionDate"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	CosignedBy     *uuid.UUID `json:"cosignedBy,omitempty"`
	CosignedAt     *time.Time `json:"cosignedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Amendment is an append-only correction to a signed note.
type Amendment struct {
	ID        uuid.UUID `json:"id"`
	NoteID    uuid.UUID `json:"noteId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
