package accesscontrol

import (
	"context"

	"github.com/google/uuid"
)

// ClientOwnership is the slice of a client record the resolver needs to
// make a decision. Therapist IDs are uuid.Nil when unassigned.
type ClientOwnership struct {
	ID                   uuid.UUID
	OrganizationID       string
	PrimaryTherapistID   uuid.UUID
	SecondaryTherapistID uuid.UUID
}

// NoteOwnership is the decision-relevant slice of a clinical note.
type NoteOwnership struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	AuthorID       uuid.UUID
	OrganizationID string
}

// AppointmentOwnership is the decision-relevant slice of an appointment.
type AppointmentOwnership struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	ClinicianID    uuid.UUID
	OrganizationID string
}

// Directory is the persistence port the resolver reads staff and client
// relationships through. Injecting it keeps the resolver free of any
// global database handle and lets tests run against an in-memory fixture.
type Directory interface {
	// UserOrganization returns the organization the user belongs to, or
	// empty when the user is unknown.
	UserOrganization(ctx context.Context, userID uuid.UUID) (string, error)

	// AssignedClientIDs returns clients where the user is the primary or
	// secondary therapist.
	AssignedClientIDs(ctx context.Context, therapistID uuid.UUID) ([]uuid.UUID, error)

	// SuperviseeClientIDs returns clients whose primary therapist reports
	// to the given supervisor. Reach is one level only; supervision is not
	// transitive.
	SuperviseeClientIDs(ctx context.Context, supervisorID uuid.UUID) ([]uuid.UUID, error)

	// SupervisorID returns the supervisor of the given user, or uuid.Nil
	// when the user has none.
	SupervisorID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// ClientOwnership fetches the ownership slice of a client, or nil when
	// no such client exists.
	ClientOwnership(ctx context.Context, clientID uuid.UUID) (*ClientOwnership, error)
}
