package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
)

// Filters narrows an appointment listing. Nil or zero fields are
// ignored.
type Filters struct {
	ClinicianID *uuid.UUID
	ClientID    *uuid.UUID
	Status      Status
	Type        string
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Repository is the persistence boundary for appointments.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*Appointment, int, error)

	// ActiveForClinician returns the appointments still occupying the
	// clinician's calendar on the given date, optionally excluding one
	// appointment (used when moving an existing booking).
	ActiveForClinician(ctx context.Context, clinicianID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Appointment, error)

	// Series returns every occurrence sharing a recurrence series id,
	// ordered by date.
	Series(ctx context.Context, parentRecurrenceID string) ([]*Appointment, error)

	// InTx runs fn inside a single transaction. Repository calls made
	// with the context passed to fn join that transaction.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	// LockClinicianDay serializes writers touching one clinician's
	// calendar day for the remainder of the current transaction.
	LockClinicianDay(ctx context.Context, clinicianID uuid.UUID, date time.Time) error
}
