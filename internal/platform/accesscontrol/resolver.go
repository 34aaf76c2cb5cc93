package accesscontrol

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// DecisionLogger persists access decisions for the audit trail. The audit
// store satisfies this; tests inject a stub.
type DecisionLogger interface {
	LogDecision(ctx context.Context, userID uuid.UUID, action, entityType, entityID string, details any)
}

// Resolver computes row-level scopes and adjudicates single-record access.
// Every decision, grant or denial, is written to the audit trail.
type Resolver struct {
	dir   Directory
	audit DecisionLogger
	log   zerolog.Logger
}

func NewResolver(dir Directory, audit DecisionLogger, log zerolog.Logger) *Resolver {
	return &Resolver{dir: dir, audit: audit, log: log}
}

// organizationOf prefers the organization claim carried by the token and
// falls back to the directory for tokens minted before the claim existed.
func (r *Resolver) organizationOf(ctx context.Context, caller Caller) (string, error) {
	if caller.OrganizationID != "" {
		return caller.OrganizationID, nil
	}
	return r.dir.UserOrganization(ctx, caller.ID)
}

// ResolveAllowedClientIDs computes the bounded set of client IDs visible to
// the caller. unrestricted is true for callers whose visibility is not a
// bounded set (admin tier everywhere, billing tier when the billing view is
// allowed). All other callers without clinical standing get an empty set.
func (r *Resolver) ResolveAllowedClientIDs(ctx context.Context, caller Caller, allowBillingView bool) (ids []uuid.UUID, unrestricted bool, err error) {
	if caller.ID == uuid.Nil {
		return nil, false, apperror.Unauthorized("authentication required")
	}

	if caller.IsAdministrator() {
		return nil, true, nil
	}
	if allowBillingView && caller.IsBillingStaff() {
		return nil, true, nil
	}

	if caller.IsClinicalStaff() {
		ids, err = r.dir.AssignedClientIDs(ctx, caller.ID)
		if err != nil {
			return nil, false, apperror.Internal(err)
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}
		if caller.IsSupervisor() {
			more, err := r.dir.SuperviseeClientIDs(ctx, caller.ID)
			if err != nil {
				return nil, false, apperror.Internal(err)
			}
			ids = mergeIDs(ids, more)
		}
		return ids, false, nil
	}

	// Deny by default: no clinical standing means no client visibility.
	return []uuid.UUID{}, false, nil
}

// ClientScope returns the row-level restriction for client list queries.
func (r *Resolver) ClientScope(ctx context.Context, caller Caller, allowBillingView bool) (Scope, error) {
	if caller.ID == uuid.Nil {
		return Scope{}, apperror.Unauthorized("authentication required")
	}

	if caller.IsSuperAdmin() {
		return Scope{Unrestricted: true}, nil
	}

	if caller.IsAdministrator() || (allowBillingView && caller.IsBillingStaff()) || caller.IsClinicalDirector() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return Scope{}, apperror.Internal(err)
		}
		if org == "" {
			return Scope{Unrestricted: true}, nil
		}
		return Scope{OrganizationID: org}, nil
	}

	if caller.IsClinicalStaff() {
		ids, _, err := r.ResolveAllowedClientIDs(ctx, caller, false)
		if err != nil {
			return Scope{}, err
		}
		return Scope{ClientIDs: ids}, nil
	}

	return Scope{}, apperror.Forbidden("client access denied")
}

// AppointmentScope returns the row-level restriction for appointment list
// queries. Scheduling roles, clinical staff included, see the whole
// organization calendar; the ownership fallback only applies to clinical
// callers whose organization is unknown.
func (r *Resolver) AppointmentScope(ctx context.Context, caller Caller, allowBillingView bool) (Scope, error) {
	if caller.ID == uuid.Nil {
		return Scope{}, apperror.Unauthorized("authentication required")
	}

	if caller.IsSuperAdmin() {
		return Scope{Unrestricted: true}, nil
	}

	if caller.IsAdministrator() || (allowBillingView && caller.IsBillingStaff()) || caller.HasSchedulingAccess() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return Scope{}, apperror.Internal(err)
		}
		if org != "" {
			return Scope{OrganizationID: org}, nil
		}
	}

	if caller.IsClinicalStaff() {
		ids, _, err := r.ResolveAllowedClientIDs(ctx, caller, false)
		if err != nil {
			return Scope{}, err
		}
		return Scope{OwnerID: caller.ID, ClientIDs: ids}, nil
	}

	return Scope{}, apperror.Forbidden("appointment access denied")
}

// ClinicalNoteScope returns the row-level restriction for note list queries.
// Billing staff are shut out of clinical notes entirely; they have no
// legitimate need for clinical content.
func (r *Resolver) ClinicalNoteScope(ctx context.Context, caller Caller) (Scope, error) {
	if caller.ID == uuid.Nil {
		return Scope{}, apperror.Unauthorized("authentication required")
	}

	if caller.IsBillingStaff() && !caller.IsAdministrator() {
		return Scope{}, apperror.Forbidden("clinical note access denied")
	}

	if caller.IsSuperAdmin() {
		return Scope{Unrestricted: true}, nil
	}

	if caller.IsAdministrator() || caller.IsClinicalDirector() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return Scope{}, apperror.Internal(err)
		}
		if org == "" {
			return Scope{Unrestricted: true}, nil
		}
		return Scope{OrganizationID: org}, nil
	}

	if caller.IsClinicalStaff() {
		ids, _, err := r.ResolveAllowedClientIDs(ctx, caller, false)
		if err != nil {
			return Scope{}, err
		}
		return Scope{OwnerID: caller.ID, ClientIDs: ids}, nil
	}

	return Scope{}, apperror.Forbidden("clinical note access denied")
}

// AssertCanAccessClient adjudicates access to one client record. record may
// be pre-fetched by the caller to save a lookup; when nil it is loaded
// through the directory. Denials never reveal whether the record exists.
func (r *Resolver) AssertCanAccessClient(ctx context.Context, caller Caller, clientID uuid.UUID, record *ClientOwnership, allowBillingView bool) error {
	if caller.ID == uuid.Nil {
		return apperror.Unauthorized("authentication required")
	}

	if caller.IsSuperAdmin() {
		r.logDecision(ctx, caller, "client", clientID.String(), "SUPER_ADMIN", true)
		return nil
	}

	client := record
	if client == nil {
		var err error
		client, err = r.dir.ClientOwnership(ctx, clientID)
		if err != nil {
			return apperror.Internal(err)
		}
	}
	if client == nil {
		r.logDecision(ctx, caller, "client", clientID.String(), "CLIENT_NOT_FOUND", false)
		return apperror.Forbidden("client access denied")
	}

	if caller.IsAdministrator() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return apperror.Internal(err)
		}
		if org != "" && client.OrganizationID == org {
			r.logDecision(ctx, caller, "client", clientID.String(), "ADMINISTRATOR", true)
			return nil
		}
		r.logDecision(ctx, caller, "client", clientID.String(), "ADMIN_WRONG_ORG", false)
		return apperror.Forbidden("client access denied")
	}

	if allowBillingView && caller.IsBillingStaff() {
		r.logDecision(ctx, caller, "client", clientID.String(), "BILLING_STAFF", true)
		return nil
	}

	if caller.IsClinicalStaff() {
		if client.PrimaryTherapistID == caller.ID || client.SecondaryTherapistID == caller.ID {
			r.logDecision(ctx, caller, "client", clientID.String(), "ASSIGNED_CLINICIAN", true)
			return nil
		}

		if caller.IsSupervisor() && client.PrimaryTherapistID != uuid.Nil {
			supervisor, err := r.dir.SupervisorID(ctx, client.PrimaryTherapistID)
			if err != nil {
				return apperror.Internal(err)
			}
			if supervisor == caller.ID {
				r.logDecision(ctx, caller, "client", clientID.String(), "SUPERVISOR_SUPERVISEE", true)
				return nil
			}
		}

		if caller.IsClinicalDirector() {
			org, err := r.organizationOf(ctx, caller)
			if err != nil {
				return apperror.Internal(err)
			}
			if org != "" && client.OrganizationID == org {
				r.logDecision(ctx, caller, "client", clientID.String(), "CLINICAL_DIRECTOR", true)
				return nil
			}
		}
	}

	r.logDecision(ctx, caller, "client", clientID.String(), "DENIED", false)
	return apperror.Forbidden("client access denied")
}

// AssertCanAccessClinicalNote adjudicates access to one clinical note. The
// note's ownership slice must be supplied by the caller; services load the
// note before checking so pass nil only when the load found nothing.
func (r *Resolver) AssertCanAccessClinicalNote(ctx context.Context, caller Caller, noteID uuid.UUID, note *NoteOwnership) error {
	if caller.ID == uuid.Nil {
		return apperror.Unauthorized("authentication required")
	}

	if caller.IsSuperAdmin() {
		r.logDecision(ctx, caller, "clinical_note", noteID.String(), "SUPER_ADMIN", true)
		return nil
	}

	if caller.IsBillingStaff() && !caller.IsAdministrator() {
		r.logDecision(ctx, caller, "clinical_note", noteID.String(), "BILLING_STAFF_DENIED", false)
		return apperror.Forbidden("clinical note access denied")
	}

	if note == nil {
		r.logDecision(ctx, caller, "clinical_note", noteID.String(), "NOTE_NOT_FOUND", false)
		return apperror.Forbidden("clinical note access denied")
	}

	if caller.IsAdministrator() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return apperror.Internal(err)
		}
		if org != "" && note.OrganizationID == org {
			r.logDecision(ctx, caller, "clinical_note", noteID.String(), "ADMINISTRATOR", true)
			return nil
		}
		r.logDecision(ctx, caller, "clinical_note", noteID.String(), "ADMIN_WRONG_ORG", false)
		return apperror.Forbidden("clinical note access denied")
	}

	// The author always has access to their own note.
	if note.AuthorID == caller.ID {
		r.logDecision(ctx, caller, "clinical_note", noteID.String(), "NOTE_AUTHOR", true)
		return nil
	}

	if caller.IsClinicalStaff() {
		assigned, err := r.isAssignedToClient(ctx, caller, note.ClientID)
		if err != nil {
			return err
		}
		if assigned {
			r.logDecision(ctx, caller, "clinical_note", noteID.String(), "CLIENT_ASSIGNED", true)
			return nil
		}

		if caller.IsClinicalDirector() {
			org, err := r.organizationOf(ctx, caller)
			if err != nil {
				return apperror.Internal(err)
			}
			if org != "" && note.OrganizationID == org {
				r.logDecision(ctx, caller, "clinical_note", noteID.String(), "CLINICAL_DIRECTOR", true)
				return nil
			}
		}
	}

	r.logDecision(ctx, caller, "clinical_note", noteID.String(), "DENIED", false)
	return apperror.Forbidden("clinical note access denied")
}

// AssertCanAccessAppointment adjudicates access to one appointment.
func (r *Resolver) AssertCanAccessAppointment(ctx context.Context, caller Caller, appointmentID uuid.UUID, appt *AppointmentOwnership) error {
	if caller.ID == uuid.Nil {
		return apperror.Unauthorized("authentication required")
	}

	if caller.IsSuperAdmin() {
		r.logDecision(ctx, caller, "appointment", appointmentID.String(), "SUPER_ADMIN", true)
		return nil
	}

	if appt == nil {
		r.logDecision(ctx, caller, "appointment", appointmentID.String(), "APPOINTMENT_NOT_FOUND", false)
		return apperror.Forbidden("appointment access denied")
	}

	if caller.IsAdministrator() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return apperror.Internal(err)
		}
		if org != "" && appt.OrganizationID == org {
			r.logDecision(ctx, caller, "appointment", appointmentID.String(), "ADMINISTRATOR", true)
			return nil
		}
		r.logDecision(ctx, caller, "appointment", appointmentID.String(), "ADMIN_WRONG_ORG", false)
		return apperror.Forbidden("appointment access denied")
	}

	// The clinician on the appointment always has access.
	if appt.ClinicianID == caller.ID {
		r.logDecision(ctx, caller, "appointment", appointmentID.String(), "ASSIGNED_CLINICIAN", true)
		return nil
	}

	if caller.HasSchedulingAccess() || caller.IsBillingStaff() {
		org, err := r.organizationOf(ctx, caller)
		if err != nil {
			return apperror.Internal(err)
		}
		if org != "" && appt.OrganizationID == org {
			reason := "SCHEDULING_ACCESS"
			if !caller.HasSchedulingAccess() {
				reason = "BILLING_STAFF"
			}
			r.logDecision(ctx, caller, "appointment", appointmentID.String(), reason, true)
			return nil
		}
	}

	if caller.IsClinicalStaff() {
		assigned, err := r.isAssignedToClient(ctx, caller, appt.ClientID)
		if err != nil {
			return err
		}
		if assigned {
			r.logDecision(ctx, caller, "appointment", appointmentID.String(), "CLIENT_ASSIGNED", true)
			return nil
		}
	}

	r.logDecision(ctx, caller, "appointment", appointmentID.String(), "DENIED", false)
	return apperror.Forbidden("appointment access denied")
}

// AssertCanAccessBillingData adjudicates access to billing records. Pass a
// client ID to let assigned clinicians through for their own caseload;
// supervisory reach does not extend to billing.
func (r *Resolver) AssertCanAccessBillingData(ctx context.Context, caller Caller, clientID *uuid.UUID) error {
	if caller.ID == uuid.Nil {
		return apperror.Unauthorized("authentication required")
	}

	target := "all"
	if clientID != nil {
		target = clientID.String()
	}

	if caller.IsSuperAdmin() {
		r.logDecision(ctx, caller, "billing", target, "SUPER_ADMIN", true)
		return nil
	}

	if caller.IsAdministrator() || caller.IsBillingStaff() {
		r.logDecision(ctx, caller, "billing", target, "BILLING_ACCESS", true)
		return nil
	}

	if caller.IsClinicalStaff() && clientID != nil {
		client, err := r.dir.ClientOwnership(ctx, *clientID)
		if err != nil {
			return apperror.Internal(err)
		}
		if client != nil && (client.PrimaryTherapistID == caller.ID || client.SecondaryTherapistID == caller.ID) {
			r.logDecision(ctx, caller, "billing", target, "ASSIGNED_CLINICIAN", true)
			return nil
		}
	}

	r.logDecision(ctx, caller, "billing", target, "DENIED", false)
	return apperror.Forbidden("billing access denied")
}

// isAssignedToClient reports whether the caller is the client's primary or
// secondary therapist, or supervises the primary therapist.
func (r *Resolver) isAssignedToClient(ctx context.Context, caller Caller, clientID uuid.UUID) (bool, error) {
	client, err := r.dir.ClientOwnership(ctx, clientID)
	if err != nil {
		return false, apperror.Internal(err)
	}
	if client == nil {
		return false, nil
	}
	if client.PrimaryTherapistID == caller.ID || client.SecondaryTherapistID == caller.ID {
		return true, nil
	}
	if caller.IsSupervisor() && client.PrimaryTherapistID != uuid.Nil {
		supervisor, err := r.dir.SupervisorID(ctx, client.PrimaryTherapistID)
		if err != nil {
			return false, apperror.Internal(err)
		}
		if supervisor == caller.ID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) logDecision(ctx context.Context, caller Caller, entityType, entityID, reason string, granted bool) {
	evt := r.log.Info()
	action := "RLS_GRANTED"
	if !granted {
		evt = r.log.Warn()
		action = "RLS_DENIED"
	}
	evt.
		Str("user_id", caller.ID.String()).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("reason", reason).
		Bool("granted", granted).
		Msg("access decision")

	if r.audit != nil {
		r.audit.LogDecision(ctx, caller.ID, action, entityType, entityID, map[string]any{
			"reason":  reason,
			"granted": granted,
		})
	}
}

func mergeIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
