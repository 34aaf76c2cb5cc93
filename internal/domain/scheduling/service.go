package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// maxDurationMinutes caps a single session at eight hours.
const maxDurationMinutes = 480

// Service implements appointment booking on top of the repository and
// the access scope resolver.
type Service struct {
	repo   Repository
	access *accesscontrol.Resolver
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, access *accesscontrol.Resolver, log zerolog.Logger) *Service {
	return &Service{repo: repo, access: access, log: log, now: time.Now}
}

// CreateInput carries the caller-supplied fields of a new appointment.
type CreateInput struct {
	ClientID        uuid.UUID
	ClinicianID     uuid.UUID
	IsGroup         bool
	GroupClientIDs  []uuid.UUID
	Date            time.Time
	StartTime       string
	EndTime         string
	Type            string
	ServiceLocation string
	Notes           string
}

// UpdateInput carries the mutable fields of an appointment. Nil fields
// are left unchanged.
type UpdateInput struct {
	Date            *time.Time
	StartTime       *string
	EndTime         *string
	Type            *string
	ServiceLocation *string
	Notes           *string
}

// SeriesUpdateInput applies a change to every future occurrence of a
// recurring series.
type SeriesUpdateInput struct {
	StartTime       *string
	EndTime         *string
	Type            *string
	ServiceLocation *string
	Notes           *string
}

// SeriesResult reports the outcome of creating a recurring series.
type SeriesResult struct {
	ParentRecurrenceID string         `json:"parentRecurrenceId"`
	Created            int            `json:"created"`
	Appointments       []*Appointment `json:"appointments"`
}

// normalizeSlot validates and canonicalizes a start/end pair, returning
// the normalized times and the session duration in minutes.
func normalizeSlot(start, end string) (string, string, int, error) {
	s, err := NormalizeTime(start)
	if err != nil {
		return "", "", 0, err
	}
	e, err := NormalizeTime(end)
	if err != nil {
		return "", "", 0, err
	}
	dur, err := DurationMinutes(s, e)
	if err != nil {
		return "", "", 0, err
	}
	if dur > maxDurationMinutes {
		return "", "", 0, apperror.BadRequest("appointment duration may not exceed %d minutes", maxDurationMinutes)
	}
	return s, e, dur, nil
}

// CheckConflicts returns the occupying appointments on the clinician's
// calendar that overlap the requested slot. excludeID omits one
// appointment, used when moving an existing booking.
func (s *Service) CheckConflicts(ctx context.Context, clinicianID uuid.UUID, date time.Time, start, end string, excludeID *uuid.UUID) ([]ConflictInfo, error) {
	start, end, _, err := normalizeSlot(start, end)
	if err != nil {
		return nil, err
	}
	startMin, _ := TimeToMinutes(start)
	endMin, _ := TimeToMinutes(end)

	existing, err := s.repo.ActiveForClinician(ctx, clinicianID, dateOnly(date), excludeID)
	if err != nil {
		return nil, err
	}
	return FilterConflicts(startMin, endMin, existing), nil
}

// ValidateTimeSlot is a dry-run availability check.
func (s *Service) ValidateTimeSlot(ctx context.Context, clinicianID uuid.UUID, date time.Time, start, end string, excludeID *uuid.UUID) (*TimeSlotValidation, error) {
	conflicts, err := s.CheckConflicts(ctx, clinicianID, date, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return &TimeSlotValidation{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Create books a new appointment. The slot is checked against the
// clinician's calendar and re-checked inside the insert transaction
// under an advisory lock, so two racing requests cannot both land on
// the same slot.
func (s *Service) Create(ctx context.Context, caller accesscontrol.Caller, in CreateInput) (*Appointment, error) {
	start, end, dur, err := normalizeSlot(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	clients, err := s.participantIDs(in)
	if err != nil {
		return nil, err
	}
	for _, clientID := range clients {
		if err := s.access.AssertCanAccessClient(ctx, caller, clientID, nil, false); err != nil {
			return nil, err
		}
	}

	a := &Appointment{
		ID:              uuid.New(),
		OrganizationID:  caller.OrganizationID,
		ClientID:        in.ClientID,
		ClinicianID:     in.ClinicianID,
		IsGroup:         in.IsGroup,
		GroupClientIDs:  in.GroupClientIDs,
		Date:            dateOnly(in.Date),
		StartTime:       start,
		EndTime:         end,
		Duration:        dur,
		Type:            in.Type,
		ServiceLocation: in.ServiceLocation,
		Status:          StatusScheduled,
		Notes:           in.Notes,
		CreatedBy:       caller.ID,
	}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockClinicianDay(ctx, a.ClinicianID, a.Date); err != nil {
			return err
		}
		conflicts, err := s.CheckConflicts(ctx, a.ClinicianID, a.Date, a.StartTime, a.EndTime, nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperror.Conflict("requested slot conflicts with an existing appointment", conflicts)
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("clinician_id", a.ClinicianID.String()).
		Str("date", a.Date.Format("2006-01-02")).
		Msg("appointment created")
	return a, nil
}

// participantIDs returns the distinct clients attached to the booking.
// A group session needs at least two.
func (s *Service) participantIDs(in CreateInput) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, id := range append([]uuid.UUID{in.ClientID}, in.GroupClientIDs...) {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, apperror.BadRequest("appointment requires a client")
	}
	if in.IsGroup && len(out) < 2 {
		return nil, apperror.BadRequest("group appointments require at least 2 clients")
	}
	return out, nil
}

// Get returns one appointment after an access check.
func (s *Service) Get(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.AssertCanAccessAppointment(ctx, caller, id, ownershipOf(a)); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns the appointments visible to the caller, narrowed by the
// caller's resolved calendar scope before any filter applies.
func (s *Service) List(ctx context.Context, caller accesscontrol.Caller, f Filters, limit, offset int) ([]*Appointment, int, error) {
	scope, err := s.access.AppointmentScope(ctx, caller, true)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f, scope, limit, offset)
}

// Update edits an appointment in place. Moving it to a new slot
// re-runs conflict detection with the appointment itself excluded.
func (s *Service) Update(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	moved := false
	if in.Date != nil {
		a.Date = dateOnly(*in.Date)
		moved = true
	}
	if in.StartTime != nil {
		a.StartTime = *in.StartTime
		moved = true
	}
	if in.EndTime != nil {
		a.EndTime = *in.EndTime
		moved = true
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.ServiceLocation != nil {
		a.ServiceLocation = *in.ServiceLocation
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}

	if moved {
		a.StartTime, a.EndTime, a.Duration, err = normalizeSlot(a.StartTime, a.EndTime)
		if err != nil {
			return nil, err
		}
		err = s.repo.InTx(ctx, func(ctx context.Context) error {
			if err := s.repo.LockClinicianDay(ctx, a.ClinicianID, a.Date); err != nil {
				return err
			}
			conflicts, err := s.CheckConflicts(ctx, a.ClinicianID, a.Date, a.StartTime, a.EndTime, &a.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return apperror.Conflict("requested slot conflicts with an existing appointment", conflicts)
			}
			return s.repo.Update(ctx, a)
		})
	} else {
		err = s.repo.Update(ctx, a)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reschedule moves an appointment to a new slot and marks it
// RESCHEDULED. The new slot is conflict-checked with the appointment
// itself excluded.
func (s *Service) Reschedule(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, date time.Time, start, end string) (*Appointment, error) {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(StatusRescheduled) {
		return nil, apperror.BadRequest("appointment in status %s cannot be rescheduled", a.Status)
	}
	a.Date = dateOnly(date)
	a.StartTime, a.EndTime, a.Duration, err = normalizeSlot(start, end)
	if err != nil {
		return nil, err
	}
	a.Status = StatusRescheduled

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockClinicianDay(ctx, a.ClinicianID, a.Date); err != nil {
			return err
		}
		conflicts, err := s.CheckConflicts(ctx, a.ClinicianID, a.Date, a.StartTime, a.EndTime, &a.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperror.Conflict("requested slot conflicts with an existing appointment", conflicts)
		}
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// transition loads an appointment, checks access and applies a status
// change if the lifecycle allows it.
func (s *Service) transition(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, next Status, mutate func(*Appointment)) (*Appointment, error) {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(next) {
		return nil, apperror.BadRequest("appointment cannot move from %s to %s", a.Status, next)
	}
	a.Status = next
	if mutate != nil {
		mutate(a)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckIn records the client's arrival.
func (s *Service) CheckIn(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, caller, id, StatusCheckedIn, nil)
}

// StartSession moves a checked-in appointment into session.
func (s *Service) StartSession(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, caller, id, StatusInSession, nil)
}

// CheckOut completes the appointment.
func (s *Service) CheckOut(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, caller, id, StatusCompleted, nil)
}

// Cancel cancels an appointment, recording the reason and whether a
// cancellation fee applies.
func (s *Service) Cancel(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, reason string, fee bool) (*Appointment, error) {
	return s.transition(ctx, caller, id, StatusCancelled, func(a *Appointment) {
		a.CancellationReason = reason
		a.CancellationFee = fee
	})
}

// MarkNoShow records that the client did not attend.
func (s *Service) MarkNoShow(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, caller, id, StatusNoShow, nil)
}

// Delete removes an appointment outright. Intended for administrative
// cleanup; cancellation is the normal path.
func (s *Service) Delete(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CreateRecurring expands a recurrence pattern into a series and books
// every occurrence in one transaction. Any conflict on any date aborts
// the whole series.
func (s *Service) CreateRecurring(ctx context.Context, caller accesscontrol.Caller, in CreateInput, pattern RecurrencePattern) (*SeriesResult, error) {
	if (pattern.EndDate == nil) == (pattern.Count == 0) {
		return nil, apperror.BadRequest("specify exactly one of endDate or count")
	}
	start, end, dur, err := normalizeSlot(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	clients, err := s.participantIDs(in)
	if err != nil {
		return nil, err
	}
	for _, clientID := range clients {
		if err := s.access.AssertCanAccessClient(ctx, caller, clientID, nil, false); err != nil {
			return nil, err
		}
	}

	dates, err := GenerateDates(in.Date, pattern)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, apperror.BadRequest("recurrence pattern produces no occurrences")
	}

	sweep, err := s.CheckSeriesConflicts(ctx, in.ClinicianID, dates, start, end)
	if err != nil {
		return nil, err
	}
	if sweep.HasConflicts {
		return nil, apperror.Conflict("recurring series conflicts with existing appointments", sweep)
	}

	seriesID := NewSeriesID()
	result := &SeriesResult{ParentRecurrenceID: seriesID}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		for _, date := range dates {
			if err := s.repo.LockClinicianDay(ctx, in.ClinicianID, date); err != nil {
				return err
			}
			conflicts, err := s.CheckConflicts(ctx, in.ClinicianID, date, start, end, nil)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return apperror.Conflict("recurring series conflicts with existing appointments",
					[]DateConflicts{{Date: date, Conflicts: conflicts}})
			}
			a := &Appointment{
				ID:                 uuid.New(),
				OrganizationID:     caller.OrganizationID,
				ClientID:           in.ClientID,
				ClinicianID:        in.ClinicianID,
				IsGroup:            in.IsGroup,
				GroupClientIDs:     in.GroupClientIDs,
				Date:               date,
				StartTime:          start,
				EndTime:            end,
				Duration:           dur,
				Type:               in.Type,
				ServiceLocation:    in.ServiceLocation,
				Status:             StatusScheduled,
				Notes:              in.Notes,
				IsRecurring:        true,
				ParentRecurrenceID: seriesID,
				CreatedBy:          caller.ID,
			}
			if err := s.repo.Create(ctx, a); err != nil {
				return err
			}
			result.Appointments = append(result.Appointments, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Created = len(result.Appointments)

	s.log.Info().
		Str("series_id", seriesID).
		Int("occurrences", result.Created).
		Str("clinician_id", in.ClinicianID.String()).
		Msg("recurring series created")
	return result, nil
}

// CheckSeriesConflicts sweeps every proposed date of a series against
// the clinician's calendar.
func (s *Service) CheckSeriesConflicts(ctx context.Context, clinicianID uuid.UUID, dates []time.Time, start, end string) (*SeriesConflictResult, error) {
	result := &SeriesConflictResult{TotalDates: len(dates)}
	for _, date := range dates {
		conflicts, err := s.CheckConflicts(ctx, clinicianID, date, start, end, nil)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			result.HasConflicts = true
			result.ConflictDates = append(result.ConflictDates, DateConflicts{Date: date, Conflicts: conflicts})
		}
	}
	return result, nil
}

// Series returns every occurrence of a recurring series, ordered by
// date, after an access check against the first occurrence.
func (s *Service) Series(ctx context.Context, caller accesscontrol.Caller, parentID string) ([]*Appointment, error) {
	appts, err := s.repo.Series(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, apperror.NotFound("appointment series")
	}
	if err := s.access.AssertCanAccessAppointment(ctx, caller, appts[0].ID, ownershipOf(appts[0])); err != nil {
		return nil, err
	}
	return appts, nil
}

// UpdateEntireSeries applies a change to every future occurrence of a
// series. Past occurrences are untouched. Failures on individual
// occurrences are logged and skipped; the returned count is the number
// actually updated.
func (s *Service) UpdateEntireSeries(ctx context.Context, caller accesscontrol.Caller, parentID string, in SeriesUpdateInput) (int, error) {
	appts, err := s.Series(ctx, caller, parentID)
	if err != nil {
		return 0, err
	}
	today := dateOnly(s.now())

	updated := 0
	for _, a := range appts {
		if a.Date.Before(today) {
			continue
		}
		if in.StartTime != nil {
			a.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			a.EndTime = *in.EndTime
		}
		if in.StartTime != nil || in.EndTime != nil {
			a.StartTime, a.EndTime, a.Duration, err = normalizeSlot(a.StartTime, a.EndTime)
			if err != nil {
				return updated, err
			}
		}
		if in.Type != nil {
			a.Type = *in.Type
		}
		if in.ServiceLocation != nil {
			a.ServiceLocation = *in.ServiceLocation
		}
		if in.Notes != nil {
			a.Notes = *in.Notes
		}
		if err := s.repo.Update(ctx, a); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("series update skipped occurrence")
			continue
		}
		updated++
	}
	return updated, nil
}

// CancelEntireSeries cancels every future occurrence of a series.
// Completed occurrences keep their status. The returned count is the
// number actually cancelled.
func (s *Service) CancelEntireSeries(ctx context.Context, caller accesscontrol.Caller, parentID, reason string) (int, error) {
	appts, err := s.Series(ctx, caller, parentID)
	if err != nil {
		return 0, err
	}
	today := dateOnly(s.now())

	cancelled := 0
	for _, a := range appts {
		if a.Date.Before(today) {
			continue
		}
		if a.Status == StatusCompleted || a.Status == StatusCancelled {
			continue
		}
		a.Status = StatusCancelled
		a.CancellationReason = reason
		if err := s.repo.Update(ctx, a); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("series cancel skipped occurrence")
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

func ownershipOf(a *Appointment) *accesscontrol.AppointmentOwnership {
	return &accesscontrol.AppointmentOwnership{
		ID:             a.ID,
		ClientID:       a.ClientID,
		ClinicianID:    a.ClinicianID,
		OrganizationID: a.OrganizationID,
	}
}
