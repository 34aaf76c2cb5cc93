// Package scheduling implements appointment booking, the conflict
// detection engine and recurring series expansion.
package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCheckedIn   Status = "CHECKED_IN"
	StatusInSession   Status = "IN_SESSION"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusNoShow      Status = "NO_SHOW"
	StatusRescheduled Status = "RESCHEDULED"
)

// Occupying reports whether an appointment in this status blocks the
// clinician's calendar for conflict purposes. Cancelled, completed,
// no-show and rescheduled appointments release their slot.
func (s Status) Occupying() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInSession:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInSession,
		StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

var statusTransitions = map[Status][]Status{
	StatusScheduled:   {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusConfirmed:   {StatusCheckedIn, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusCheckedIn:   {StatusInSession, StatusCompleted, StatusCancelled},
	StatusInSession:   {StatusCompleted},
	StatusRescheduled: {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step. Completed, cancelled and no-show are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Frequency identifies a recurrence cadence.
type Frequency string

const (
	FreqWeekly      Frequency = "weekly"
	FreqBiWeekly    Frequency = "bi_weekly"
	FreqTwiceWeekly Frequency = "twice_weekly"
	FreqMonthly     Frequency = "monthly"
	FreqCustom      Frequency = "custom"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqWeekly, FreqBiWeekly, FreqTwiceWeekly, FreqMonthly, FreqCustom:
		return true
	}
	return false
}

// RecurrencePattern describes how a recurring series repeats. Exactly
// one of EndDate or Count bounds the series; with neither, expansion
// stops six months after the anchor date.
type RecurrencePattern struct {
	Frequency  Frequency  `json:"frequency"`
	DaysOfWeek []string   `json:"daysOfWeek,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Count      int        `json:"count,omitempty"`
}

// Appointment is a booked session on a clinician's calendar. Date
// carries the calendar day only; StartTime and EndTime are HH:MM.
type Appointment struct {
	ID                 uuid.UUID   `json:"id"`
	OrganizationID     string      `json:"organizationId"`
	ClientID           uuid.UUID   `json:"clientId"`
	ClinicianID        uuid.UUID   `json:"clinicianId"`
	IsGroup            bool        `json:"isGroup"`
	GroupClientIDs     []uuid.UUID `json:"groupClientIds,omitempty"`
	Date               time.Time   `json:"date"`
	StartTime          string      `json:"startTime"`
	EndTime            string      `json:"endTime"`
	Duration           int         `json:"duration"`
	Type               string      `json:"type"`
	ServiceLocation    string      `json:"serviceLocation,omitempty"`
	Status             Status      `json:"status"`
	Notes              string      `json:"notes,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	CancellationFee    bool        `json:"cancellationFee,omitempty"`
	IsRecurring        bool        `json:"isRecurring"`
	ParentRecurrenceID string      `json:"parentRecurrenceId,omitempty"`
	CreatedBy          uuid.UUID   `json:"createdBy"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// ConflictInfo is the evidence returned when a requested slot collides
// with an existing appointment.
type ConflictInfo struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Date          time.Time `json:"date"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	Status        Status    `json:"status"`
}

// TimeSlotValidation is the result of a dry-run slot check.
type TimeSlotValidation struct {
	Available bool           `json:"available"`
	Conflicts []ConflictInfo `json:"conflicts,omitempty"`
}

// DateConflicts groups the conflicts found on a single date of a
// proposed recurring series.
type DateConflicts struct {
	Date      time.Time      `json:"date"`
	Conflicts []ConflictInfo `json:"conflicts"`
}

// SeriesConflictResult summarizes a conflict sweep across every date
// of a proposed series.
type SeriesConflictResult struct {
	HasConflicts  bool            `json:"hasConflicts"`
	TotalDates    int             `json:"totalDates"`
	ConflictDates []DateConflicts `json:"conflictDates,omitempty"`
}

// FilterConflicts returns conflict evidence for every appointment in
// existing that overlaps the half-open interval [startMin, endMin) and
// still occupies its slot.
func FilterConflicts(startMin, endMin int, existing []*Appointment) []ConflictInfo {
	var out []ConflictInfo
	for _, a := range existing {
		if !a.Status.Occupying() {
			continue
		}
		s, err := TimeToMinutes(a.StartTime)
		if err != nil {
			continue
		}
		e, err := TimeToMinutes(a.EndTime)
		if err != nil {
			continue
		}
		if Overlaps(startMin, endMin, s, e) {
			out = append(out, ConflictInfo{
				AppointmentID: a.ID,
				Date:          a.Date,
				StartTime:     a.StartTime,
				EndTime:       a.EndTime,
				Status:        a.Status,
			})
		}
	}
	return out
}
