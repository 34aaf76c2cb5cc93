package scheduling

import (
	"testing"

	"github.com/google/uuid"
)

func TestStatusOccupying(t *testing.T) {
	occupying := []Status{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInSession}
	for _, s := range occupying {
		if !s.Occupying() {
			t.Errorf("%s should occupy its slot", s)
		}
	}
	released := []Status{StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled}
	for _, s := range released {
		if s.Occupying() {
			t.Errorf("%s should release its slot", s)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCheckedIn, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusScheduled, StatusRescheduled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusCheckedIn, true},
		{StatusConfirmed, StatusInSession, false},
		{StatusCheckedIn, StatusInSession, true},
		{StatusCheckedIn, StatusCompleted, true},
		{StatusInSession, StatusCompleted, true},
		{StatusInSession, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusNoShow, StatusScheduled, false},
		{StatusRescheduled, StatusConfirmed, true},
		{StatusRescheduled, StatusCancelled, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestFilterConflicts(t *testing.T) {
	appt := func(start, end string, status Status) *Appointment {
		return &Appointment{ID: uuid.New(), StartTime: start, EndTime: end, Status: status}
	}
	existing := []*Appointment{
		appt("09:00", "10:00", StatusScheduled),
		appt("10:00", "11:00", StatusConfirmed),
		appt("11:00", "12:00", StatusCancelled),
		appt("13:00", "14:00", StatusCompleted),
	}

	// 10:30-11:30 overlaps only the confirmed booking; the cancelled one
	// at 11:00 no longer blocks.
	got := FilterConflicts(630, 690, existing)
	if len(got) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(got))
	}
	if got[0].StartTime != "10:00" {
		t.Errorf("conflict start = %s, want 10:00", got[0].StartTime)
	}

	// 08:00-09:00 is back to back with the 09:00 booking.
	if got := FilterConflicts(480, 540, existing); len(got) != 0 {
		t.Errorf("08:00-09:00 should be free, got %v", got)
	}

	// Completed sessions release their slot.
	if got := FilterConflicts(780, 840, existing); len(got) != 0 {
		t.Errorf("slot over a completed session should be free, got %v", got)
	}
}
