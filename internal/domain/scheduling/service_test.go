package scheduling

import (
	"context"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

type fakeRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (r *fakeRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment")
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := r.appts[a.ID]; !ok {
		return apperror.NotFound("appointment")
	}
	cp := *a
	r.appts[a.ID] = &cp
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.appts[id]; !ok {
		return apperror.NotFound("appointment")
	}
	delete(r.appts, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range r.appts {
		if !scope.Allows(a.OrganizationID, a.ClinicianID, a.ClientID) {
			continue
		}
		if f.ClinicianID != nil && a.ClinicianID != *f.ClinicianID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, len(out), nil
}

func (r *fakeRepo) ActiveForClinician(_ context.Context, clinicianID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range r.appts {
		if a.ClinicianID != clinicianID || !a.Date.Equal(date) {
			continue
		}
		if !a.Status.Occupying() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) Series(_ context.Context, parentID string) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range r.appts {
		if a.ParentRecurrenceID == parentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeRepo) LockClinicianDay(context.Context, uuid.UUID, time.Time) error { return nil }

type fakeDirectory struct {
	clients map[uuid.UUID]*accesscontrol.ClientOwnership
	orgs    map[uuid.UUID]string
}

func (d *fakeDirectory) UserOrganization(_ context.Context, id uuid.UUID) (string, error) {
	return d.orgs[id], nil
}

func (d *fakeDirectory) AssignedClientIDs(_ context.Context, therapistID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, c := range d.clients {
		if c.PrimaryTherapistID == therapistID || c.SecondaryTherapistID == therapistID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *fakeDirectory) SuperviseeClientIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (d *fakeDirectory) SupervisorID(context.Context, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (d *fakeDirectory) ClientOwnership(_ context.Context, id uuid.UUID) (*accesscontrol.ClientOwnership, error) {
	return d.clients[id], nil
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	admin     accesscontrol.Caller
	clinician accesscontrol.Caller
	frontDesk accesscontrol.Caller
	clientA   uuid.UUID
	clientB   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clinicianID := uuid.New()
	clientA := uuid.New()
	clientB := uuid.New()

	dir := &fakeDirectory{
		clients: map[uuid.UUID]*accesscontrol.ClientOwnership{
			clientA: {ID: clientA, OrganizationID: "org-1", PrimaryTherapistID: clinicianID},
			clientB: {ID: clientB, OrganizationID: "org-1", SecondaryTherapistID: clinicianID},
		},
		orgs: map[uuid.UUID]string{clinicianID: "org-1"},
	}
	resolver := accesscontrol.NewResolver(dir, nil, zerolog.Nop())
	repo := newFakeRepo()

	return &fixture{
		svc:       NewService(repo, resolver, zerolog.Nop()),
		repo:      repo,
		admin:     accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1", Roles: []string{accesscontrol.RoleAdministrator}},
		clinician: accesscontrol.Caller{ID: clinicianID, OrganizationID: "org-1", Roles: []string{accesscontrol.RoleClinician}},
		frontDesk: accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1", Roles: []string{accesscontrol.RoleFrontDesk}},
		clientA:   clientA,
		clientB:   clientB,
	}
}

func (f *fixture) createInput() CreateInput {
	return CreateInput{
		ClientID:    f.clientA,
		ClinicianID: f.clinician.ID,
		Date:        date(2024, time.March, 4),
		StartTime:   "10:00",
		EndTime:     "11:00",
		Type:        "THERAPY_SESSION",
	}
}

func TestCreateBooksSlot(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", a.Status)
	}
	if a.Duration != 60 {
		t.Errorf("duration = %d, want 60", a.Duration)
	}
	if a.OrganizationID != "org-1" {
		t.Errorf("organization = %q, want org-1", a.OrganizationID)
	}
	if _, err := f.repo.GetByID(context.Background(), a.ID); err != nil {
		t.Errorf("appointment not persisted: %v", err)
	}
}

func TestCreateRejectsZeroDuration(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	in.EndTime = in.StartTime
	if _, err := f.svc.Create(context.Background(), f.clinician, in); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.clinician, f.createInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	in := f.createInput()
	in.ClientID = f.clientB
	in.StartTime, in.EndTime = "10:30", "11:30"
	_, err := f.svc.Create(context.Background(), f.clinician, in)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateAllowsBackToBack(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.clinician, f.createInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	in := f.createInput()
	in.ClientID = f.clientB
	in.StartTime, in.EndTime = "11:00", "12:00"
	if _, err := f.svc.Create(context.Background(), f.clinician, in); err != nil {
		t.Errorf("back to back booking should succeed, got %v", err)
	}
}

func TestCancelledAppointmentDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), f.clinician, a.ID, "client request", false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	in := f.createInput()
	in.ClientID = f.clientB
	if _, err := f.svc.Create(context.Background(), f.clinician, in); err != nil {
		t.Errorf("slot freed by cancellation should be bookable, got %v", err)
	}
}

func TestGroupRequiresTwoClients(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	in.IsGroup = true
	if _, err := f.svc.Create(context.Background(), f.clinician, in); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("single-client group: expected bad request, got %v", err)
	}

	in.GroupClientIDs = []uuid.UUID{f.clientB}
	if _, err := f.svc.Create(context.Background(), f.clinician, in); err != nil {
		t.Errorf("two-client group should succeed, got %v", err)
	}
}

func TestCreateDeniedForUnassignedCaller(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.frontDesk, f.createInput())
	if !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestRescheduleMarksStatusAndExcludesSelf(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Moving within the original window must not collide with itself.
	moved, err := f.svc.Reschedule(context.Background(), f.clinician, a.ID, a.Date, "10:30", "11:30")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != StatusRescheduled {
		t.Errorf("status = %s, want RESCHEDULED", moved.Status)
	}
	if moved.StartTime != "10:30" || moved.Duration != 60 {
		t.Errorf("slot = %s+%dm, want 10:30+60m", moved.StartTime, moved.Duration)
	}
}

func TestStatusFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if a, err = f.svc.CheckIn(ctx, f.clinician, a.ID); err != nil || a.Status != StatusCheckedIn {
		t.Fatalf("CheckIn: status=%s err=%v", a.Status, err)
	}
	if a, err = f.svc.StartSession(ctx, f.clinician, a.ID); err != nil || a.Status != StatusInSession {
		t.Fatalf("StartSession: status=%s err=%v", a.Status, err)
	}
	if a, err = f.svc.CheckOut(ctx, f.clinician, a.ID); err != nil || a.Status != StatusCompleted {
		t.Fatalf("CheckOut: status=%s err=%v", a.Status, err)
	}

	// Completed is terminal.
	if _, err := f.svc.Cancel(ctx, f.clinician, a.ID, "", false); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("cancel after completion: expected bad request, got %v", err)
	}
}

func TestCancelRecordsReason(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	cancelled, err := f.svc.Cancel(context.Background(), f.clinician, a.ID, "client request", true)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.CancellationReason != "client request" || !cancelled.CancellationFee {
		t.Errorf("cancellation details not recorded: %+v", cancelled)
	}
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	marked, err := f.svc.MarkNoShow(context.Background(), f.clinician, a.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if marked.Status != StatusNoShow {
		t.Errorf("status = %s, want NO_SHOW", marked.Status)
	}
}

func TestCreateRecurringWeekly(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	result, err := f.svc.CreateRecurring(context.Background(), f.clinician, in, RecurrencePattern{
		Frequency: FreqWeekly,
		Count:     4,
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	if result.Created < 4 {
		t.Fatalf("created %d occurrences, want at least 4", result.Created)
	}
	if !regexp.MustCompile(`^REC-\d+-\w+$`).MatchString(result.ParentRecurrenceID) {
		t.Errorf("series id %q has unexpected format", result.ParentRecurrenceID)
	}
	for i, a := range result.Appointments {
		if !a.IsRecurring || a.ParentRecurrenceID != result.ParentRecurrenceID {
			t.Errorf("occurrence %d not linked to series: %+v", i, a)
		}
		if i > 0 {
			if gap := a.Date.Sub(result.Appointments[i-1].Date); gap != 7*24*time.Hour {
				t.Errorf("occurrence gap = %v, want 168h", gap)
			}
		}
	}
}

func TestCreateRecurringRequiresOneTerminator(t *testing.T) {
	f := newFixture(t)
	end := date(2024, time.June, 1)
	cases := []RecurrencePattern{
		{Frequency: FreqWeekly},                            // neither
		{Frequency: FreqWeekly, Count: 4, EndDate: &end},   // both
	}
	for _, pattern := range cases {
		if _, err := f.svc.CreateRecurring(context.Background(), f.clinician, f.createInput(), pattern); !apperror.IsKind(err, apperror.KindBadRequest) {
			t.Errorf("pattern %+v: expected bad request, got %v", pattern, err)
		}
	}
}

func TestCreateRecurringAbortsOnConflict(t *testing.T) {
	f := newFixture(t)

	// Book the slot two weeks out, colliding with the third occurrence.
	blocker := f.createInput()
	blocker.ClientID = f.clientB
	blocker.Date = date(2024, time.March, 18)
	if _, err := f.svc.Create(context.Background(), f.clinician, blocker); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.svc.CreateRecurring(context.Background(), f.clinician, f.createInput(), RecurrencePattern{
		Frequency: FreqWeekly,
		Count:     4,
	})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Nothing from the aborted series may remain.
	for _, a := range f.repo.appts {
		if a.ParentRecurrenceID != "" {
			t.Errorf("orphaned series occurrence persisted: %+v", a)
		}
	}
}

func seedSeries(t *testing.T, f *fixture, statuses []Status, start time.Time) string {
	t.Helper()
	seriesID := NewSeriesID()
	for i, st := range statuses {
		a := &Appointment{
			ID:                 uuid.New(),
			OrganizationID:     "org-1",
			ClientID:           f.clientA,
			ClinicianID:        f.clinician.ID,
			Date:               start.AddDate(0, 0, i*7),
			StartTime:          "10:00",
			EndTime:            "11:00",
			Duration:           60,
			Status:             st,
			IsRecurring:        true,
			ParentRecurrenceID: seriesID,
		}
		if err := f.repo.Create(context.Background(), a); err != nil {
			t.Fatalf("seed series: %v", err)
		}
	}
	return seriesID
}

func TestUpdateEntireSeriesTouchesFutureOnly(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return date(2024, time.March, 15) }

	// Occurrences on Mar 4 (past), Mar 11 (past), Mar 18, Mar 25.
	seriesID := seedSeries(t, f, []Status{StatusCompleted, StatusCompleted, StatusScheduled, StatusScheduled}, date(2024, time.March, 4))

	newStart := "14:00"
	newEnd := "15:00"
	updated, err := f.svc.UpdateEntireSeries(context.Background(), f.clinician, seriesID, SeriesUpdateInput{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("UpdateEntireSeries: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	appts, _ := f.repo.Series(context.Background(), seriesID)
	for _, a := range appts {
		if a.Date.Before(date(2024, time.March, 15)) {
			if a.StartTime != "10:00" {
				t.Errorf("past occurrence on %v was modified", a.Date)
			}
		} else if a.StartTime != "14:00" {
			t.Errorf("future occurrence on %v was not updated", a.Date)
		}
	}
}

func TestCancelEntireSeriesSkipsCompleted(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return date(2024, time.March, 15) }

	// Mar 4 completed (past), Mar 18 completed early, Mar 25 and Apr 1 scheduled.
	seriesID := seedSeries(t, f, []Status{StatusCompleted, StatusCompleted, StatusScheduled, StatusScheduled}, date(2024, time.March, 4))

	cancelled, err := f.svc.CancelEntireSeries(context.Background(), f.clinician, seriesID, "clinician leave")
	if err != nil {
		t.Fatalf("CancelEntireSeries: %v", err)
	}
	if cancelled != 2 {
		t.Errorf("cancelled = %d, want 2", cancelled)
	}

	appts, _ := f.repo.Series(context.Background(), seriesID)
	for _, a := range appts {
		switch {
		case a.Status == StatusCompleted:
			// untouched
		case a.Status == StatusCancelled:
			if a.CancellationReason != "clinician leave" {
				t.Errorf("cancellation reason missing on %v", a.Date)
			}
		default:
			t.Errorf("unexpected status %s on %v", a.Status, a.Date)
		}
	}
}

func TestSeriesNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Series(context.Background(), f.clinician, "REC-1-missing"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.clinician, f.createInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// An appointment from another practice.
	other := &Appointment{
		ID:             uuid.New(),
		OrganizationID: "org-2",
		ClientID:       uuid.New(),
		ClinicianID:    uuid.New(),
		Date:           date(2024, time.March, 4),
		StartTime:      "10:00",
		EndTime:        "11:00",
		Status:         StatusScheduled,
	}
	if err := f.repo.Create(context.Background(), other); err != nil {
		t.Fatalf("seed: %v", err)
	}

	items, total, err := f.svc.List(context.Background(), f.frontDesk, Filters{}, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if items[0].OrganizationID != "org-1" {
		t.Errorf("listing leaked appointment from %q", items[0].OrganizationID)
	}
}

func TestGetDeniedWithoutRole(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), f.clinician, f.createInput())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	outsider := accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1"}
	if _, err := f.svc.Get(context.Background(), outsider, a.ID); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}
