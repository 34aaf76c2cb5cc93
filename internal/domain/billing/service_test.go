package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

type fakeRepo struct {
	charges map[uuid.UUID]*Charge
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{charges: map[uuid.UUID]*Charge{}}
}

func (r *fakeRepo) Create(_ context.Context, c *Charge) error {
	cp := *c
	r.charges[c.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Charge, error) {
	c, ok := r.charges[id]
	if !ok {
		return nil, apperror.NotFound("charge")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) Update(_ context.Context, c *Charge) error {
	if _, ok := r.charges[c.ID]; !ok {
		return apperror.NotFound("charge")
	}
	cp := *c
	r.charges[c.ID] = &cp
	return nil
}

func (r *fakeRepo) ListByClient(_ context.Context, clientID uuid.UUID, limit, offset int) ([]*Charge, int, error) {
	var out []*Charge
	for _, c := range r.charges {
		if c.ClientID == clientID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

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
	biller    accesscontrol.Caller
	clinician accesscontrol.Caller
	frontDesk accesscontrol.Caller
	mine      uuid.UUID // client assigned to clinician
	other     uuid.UUID // client assigned elsewhere
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clinicianID := uuid.New()
	mine := uuid.New()
	other := uuid.New()

	dir := &fakeDirectory{
		clients: map[uuid.UUID]*accesscontrol.ClientOwnership{
			mine:  {ID: mine, OrganizationID: "org-1", PrimaryTherapistID: clinicianID},
			other: {ID: other, OrganizationID: "org-1", PrimaryTherapistID: uuid.New()},
		},
		orgs: map[uuid.UUID]string{clinicianID: "org-1"},
	}
	resolver := accesscontrol.NewResolver(dir, nil, zerolog.Nop())

	return &fixture{
		svc:       NewService(newFakeRepo(), resolver, zerolog.Nop()),
		biller:    accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1", Roles: []string{accesscontrol.RoleBillingStaff}},
		clinician: accesscontrol.Caller{ID: clinicianID, OrganizationID: "org-1", Roles: []string{accesscontrol.RoleClinician}},
		frontDesk: accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1", Roles: []string{accesscontrol.RoleFrontDesk}},
		mine:      mine,
		other:     other,
	}
}

func TestBillingStaffCreatesCharge(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(context.Background(), f.biller, CreateInput{
		ClientID:    f.other,
		AmountCents: 15000,
		CPTCode:     "90837",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != StatusPending {
		t.Errorf("status = %s, want PENDING", c.Status)
	}
}

func TestClinicianLimitedToOwnClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.clinician, CreateInput{
		ClientID: f.mine, AmountCents: 15000, CPTCode: "90837",
	}); err != nil {
		t.Errorf("own client: %v", err)
	}

	if _, err := f.svc.Create(ctx, f.clinician, CreateInput{
		ClientID: f.other, AmountCents: 15000, CPTCode: "90837",
	}); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("other client: expected forbidden, got %v", err)
	}
}

func TestFrontDeskDeniedBillingData(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.frontDesk, CreateInput{
		ClientID: f.mine, AmountCents: 15000, CPTCode: "90837",
	})
	if !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, _, err := f.svc.ListByClient(context.Background(), f.frontDesk, f.mine, 50, 0); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("list: expected forbidden, got %v", err)
	}
}

func TestChargeValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), f.biller, CreateInput{
		ClientID: f.mine, AmountCents: 0, CPTCode: "90837",
	}); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("zero amount: expected bad request, got %v", err)
	}
	if _, err := f.svc.Create(context.Background(), f.biller, CreateInput{
		ClientID: f.mine, AmountCents: 100,
	}); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("missing cpt: expected bad request, got %v", err)
	}
}

func TestVoidIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, f.biller, CreateInput{
		ClientID: f.mine, AmountCents: 15000, CPTCode: "90837",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.biller, c.ID, StatusVoid); err != nil {
		t.Fatalf("void: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.biller, c.ID, StatusBilled); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("un-void: expected bad request, got %v", err)
	}
}
