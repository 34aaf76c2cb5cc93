package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

type fakeRepo struct {
	users map[uuid.UUID]*User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[uuid.UUID]*User{}}
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user")
}

func (r *fakeRepo) Update(_ context.Context, u *User) error {
	if _, ok := r.users[u.ID]; !ok {
		return apperror.NotFound("user")
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeRepo) List(_ context.Context, organizationID string, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range r.users {
		if u.OrganizationID == organizationID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) Supervisees(_ context.Context, supervisorID uuid.UUID) ([]*User, error) {
	var out []*User
	for _, u := range r.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

var adminCaller = accesscontrol.Caller{
	ID:             uuid.New(),
	OrganizationID: "org-1",
	Roles:          []string{accesscontrol.RoleAdministrator},
}

func TestNormalizeRoles(t *testing.T) {
	role, roles, err := NormalizeRoles("clinician", []string{"SUPERVISOR", "clinician", " supervisor "})
	if err != nil {
		t.Fatalf("NormalizeRoles: %v", err)
	}
	if role != "CLINICIAN" {
		t.Errorf("legacy role = %q, want CLINICIAN", role)
	}
	if len(roles) != 2 || roles[0] != "CLINICIAN" || roles[1] != "SUPERVISOR" {
		t.Errorf("roles = %v, want [CLINICIAN SUPERVISOR]", roles)
	}

	if _, _, err := NormalizeRoles("WIZARD", nil); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("unknown role: expected bad request, got %v", err)
	}
	if _, _, err := NormalizeRoles("", nil); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("empty roles: expected bad request, got %v", err)
	}
}

func TestCreateAssignsCallerOrganization(t *testing.T) {
	svc := NewService(newFakeRepo(), zerolog.Nop())
	u, err := svc.Create(context.Background(), adminCaller, CreateInput{
		Name:  "Dana Reyes",
		Email: "Dana@Example.com",
		Role:  "CLINICIAN",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.OrganizationID != "org-1" {
		t.Errorf("organization = %q, want org-1", u.OrganizationID)
	}
	if u.Email != "dana@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if !u.Active {
		t.Error("new user should be active")
	}
}

func TestCreateRejectsNonSupervisorySupervisor(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())

	peon, err := svc.Create(context.Background(), adminCaller, CreateInput{
		Name: "Front Desk", Email: "fd@example.com", Role: "FRONT_DESK",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = svc.Create(context.Background(), adminCaller, CreateInput{
		Name: "Intern", Email: "intern@example.com", Role: "INTERN",
		SupervisorID: &peon.ID,
	})
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestAssignSupervisor(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	sup, err := svc.Create(ctx, adminCaller, CreateInput{
		Name: "Supervisor", Email: "sup@example.com", Role: "SUPERVISOR",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	clin, err := svc.Create(ctx, adminCaller, CreateInput{
		Name: "Clinician", Email: "clin@example.com", Role: "CLINICIAN",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := svc.AssignSupervisor(ctx, adminCaller, clin.ID, &sup.ID)
	if err != nil {
		t.Fatalf("AssignSupervisor: %v", err)
	}
	if updated.SupervisorID == nil || *updated.SupervisorID != sup.ID {
		t.Errorf("supervisor link not set: %+v", updated.SupervisorID)
	}

	if _, err := svc.AssignSupervisor(ctx, adminCaller, sup.ID, &sup.ID); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("self-supervision: expected bad request, got %v", err)
	}

	// Clearing the link.
	cleared, err := svc.AssignSupervisor(ctx, adminCaller, clin.ID, nil)
	if err != nil {
		t.Fatalf("clear supervisor: %v", err)
	}
	if cleared.SupervisorID != nil {
		t.Error("supervisor link not cleared")
	}
}

func TestGetDeniedAcrossOrganizations(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())

	u, err := svc.Create(context.Background(), adminCaller, CreateInput{
		Name: "Someone", Email: "s@example.com", Role: "CLINICIAN",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	outsider := accesscontrol.Caller{
		ID:             uuid.New(),
		OrganizationID: "org-2",
		Roles:          []string{accesscontrol.RoleAdministrator},
	}
	if _, err := svc.Get(context.Background(), outsider, u.ID); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestSuperviseesRosterAccess(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	sup, _ := svc.Create(ctx, adminCaller, CreateInput{
		Name: "Supervisor", Email: "sup@example.com", Role: "SUPERVISOR",
	})
	clin, _ := svc.Create(ctx, adminCaller, CreateInput{
		Name: "Clinician", Email: "clin@example.com", Role: "CLINICIAN",
	})
	if _, err := svc.AssignSupervisor(ctx, adminCaller, clin.ID, &sup.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	supCaller := accesscontrol.Caller{ID: sup.ID, OrganizationID: "org-1", Roles: []string{accesscontrol.RoleSupervisor}}
	roster, err := svc.Supervisees(ctx, supCaller, sup.ID)
	if err != nil {
		t.Fatalf("Supervisees: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != clin.ID {
		t.Errorf("roster = %+v, want the one clinician", roster)
	}

	// Another clinician cannot read someone else's roster.
	other := accesscontrol.Caller{ID: uuid.New(), OrganizationID: "org-1", Roles: []string{accesscontrol.RoleClinician}}
	if _, err := svc.Supervisees(ctx, other, sup.ID); !apperror.IsKind(err, apperror.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}
