package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// Service implements staff user management. Writes are restricted to
// administrators at the route level; the service additionally keeps
// every operation inside the caller's organization.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateInput carries the fields of a new staff user.
type CreateInput struct {
	Name         string
	Email        string
	Role         string
	Roles        []string
	SupervisorID *uuid.UUID
}

// UpdateInput carries mutable staff user fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name   *string
	Email  *string
	Role   *string
	Roles  []string
	Active *bool
}

func (s *Service) Create(ctx context.Context, caller accesscontrol.Caller, in CreateInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" {
		return nil, apperror.BadRequest("name and email are required")
	}
	role, roles, err := NormalizeRoles(in.Role, in.Roles)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:             uuid.New(),
		OrganizationID: caller.OrganizationID,
		Name:           in.Name,
		Email:          in.Email,
		Role:           role,
		Roles:          roles,
		Active:         true,
	}
	if in.SupervisorID != nil {
		if err := s.checkSupervisor(ctx, caller, *in.SupervisorID); err != nil {
			return nil, err
		}
		u.SupervisorID = in.SupervisorID
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("staff user created")
	return u, nil
}

func (s *Service) Get(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsSuperAdmin() && u.OrganizationID != caller.OrganizationID {
		return nil, apperror.Forbidden("user access denied")
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, caller accesscontrol.Caller, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, caller.OrganizationID, limit, offset)
}

func (s *Service) Update(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, in UpdateInput) (*User, error) {
	u, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Role != nil || in.Roles != nil {
		role := u.Role
		if in.Role != nil {
			role = *in.Role
		}
		roles := u.Roles
		if in.Roles != nil {
			roles = in.Roles
		}
		if u.Role, u.Roles, err = NormalizeRoles(role, roles); err != nil {
			return nil, err
		}
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AssignSupervisor links a staff user to a supervisor in the same
// organization. A nil supervisorID clears the link.
func (s *Service) AssignSupervisor(ctx context.Context, caller accesscontrol.Caller, userID uuid.UUID, supervisorID *uuid.UUID) (*User, error) {
	u, err := s.Get(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	if supervisorID != nil {
		if *supervisorID == userID {
			return nil, apperror.BadRequest("a user cannot supervise themselves")
		}
		if err := s.checkSupervisor(ctx, caller, *supervisorID); err != nil {
			return nil, err
		}
	}
	u.SupervisorID = supervisorID
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Supervisees lists the direct reports of a supervisor. Supervisors may
// inspect their own roster; administrators anyone's in their org.
func (s *Service) Supervisees(ctx context.Context, caller accesscontrol.Caller, supervisorID uuid.UUID) ([]*User, error) {
	if supervisorID != caller.ID && !caller.IsAdministrator() {
		return nil, apperror.Forbidden("supervisee roster access denied")
	}
	if _, err := s.Get(ctx, caller, supervisorID); err != nil {
		return nil, err
	}
	return s.repo.Supervisees(ctx, supervisorID)
}

func (s *Service) checkSupervisor(ctx context.Context, caller accesscontrol.Caller, supervisorID uuid.UUID) error {
	sup, err := s.Get(ctx, caller, supervisorID)
	if err != nil {
		return err
	}
	for _, r := range sup.Roles {
		if r == accesscontrol.RoleSupervisor || r == accesscontrol.RoleClinicalDirector {
			return nil
		}
	}
	return apperror.BadRequest("designated supervisor lacks a supervisory role")
}
