package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// Service implements client record management. Every read narrows to the
// caller's resolved scope and every single-record access is asserted
// against the resolver, so list results and direct fetches agree.
type Service struct {
	repo   Repository
	access *accesscontrol.Resolver
	log    zerolog.Logger
}

func NewService(repo Repository, access *accesscontrol.Resolver, log zerolog.Logger) *Service {
	return &Service{repo: repo, access: access, log: log}
}

type CreateInput struct {
	FirstName            string
	LastName             string
	DateOfBirth          *time.Time
	Email                string
	Phone                string
	PrimaryTherapistID   uuid.UUID
	SecondaryTherapistID uuid.UUID
}

type UpdateInput struct {
	FirstName            *string
	LastName             *string
	DateOfBirth          *time.Time
	Email                *string
	Phone                *string
	Status               *ClientStatus
	PrimaryTherapistID   *uuid.UUID
	SecondaryTherapistID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, caller accesscontrol.Caller, in CreateInput) (*Client, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperror.BadRequest("first and last name are required")
	}
	c := &Client{
		ID:                   uuid.New(),
		OrganizationID:       caller.OrganizationID,
		FirstName:            in.FirstName,
		LastName:             in.LastName,
		DateOfBirth:          in.DateOfBirth,
		Email:                in.Email,
		Phone:                in.Phone,
		Status:               StatusActive,
		PrimaryTherapistID:   in.PrimaryTherapistID,
		SecondaryTherapistID: in.SecondaryTherapistID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("client_id", c.ID.String()).Msg("client created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Client, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			// Absence is reported the same way as denial so probing
			// for record ids reveals nothing.
			return nil, apperror.Forbidden("client access denied")
		}
		return nil, err
	}
	if err := s.access.AssertCanAccessClient(ctx, caller, id, ownershipOf(c), false); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, caller accesscontrol.Caller, f Filters, limit, offset int) ([]*Client, int, error) {
	scope, err := s.access.ClientScope(ctx, caller, false)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f, scope, limit, offset)
}

func (s *Service) Update(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, in UpdateInput) (*Client, error) {
	c, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		c.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		c.LastName = *in.LastName
	}
	if in.DateOfBirth != nil {
		c.DateOfBirth = in.DateOfBirth
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.BadRequest("invalid client status %q", *in.Status)
		}
		c.Status = *in.Status
	}
	if in.PrimaryTherapistID != nil {
		c.PrimaryTherapistID = *in.PrimaryTherapistID
	}
	if in.SecondaryTherapistID != nil {
		c.SecondaryTherapistID = *in.SecondaryTherapistID
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Discharge closes out a client record.
func (s *Service) Discharge(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Client, error) {
	c, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusDischarged {
		return nil, apperror.BadRequest("client is already discharged")
	}
	c.Status = StatusDischarged
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func ownershipOf(c *Client) *accesscontrol.ClientOwnership {
	return &accesscontrol.ClientOwnership{
		ID:                   c.ID,
		OrganizationID:       c.OrganizationID,
		PrimaryTherapistID:   c.PrimaryTherapistID,
		SecondaryTherapistID: c.SecondaryTherapistID,
	}
}
