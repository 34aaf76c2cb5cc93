package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// Service implements charge management. Every operation is gated by the
// resolver's billing-data path, so clinicians reach only their own
// clients' ledgers while billing staff and admins see the practice.
type Service struct {
	repo   Repository
	access *accesscontrol.Resolver
	log    zerolog.Logger
}

func NewService(repo Repository, access *accesscontrol.Resolver, log zerolog.Logger) *Service {
	return &Service{repo: repo, access: access, log: log}
}

type CreateInput struct {
	ClientID      uuid.UUID
	AppointmentID *uuid.UUID
	AmountCents   int64
	CPTCode       string
}

func (s *Service) Create(ctx context.Context, caller accesscontrol.Caller, in CreateInput) (*Charge, error) {
	if in.AmountCents <= 0 {
		return nil, apperror.BadRequest("charge amount must be positive")
	}
	if in.CPTCode == "" {
		return nil, apperror.BadRequest("cpt code is required")
	}
	if err := s.access.AssertCanAccessBillingData(ctx, caller, &in.ClientID); err != nil {
		return nil, err
	}

	c := &Charge{
		ID:             uuid.New(),
		OrganizationID: caller.OrganizationID,
		ClientID:       in.ClientID,
		AppointmentID:  in.AppointmentID,
		AmountCents:    in.AmountCents,
		CPTCode:        in.CPTCode,
		Status:         StatusPending,
		CreatedBy:      caller.ID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("charge_id", c.ID.String()).Int64("amount_cents", c.AmountCents).Msg("charge created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*Charge, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.Forbidden("billing data access denied")
		}
		return nil, err
	}
	if err := s.access.AssertCanAccessBillingData(ctx, caller, &c.ClientID); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByClient returns a client's ledger.
func (s *Service) ListByClient(ctx context.Context, caller accesscontrol.Caller, clientID uuid.UUID, limit, offset int) ([]*Charge, int, error) {
	if err := s.access.AssertCanAccessBillingData(ctx, caller, &clientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

// UpdateStatus moves a charge through the revenue cycle. Void is
// terminal.
func (s *Service) UpdateStatus(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, status ChargeStatus) (*Charge, error) {
	if !status.Valid() {
		return nil, apperror.BadRequest("invalid charge status %q", status)
	}
	c, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusVoid {
		return nil, apperror.BadRequest("void charges cannot change status")
	}
	c.Status = status
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
