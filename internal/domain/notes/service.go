package notes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// Service implements the clinical note lifecycle. A note moves
// DRAFT -> SIGNED directly, or DRAFT -> PENDING_COSIGN -> SIGNED when
// the author practices under supervision. Signed content never changes;
// amendments accumulate alongside it.
type Service struct {
	repo   Repository
	access *accesscontrol.Resolver
	dir    accesscontrol.Directory
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, access *accesscontrol.Resolver, dir accesscontrol.Directory, log zerolog.Logger) *Service {
	return &Service{repo: repo, access: access, dir: dir, log: log, now: time.Now}
}

type CreateInput struct {
	ClientID    uuid.UUID
	Content     string
	SessionDate time.Time
}

func (s *Service) Create(ctx context.Context, caller accesscontrol.Caller, in CreateInput) (*ClinicalNote, error) {
	if in.Content == "" {
		return nil, apperror.BadRequest("note content is required")
	}
	if err := s.access.AssertCanAccessClient(ctx, caller, in.ClientID, nil, false); err != nil {
		return nil, err
	}
	n := &ClinicalNote{
		ID:             uuid.New(),
		OrganizationID: caller.OrganizationID,
		ClientID:       in.ClientID,
		AuthorID:       caller.ID,
		Status:         StatusDraft,
		Content:        in.Content,
		SessionDate:    in.SessionDate,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.log.Info().Str("note_id", n.ID.String()).Str("client_id", n.ClientID.String()).Msg("clinical note drafted")
	return n, nil
}

func (s *Service) Get(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*ClinicalNote, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			return nil, apperror.Forbidden("clinical note access denied")
		}
		return nil, err
	}
	if err := s.access.AssertCanAccessClinicalNote(ctx, caller, id, ownershipOf(n)); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, caller accesscontrol.Caller, f Filters, limit, offset int) ([]*ClinicalNote, int, error) {
	scope, err := s.access.ClinicalNoteScope(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f, scope, limit, offset)
}

// UpdateDraft edits a draft's content. Only the author may edit, and
// only before signing.
func (s *Service) UpdateDraft(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID, content string, sessionDate *time.Time) (*ClinicalNote, error) {
	n, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if n.AuthorID != caller.ID {
		return nil, apperror.Forbidden("only the author may edit a note")
	}
	if n.Status == StatusSigned {
		return nil, apperror.BadRequest("signed notes are immutable; add an amendment instead")
	}
	if n.Status != StatusDraft {
		return nil, apperror.BadRequest("note in status %s cannot be edited", n.Status)
	}
	if content != "" {
		n.Content = content
	}
	if sessionDate != nil {
		n.SessionDate = *sessionDate
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Sign finalizes a draft. Authors practicing under supervision submit
// for co-signature instead; their supervisor completes the signing.
func (s *Service) Sign(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*ClinicalNote, error) {
	n, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if n.AuthorID != caller.ID {
		return nil, apperror.Forbidden("only the author may sign a note")
	}
	if n.Status != StatusDraft {
		return nil, apperror.BadRequest("note in status %s cannot be signed", n.Status)
	}

	supervisor, err := s.dir.SupervisorID(ctx, caller.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if supervisor != uuid.Nil {
		n.Status = StatusPendingCosign
	} else {
		now := s.now()
		n.Status = StatusSigned
		n.SignedAt = &now
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	s.log.Info().Str("note_id", n.ID.String()).Str("status", string(n.Status)).Msg("clinical note signed")
	return n, nil
}

// Cosign completes a supervised note. Only the author's supervisor may
// co-sign.
func (s *Service) Cosign(ctx context.Context, caller accesscontrol.Caller, id uuid.UUID) (*ClinicalNote, error) {
	n, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusPendingCosign {
		return nil, apperror.BadRequest("note in status %s cannot be co-signed", n.Status)
	}
	supervisor, err := s.dir.SupervisorID(ctx, n.AuthorID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if supervisor == uuid.Nil || supervisor != caller.ID {
		return nil, apperror.Forbidden("only the author's supervisor may co-sign")
	}

	now := s.now()
	n.Status = StatusSigned
	n.SignedAt = &now
	n.CosignedBy = &caller.ID
	n.CosignedAt = &now
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	s.log.Info().Str("note_id", n.ID.String()).Str("cosigner", caller.ID.String()).Msg("clinical note co-signed")
	return n, nil
}

// Amend appends a correction to a signed note. Unsigned notes are
// edited directly, not amended.
func (s *Service) Amend(ctx context.Context, caller accesscontrol.Caller, noteID uuid.UUID, content string) (*Amendment, error) {
	if content == "" {
		return nil, apperror.BadRequest("amendment content is required")
	}
	n, err := s.Get(ctx, caller, noteID)
	if err != nil {
		return nil, err
	}
	if n.Status != StatusSigned {
		return nil, apperror.BadRequest("only signed notes can be amended")
	}
	a := &Amendment{
		ID:       uuid.New(),
		NoteID:   noteID,
		AuthorID: caller.ID,
		Content:  content,
	}
	if err := s.repo.CreateAmendment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Amendments lists a note's amendments, oldest first.
func (s *Service) Amendments(ctx context.Context, caller accesscontrol.Caller, noteID uuid.UUID) ([]*Amendment, error) {
	if _, err := s.Get(ctx, caller, noteID); err != nil {
		return nil, err
	}
	return s.repo.Amendments(ctx, noteID)
}

func ownershipOf(n *ClinicalNote) *accesscontrol.NoteOwnership {
	return &accesscontrol.NoteOwnership{
		ID:             n.ID,
		ClientID:       n.ClientID,
		AuthorID:       n.AuthorID,
		OrganizationID: n.OrganizationID,
	}
}
