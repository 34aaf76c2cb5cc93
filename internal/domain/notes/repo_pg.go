package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
	"github.com/mentalspace/practice-api/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns a Repository backed by PostgreSQL.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.FromContext(ctx, r.pool)
}

const noteCols = `id, organization_id, client_id, author_id, status, content, session_date,
	signed_at, cosigned_by, cosigned_at, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(&n.ID, &n.OrganizationID, &n.ClientID, &n.AuthorID, &n.Status, &n.Content,
		&n.SessionDate, &n.SignedAt, &n.CosignedBy, &n.CosignedAt, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *ClinicalNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_notes (id, organization_id, client_id, author_id, status, content, session_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.OrganizationID, n.ClientID, n.AuthorID, n.Status, n.Content, n.SessionDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	n, err := scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM clinical_notes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("clinical note")
	}
	return n, err
}

func (r *repoPG) Update(ctx context.Context, n *ClinicalNote) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_notes SET status=$2, content=$3, session_date=$4,
			signed_at=$5, cosigned_by=$6, cosigned_at=$7, updated_at=NOW()
		WHERE id = $1`,
		n.ID, n.Status, n.Content, n.SessionDate, n.SignedAt, n.CosignedBy, n.CosignedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("clinical note")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*ClinicalNote, int, error) {
	conds := []string{}
	args := []any{}
	idx := 1

	conds, args, idx = scope.Apply(conds, args, idx, accesscontrol.ScopeColumns{
		Organization: "organization_id",
		Owner:        "author_id",
		Client:       "client_id",
	})
	if f.ClientID != nil {
		conds = append(conds, fmt.Sprintf("client_id = $%d", idx))
		args = append(args, *f.ClientID)
		idx++
	}
	if f.AuthorID != nil {
		conds = append(conds, fmt.Sprintf("author_id = $%d", idx))
		args = append(args, *f.AuthorID)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+noteCols+` FROM clinical_notes`+where+
		` ORDER BY session_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CreateAmendment(ctx context.Context, a *Amendment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO note_amendments (id, note_id, author_id, content)
		VALUES ($1,$2,$3,$4)`,
		a.ID, a.NoteID, a.AuthorID, a.Content)
	return err
}

func (r *repoPG) Amendments(ctx context.Context, noteID uuid.UUID) ([]*Amendment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, note_id, author_id, content, created_at
		 FROM note_amendments WHERE note_id = $1 ORDER BY created_at`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Amendment
	for rows.Next() {
		var a Amendment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.AuthorID, &a.Content, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
