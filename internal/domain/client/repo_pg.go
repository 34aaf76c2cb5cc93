package client

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

const clientCols = `id, organization_id, first_name, last_name, date_of_birth, email, phone,
	status, primary_therapist_id, secondary_therapist_id, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var primary, secondary *uuid.UUID
	err := row.Scan(&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.DateOfBirth,
		&c.Email, &c.Phone, &c.Status, &primary, &secondary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		c.PrimaryTherapistID = *primary
	}
	if secondary != nil {
		c.SecondaryTherapistID = *secondary
	}
	return &c, nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clients (id, organization_id, first_name, last_name, date_of_birth, email, phone,
			status, primary_therapist_id, secondary_therapist_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.OrganizationID, c.FirstName, c.LastName, c.DateOfBirth, c.Email, c.Phone,
		c.Status, nullableID(c.PrimaryTherapistID), nullableID(c.SecondaryTherapistID))
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("client")
	}
	return c, err
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET first_name=$2, last_name=$3, date_of_birth=$4, email=$5, phone=$6,
			status=$7, primary_therapist_id=$8, secondary_therapist_id=$9, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.DateOfBirth, c.Email, c.Phone,
		c.Status, nullableID(c.PrimaryTherapistID), nullableID(c.SecondaryTherapistID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("client")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*Client, int, error) {
	conds := []string{}
	args := []any{}
	idx := 1

	conds, args, idx = scope.Apply(conds, args, idx, accesscontrol.ScopeColumns{
		Organization: "organization_id",
		Client:       "id",
	})
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.TherapistID != nil {
		conds = append(conds, fmt.Sprintf("(primary_therapist_id = $%d OR secondary_therapist_id = $%d)", idx, idx))
		args = append(args, *f.TherapistID)
		idx++
	}
	if f.Search != "" {
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", idx, idx))
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+clientCols+` FROM clients`+where+
		` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
