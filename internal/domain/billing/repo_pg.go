package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const chargeCols = `id, organization_id, client_id, appointment_id, amount_cents, cpt_code,
	status, created_by, created_at, updated_at`

func scanCharge(row pgx.Row) (*Charge, error) {
	var c Charge
	err := row.Scan(&c.ID, &c.OrganizationID, &c.ClientID, &c.AppointmentID, &c.AmountCents,
		&c.CPTCode, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Charge) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO charges (id, organization_id, client_id, appointment_id, amount_cents, cpt_code, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.OrganizationID, c.ClientID, c.AppointmentID, c.AmountCents, c.CPTCode, c.Status, c.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Charge, error) {
	c, err := scanCharge(r.conn(ctx).QueryRow(ctx, `SELECT `+chargeCols+` FROM charges WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("charge")
	}
	return c, err
}

func (r *repoPG) Update(ctx context.Context, c *Charge) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE charges SET amount_cents=$2, cpt_code=$3, status=$4, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.AmountCents, c.CPTCode, c.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("charge")
	}
	return nil
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Charge, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM charges WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+chargeCols+` FROM charges WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
