package identity

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

const userCols = `id, organization_id, name, email, role, roles, supervisor_id, active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Name, &u.Email, &u.Role, &u.Roles,
		&u.SupervisorID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, organization_id, name, email, role, roles, supervisor_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.OrganizationID, u.Name, u.Email, u.Role, u.Roles, u.SupervisorID, u.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user")
	}
	return u, err
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user")
	}
	return u, err
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET name=$2, email=$3, role=$4, roles=$5, supervisor_id=$6, active=$7, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.Role, u.Roles, u.SupervisorID, u.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, organizationID string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE organization_id = $1`, organizationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users WHERE organization_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		organizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Supervisees(ctx context.Context, supervisorID uuid.UUID) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users WHERE supervisor_id = $1 ORDER BY name`, supervisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}
