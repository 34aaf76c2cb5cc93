package accesscontrol

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentalspace/practice-api/internal/platform/db"
)

// PGDirectory reads staff and client relationships from PostgreSQL.
type PGDirectory struct {
	pool *pgxpool.Pool
}

func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

func (d *PGDirectory) conn(ctx context.Context) db.Queryable {
	return db.FromContext(ctx, d.pool)
}

func (d *PGDirectory) UserOrganization(ctx context.Context, userID uuid.UUID) (string, error) {
	var org *string
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT organization_id FROM users WHERE id = $1`, userID,
	).Scan(&org)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query user organization: %w", err)
	}
	if org == nil {
		return "", nil
	}
	return *org, nil
}

func (d *PGDirectory) AssignedClientIDs(ctx context.Context, therapistID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := d.conn(ctx).Query(ctx,
		`SELECT id FROM clients WHERE primary_therapist_id = $1 OR secondary_therapist_id = $1`,
		therapistID,
	)
	if err != nil {
		return nil, fmt.Errorf("query assigned clients: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (d *PGDirectory) SuperviseeClientIDs(ctx context.Context, supervisorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := d.conn(ctx).Query(ctx,
		`SELECT c.id
		 FROM clients c
		 JOIN users u ON u.id = c.primary_therapist_id
		 WHERE u.supervisor_id = $1`,
		supervisorID,
	)
	if err != nil {
		return nil, fmt.Errorf("query supervisee clients: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (d *PGDirectory) SupervisorID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var supervisor *uuid.UUID
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT supervisor_id FROM users WHERE id = $1`, userID,
	).Scan(&supervisor)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query supervisor: %w", err)
	}
	if supervisor == nil {
		return uuid.Nil, nil
	}
	return *supervisor, nil
}

func (d *PGDirectory) ClientOwnership(ctx context.Context, clientID uuid.UUID) (*ClientOwnership, error) {
	var (
		own       ClientOwnership
		org       *string
		primary   *uuid.UUID
		secondary *uuid.UUID
	)
	err := d.conn(ctx).QueryRow(ctx,
		`SELECT id, organization_id, primary_therapist_id, secondary_therapist_id
		 FROM clients WHERE id = $1`,
		clientID,
	).Scan(&own.ID, &org, &primary, &secondary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query client ownership: %w", err)
	}
	if org != nil {
		own.OrganizationID = *org
	}
	if primary != nil {
		own.PrimaryTherapistID = *primary
	}
	if secondary != nil {
		own.SecondaryTherapistID = *secondary
	}
	return &own, nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
