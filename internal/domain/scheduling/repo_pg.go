package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const apptCols = `id, organization_id, client_id, clinician_id, is_group, group_client_ids,
	date, start_time, end_time, duration, type, service_location, status,
	notes, cancellation_reason, cancellation_fee, is_recurring, parent_recurrence_id,
	created_by, created_at, updated_at`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.OrganizationID, &a.ClientID, &a.ClinicianID,
		&a.IsGroup, &a.GroupClientIDs,
		&a.Date, &a.StartTime, &a.EndTime, &a.Duration, &a.Type, &a.ServiceLocation, &a.Status,
		&a.Notes, &a.CancellationReason, &a.CancellationFee, &a.IsRecurring, &a.ParentRecurrenceID,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, organization_id, client_id, clinician_id, is_group, group_client_ids,
			date, start_time, end_time, duration, type, service_location, status,
			notes, is_recurring, parent_recurrence_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.OrganizationID, a.ClientID, a.ClinicianID, a.IsGroup, a.GroupClientIDs,
		a.Date, a.StartTime, a.EndTime, a.Duration, a.Type, a.ServiceLocation, a.Status,
		a.Notes, a.IsRecurring, a.ParentRecurrenceID, a.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("appointment")
	}
	return a, err
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET date=$2, start_time=$3, end_time=$4, duration=$5,
			type=$6, service_location=$7, status=$8, notes=$9,
			cancellation_reason=$10, cancellation_fee=$11, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.StartTime, a.EndTime, a.Duration,
		a.Type, a.ServiceLocation, a.Status, a.Notes,
		a.CancellationReason, a.CancellationFee)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("appointment")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("appointment")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filters, scope accesscontrol.Scope, limit, offset int) ([]*Appointment, int, error) {
	conds := []string{}
	args := []any{}
	idx := 1

	conds, args, idx = scope.Apply(conds, args, idx, accesscontrol.ScopeColumns{
		Organization: "organization_id",
		Owner:        "clinician_id",
		Client:       "client_id",
	})
	if f.ClinicianID != nil {
		conds = append(conds, fmt.Sprintf("clinician_id = $%d", idx))
		args = append(args, *f.ClinicianID)
		idx++
	}
	if f.ClientID != nil {
		conds = append(conds, fmt.Sprintf("client_id = $%d", idx))
		args = append(args, *f.ClientID)
		idx++
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.Type != "" {
		conds = append(conds, fmt.Sprintf("type = $%d", idx))
		args = append(args, f.Type)
		idx++
	}
	if f.DateFrom != nil {
		conds = append(conds, fmt.Sprintf("date >= $%d", idx))
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		conds = append(conds, fmt.Sprintf("date <= $%d", idx))
		args = append(args, *f.DateTo)
		idx++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + conds[0]
		for _, c := range conds[1:] {
			where += " AND " + c
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+apptCols+` FROM appointments`+where+
		` ORDER BY date, start_time LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ActiveForClinician(ctx context.Context, clinicianID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments
		WHERE clinician_id = $1 AND date = $2
		  AND status IN ('SCHEDULED','CONFIRMED','CHECKED_IN','IN_SESSION')`
	args := []any{clinicianID, date}
	if excludeID != nil {
		query += ` AND id <> $3`
		args = append(args, *excludeID)
	}
	rows, err := r.conn(ctx).Query(ctx, query+` ORDER BY start_time`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Series(ctx context.Context, parentRecurrenceID string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE parent_recurrence_id = $1 ORDER BY date, start_time`,
		parentRecurrenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *repoPG) LockClinicianDay(ctx context.Context, clinicianID uuid.UUID, date time.Time) error {
	key := fmt.Sprintf("appt:%s:%s", clinicianID, date.Format("2006-01-02"))
	return db.XactLock(ctx, r.conn(ctx), key)
}
