package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seedDemoData inserts a small practice under the given organization: an
// administrator, a supervisor with a supervised intern, an independent
// clinician, front desk and billing staff, and a handful of clients
// assigned across the clinicians. The admin id matches the identity the
// development auth middleware injects, so an unauthenticated dev request
// lands on a real row. Inserts are idempotent.
func seedDemoData(ctx context.Context, pool *pgxpool.Pool, org string) error {
	adminID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	supervisorID := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	clinicianID := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	internID := uuid.MustParse("00000000-0000-0000-0000-000000000004")
	frontDeskID := uuid.MustParse("00000000-0000-0000-0000-000000000005")
	billerID := uuid.MustParse("00000000-0000-0000-0000-000000000006")

	staff := []struct {
		id         uuid.UUID
		name       string
		email      string
		role       string
		supervisor *uuid.UUID
	}{
		{adminID, "Dana Admin", "admin@demo.practice", "ADMINISTRATOR", nil},
		{supervisorID, "Sam Supervisor", "supervisor@demo.practice", "SUPERVISOR", nil},
		{clinicianID, "Casey Clinician", "clinician@demo.practice", "CLINICIAN", nil},
		{internID, "Izzy Intern", "intern@demo.practice", "INTERN", &supervisorID},
		{frontDeskID, "Frankie Frontdesk", "frontdesk@demo.practice", "FRONT_DESK", nil},
		{billerID, "Bobbie Biller", "billing@demo.practice", "BILLING_STAFF", nil},
	}

	for _, s := range staff {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, organization_id, name, email, role, roles, supervisor_id, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			ON CONFLICT (id) DO NOTHING`,
			s.id, org, s.name, s.email, s.role, []string{s.role}, s.supervisor)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", s.email, err)
		}
	}

	clients := []struct {
		id        uuid.UUID
		first     string
		last      string
		dob       time.Time
		primary   uuid.UUID
		secondary *uuid.UUID
	}{
		{uuid.MustParse("00000000-0000-0000-0000-000000000101"), "Alex", "Rivera", time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC), clinicianID, nil},
		{uuid.MustParse("00000000-0000-0000-0000-000000000102"), "Blake", "Chen", time.Date(1985, 9, 2, 0, 0, 0, 0, time.UTC), clinicianID, &supervisorID},
		{uuid.MustParse("00000000-0000-0000-0000-000000000103"), "Cameron", "Okafor", time.Date(2001, 6, 30, 0, 0, 0, 0, time.UTC), internID, nil},
	}

	for _, c := range clients {
		_, err := pool.Exec(ctx, `
			INSERT INTO clients (id, organization_id, first_name, last_name, date_of_birth,
				email, phone, status, primary_therapist_id, secondary_therapist_id)
			VALUES ($1, $2, $3, $4, $5, '', '', 'ACTIVE', $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			c.id, org, c.first, c.last, c.dob, c.primary, c.secondary)
		if err != nil {
			return fmt.Errorf("insert client %s %s: %w", c.first, c.last, err)
		}
	}

	return nil
}
