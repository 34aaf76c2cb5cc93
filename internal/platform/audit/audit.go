package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/db"
	"github.com/mentalspace/practice-api/internal/platform/middleware"
)

// Entry is a single row in the audit_log table. Details carries
// decision-specific context such as the denial reason or the matched
// supervisee for a supervisor read.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	IPAddress  string          `json:"ip_address"`
	UserAgent  string          `json:"user_agent"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Logger writes audit entries to the database. Audit writes are advisory:
// a failed insert is reported to the structured log but never propagated
// to the caller, so an audit outage cannot take record access down with it.
type Logger struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewLogger(pool *pgxpool.Pool, log zerolog.Logger) *Logger {
	return &Logger{pool: pool, log: log}
}

// Log inserts an audit entry. Errors are swallowed after being logged.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if err := l.insert(ctx, entry); err != nil {
		l.log.Error().Err(err).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Msg("audit write failed")
	}
}

func (l *Logger) insert(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO audit_log (user_id, action, entity_type, entity_id, details, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	q := db.FromContext(ctx, l.pool)
	_, err := q.Exec(ctx, query,
		entry.UserID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Details, entry.IPAddress, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// LogDecision records the outcome of an access control check. details may be
// any JSON-serializable value; marshal failures fall back to omitting it.
func (l *Logger) LogDecision(ctx context.Context, userID uuid.UUID, action, entityType, entityID string, details any) {
	var raw json.RawMessage
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			raw = b
		}
	}
	uid := userID
	l.Log(ctx, Entry{
		UserID:     &uid,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
	})
}

// Recent returns the newest audit entries, optionally filtered by user and
// entity type. limit is clamped to 500.
func (l *Logger) Recent(ctx context.Context, userID *uuid.UUID, entityType string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, user_id, action, entity_type, entity_id, details, ip_address, user_agent, created_at
		FROM audit_log WHERE 1=1`
	args := []any{}
	idx := 1

	if userID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", idx)
		args = append(args, *userID)
		idx++
	}
	if entityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", idx)
		args = append(args, entityType)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", idx)
	args = append(args, limit)

	q := db.FromContext(ctx, l.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Recorder adapts the Logger to the middleware.AccessRecorder interface so
// route-level access logging lands in the same table as decision logging.
type Recorder struct {
	logger *Logger
}

func NewRecorder(logger *Logger) *Recorder {
	return &Recorder{logger: logger}
}

func (r *Recorder) RecordAccess(entry middleware.AccessEntry) error {
	var uid *uuid.UUID
	if entry.UserID != "" {
		if parsed, err := uuid.Parse(entry.UserID); err == nil {
			uid = &parsed
		}
	}

	details, _ := json.Marshal(map[string]any{
		"method":     entry.Method,
		"path":       entry.Path,
		"status":     entry.StatusCode,
		"roles":      entry.UserRoles,
		"request_id": entry.RequestID,
	})

	return r.logger.insert(context.Background(), Entry{
		UserID:     uid,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    details,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	})
}
