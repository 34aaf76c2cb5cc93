package middleware

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/auth"
)

// AccessEntry captures who touched which record, when, from where, and how.
type AccessEntry struct {
	UserID     string
	UserRoles  []string
	EntityType string
	EntityID   string
	Action     string // read, create, update, delete, list
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AccessRecorder persists access entries. The middleware stays decoupled
// from the concrete store so tests can provide a mock implementation.
type AccessRecorder interface {
	RecordAccess(entry AccessEntry) error
}

// AccessRecorderFunc is a function adapter for AccessRecorder.
type AccessRecorderFunc func(entry AccessEntry) error

func (f AccessRecorderFunc) RecordAccess(entry AccessEntry) error {
	return f(entry)
}

// Audit returns middleware that logs every access to record-bearing routes
// under /api/v1. The handler runs first so the entry carries the final
// response status. A failing recorder never fails the request; the miss is
// logged and the response proceeds.
func Audit(logger zerolog.Logger, recorders ...AccessRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			entry := AccessEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx)

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = methodToAction(req.Method, path)
			entry.EntityType, entry.EntityID = splitEntityPath(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "record_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("entity_type", entry.EntityType).
				Str("entity_id", entry.EntityID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func methodToAction(method, path string) string {
	switch method {
	case "GET":
		if _, id := splitEntityPath(path); id == "" {
			return "list"
		}
		return "read"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// splitEntityPath extracts the entity type and record identifier from paths
// of the form /api/v1/<entity>/<id>/... Only UUID-shaped segments count as
// identifiers so sub-resources like /appointments/conflicts are not
// mistaken for record IDs.
func splitEntityPath(path string) (entityType, entityID string) {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	entityType = parts[0]
	if len(parts) > 1 {
		if _, err := uuid.Parse(parts[1]); err == nil {
			entityID = parts[1]
		}
	}
	return entityType, entityID
}
