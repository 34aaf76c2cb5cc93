package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperror.Kind
		want int
	}{
		{apperror.KindBadRequest, http.StatusBadRequest},
		{apperror.KindUnauthorized, http.StatusUnauthorized},
		{apperror.KindForbidden, http.StatusForbidden},
		{apperror.KindNotFound, http.StatusNotFound},
		{apperror.KindConflict, http.StatusConflict},
		{apperror.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.kind); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func doRequest(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	e.HTTPErrorHandler(err, c)

	var env Envelope
	if decErr := json.Unmarshal(rec.Body.Bytes(), &env); decErr != nil {
		t.Fatalf("decode envelope: %v", decErr)
	}
	return rec, env
}

func TestErrorHandlerForbidden(t *testing.T) {
	rec, env := doRequest(t, apperror.Forbidden("client access denied"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if env.Success {
		t.Error("success should be false")
	}
	if env.Message != "client access denied" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestErrorHandlerConflictCarriesEvidence(t *testing.T) {
	rec, env := doRequest(t, apperror.Conflict("scheduling conflict detected",
		[]map[string]string{{"startTime": "09:30", "endTime": "10:30"}}))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if env.Errors == nil {
		t.Error("conflict envelope should include evidence")
	}
}

func TestErrorHandlerHidesInternalCause(t *testing.T) {
	rec, env := doRequest(t, apperror.Internal(echo.ErrInternalServerError))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if env.Message != "internal server error" {
		t.Errorf("internal cause leaked: %q", env.Message)
	}
}
