package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"bad request", BadRequest("invalid time"), KindBadRequest},
		{"unauthorized", Unauthorized("authentication required"), KindUnauthorized},
		{"forbidden", Forbidden("access denied"), KindForbidden},
		{"not found", NotFound("appointment"), KindNotFound},
		{"conflict", Conflict("scheduling conflict", nil), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil inner wrap", fmt.Errorf("outer: %w", NotFound("client")), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotFoundMessageOmitsIdentifier(t *testing.T) {
	err := NotFound("client")
	if err.Message != "client not found" {
		t.Errorf("unexpected message: %q", err.Message)
	}
	if err.Details != nil {
		t.Error("not-found errors must not carry details")
	}
}

func TestConflictCarriesEvidence(t *testing.T) {
	evidence := []string{"09:30-10:30"}
	err := Conflict("scheduling conflict detected", evidence)
	if err.Details == nil {
		t.Fatal("conflict error should carry evidence details")
	}
	if !IsKind(err, KindConflict) {
		t.Error("IsKind(KindConflict) = false")
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("pg: connection refused")
	err := Internal(inner)
	if !errors.Is(err, inner) {
		t.Error("Internal should wrap the underlying error")
	}
}
