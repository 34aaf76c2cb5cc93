package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func contextWithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, UserRolesKey, roles)
}

var testSigningKey = []byte("test-signing-key-for-hmac-tokens")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestRoleSetMergesLegacyAndPlural(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   []string
	}{
		{
			name:   "plural only",
			claims: Claims{Roles: []string{"CLINICIAN", "SUPERVISOR"}},
			want:   []string{"CLINICIAN", "SUPERVISOR"},
		},
		{
			name:   "legacy singular only",
			claims: Claims{Role: "CLINICIAN"},
			want:   []string{"CLINICIAN"},
		},
		{
			name:   "overlapping legacy and plural dedupes",
			claims: Claims{Role: "CLINICIAN", Roles: []string{"CLINICIAN", "SUPERVISOR"}},
			want:   []string{"CLINICIAN", "SUPERVISOR"},
		},
		{
			name:   "empty",
			claims: Claims{},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.RoleSet(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RoleSet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		OrganizationID: "org-1",
		Role:           "CLINICIAN",
		Roles:          []string{"SUPERVISOR"},
	}

	e := echo.New()
	var gotID, gotOrg string
	var gotRoles []string
	h := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(func(c echo.Context) error {
		ctx := c.Request().Context()
		gotID = UserIDFromContext(ctx)
		gotOrg = OrganizationFromContext(ctx)
		gotRoles = RolesFromContext(ctx)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if gotID != "user-1" || gotOrg != "org-1" {
		t.Errorf("identity = (%q, %q)", gotID, gotOrg)
	}
	if !reflect.DeepEqual(gotRoles, []string{"CLINICIAN", "SUPERVISOR"}) {
		t.Errorf("roles = %v", gotRoles)
	}
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	e := echo.New()
	h := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	e := echo.New()
	h := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	err := h(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		have     []string
		required []string
		allowed  bool
	}{
		{"exact match", []string{"CLINICIAN"}, []string{"CLINICIAN"}, true},
		{"one of several", []string{"BILLING_STAFF"}, []string{"ADMINISTRATOR", "BILLING_STAFF"}, true},
		{"super admin bypass", []string{"SUPER_ADMIN"}, []string{"CLINICIAN"}, true},
		{"no match", []string{"FRONT_DESK"}, []string{"CLINICIAN"}, false},
		{"no roles", nil, []string{"CLINICIAN"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			h := RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c := e.NewContext(req, httptest.NewRecorder())
			ctx := c.Request().Context()
			if tt.have != nil {
				c.SetRequest(c.Request().WithContext(
					contextWithRoles(ctx, tt.have)))
			}
			err := h(c)
			if tt.allowed && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allowed {
				he, ok := err.(*echo.HTTPError)
				if !ok || he.Code != http.StatusForbidden {
					t.Errorf("want 403, got %v", err)
				}
			}
		})
	}
}
