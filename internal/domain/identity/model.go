// Package identity manages staff users: their roles, organization
// membership and supervision links.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/practice-api/internal/platform/accesscontrol"
	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// User is a staff member. Role is the legacy singular column kept for
// older clients; Roles is authoritative and always contains Role.
type User struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Roles          []string   `json:"roles"`
	SupervisorID   *uuid.UUID `json:"supervisorId,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

var knownRoles = map[string]bool{
	accesscontrol.RoleSuperAdmin:       true,
	accesscontrol.RoleAdministrator:    true,
	accesscontrol.RoleClinicalDirector: true,
	accesscontrol.RoleSupervisor:       true,
	accesscontrol.RoleClinician:        true,
	accesscontrol.RoleIntern:           true,
	accesscontrol.RoleBillingStaff:     true,
	accesscontrol.RoleOfficeManager:    true,
	accesscontrol.RoleFrontDesk:        true,
	accesscontrol.RoleScheduler:        true,
	accesscontrol.RoleReceptionist:     true,
}

// NormalizeRoles merges the legacy singular role into the role set,
// uppercases, deduplicates and validates. The first resulting role
// becomes the legacy column value.
func NormalizeRoles(role string, roles []string) (string, []string, error) {
	seen := map[string]bool{}
	var out []string
	for _, r := range append([]string{role}, roles...) {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		if !knownRoles[r] {
			return "", nil, apperror.BadRequest("unknown role %q", r)
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) == 0 {
		return "", nil, apperror.BadRequest("user requires at least one role")
	}
	return out[0], out, nil
}
