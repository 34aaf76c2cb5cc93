package accesscontrol

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
	"github.com/mentalspace/practice-api/internal/platform/auth"
)

// Caller is the authorization identity of an inbound request. Roles are
// already normalized to a set; the auth layer folds the legacy singular
// role claim and the plural roles claim together before the Caller is
// built, so every check here operates on one representation.
type Caller struct {
	ID             uuid.UUID
	OrganizationID string
	Roles          []string
}

// CallerFromContext builds a Caller from the authenticated request context.
// Returns Unauthorized when no identity is present.
func CallerFromContext(ctx context.Context) (Caller, error) {
	rawID := auth.UserIDFromContext(ctx)
	if rawID == "" {
		return Caller{}, apperror.Unauthorized("authentication required")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Caller{}, apperror.Unauthorized("authentication required")
	}
	return Caller{
		ID:             id,
		OrganizationID: auth.OrganizationFromContext(ctx),
		Roles:          auth.RolesFromContext(ctx),
	}, nil
}

func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Caller) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

func (c Caller) IsSuperAdmin() bool { return c.HasRole(RoleSuperAdmin) }

func (c Caller) IsAdministrator() bool { return c.HasAnyRole(adminRoles) }

func (c Caller) IsSupervisor() bool { return c.HasRole(RoleSupervisor) }

func (c Caller) IsClinicalDirector() bool { return c.HasRole(RoleClinicalDirector) }

func (c Caller) IsClinicalStaff() bool { return c.HasAnyRole(clinicalRoles) }

func (c Caller) IsBillingStaff() bool { return c.HasAnyRole(billingRoles) }

func (c Caller) IsFrontDesk() bool { return c.HasAnyRole(frontDeskRoles) }

func (c Caller) HasSchedulingAccess() bool { return c.HasAnyRole(schedulingRoles) }
