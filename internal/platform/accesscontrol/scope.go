package accesscontrol

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Scope is a computed row-level restriction for a list query. Exactly one
// shape applies:
//
//   - Unrestricted: no filter at all (super admin).
//   - OrganizationID set: every record in the caller's organization.
//   - Otherwise ownership: records whose owner column matches OwnerID or
//     whose client column falls in ClientIDs. A nil OwnerID with an empty
//     ClientIDs set matches nothing, which is the deny-by-default posture.
//
// A Scope is applied by appending conditions to a WHERE clause under
// construction; it never rewrites or removes the caller's own predicates.
type Scope struct {
	Unrestricted   bool
	OrganizationID string
	OwnerID        uuid.UUID
	ClientIDs      []uuid.UUID
}

// ScopeColumns names the columns a Scope binds to for a particular table.
// Leave a column empty when the table has no such column.
type ScopeColumns struct {
	Organization string
	Owner        string
	Client       string
}

// Apply appends the scope's conditions to conds/args, starting placeholders
// at idx. Returns the extended slices and the next placeholder index.
func (s Scope) Apply(conds []string, args []any, idx int, cols ScopeColumns) ([]string, []any, int) {
	if s.Unrestricted {
		return conds, args, idx
	}

	if s.OrganizationID != "" && cols.Organization != "" {
		conds = append(conds, fmt.Sprintf("%s = $%d", cols.Organization, idx))
		args = append(args, s.OrganizationID)
		return conds, args, idx + 1
	}

	var parts []string
	if s.OwnerID != uuid.Nil && cols.Owner != "" {
		parts = append(parts, fmt.Sprintf("%s = $%d", cols.Owner, idx))
		args = append(args, s.OwnerID)
		idx++
	}
	if s.ClientIDs != nil && cols.Client != "" {
		parts = append(parts, fmt.Sprintf("%s = ANY($%d)", cols.Client, idx))
		args = append(args, s.ClientIDs)
		idx++
	}

	if len(parts) == 0 {
		conds = append(conds, "FALSE")
		return conds, args, idx
	}

	conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	return conds, args, idx
}

// Allows reports whether a record with the given owner and client IDs
// falls inside the scope. Used by single-record checks so list scoping and
// record assertion cannot drift apart.
func (s Scope) Allows(organizationID string, ownerID, clientID uuid.UUID) bool {
	if s.Unrestricted {
		return true
	}
	if s.OrganizationID != "" {
		return organizationID == s.OrganizationID
	}
	if s.OwnerID != uuid.Nil && ownerID == s.OwnerID {
		return true
	}
	for _, id := range s.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}
