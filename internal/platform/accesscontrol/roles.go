// Package accesscontrol implements row-level access scoping over client,
// appointment, and clinical note records. It follows the minimum necessary
// principle: every caller sees the smallest record set their roles justify,
// and single-record checks reach the same allow/deny decision as the
// list-query scopes.
package accesscontrol

// Staff roles. A user may hold several at once, e.g. a supervising
// clinician carries both CLINICIAN and SUPERVISOR.
const (
	RoleSuperAdmin       = "SUPER_ADMIN"
	RoleAdministrator    = "ADMINISTRATOR"
	RoleClinicalDirector = "CLINICAL_DIRECTOR"
	RoleSupervisor       = "SUPERVISOR"
	RoleClinician        = "CLINICIAN"
	RoleIntern           = "INTERN"
	RoleBillingStaff     = "BILLING_STAFF"
	RoleOfficeManager    = "OFFICE_MANAGER"
	RoleFrontDesk        = "FRONT_DESK"
	RoleScheduler        = "SCHEDULER"
	RoleReceptionist     = "RECEPTIONIST"
)

var adminRoles = []string{RoleSuperAdmin, RoleAdministrator}

var clinicalRoles = []string{RoleClinicalDirector, RoleSupervisor, RoleClinician, RoleIntern}

var billingRoles = []string{RoleBillingStaff, RoleOfficeManager}

var frontDeskRoles = []string{RoleFrontDesk, RoleScheduler, RoleReceptionist}

// schedulingRoles covers everyone allowed to work the calendar: front desk
// plus clinical and admin tiers.
var schedulingRoles = append(append(append([]string{}, frontDeskRoles...), clinicalRoles...), adminRoles...)
