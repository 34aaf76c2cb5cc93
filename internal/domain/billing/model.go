// Package billing manages service charges. Access runs through the
// billing-tier path of the access resolver: billing staff and admins
// have full reach, clinicians only their own clients' ledgers.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// ChargeStatus tracks a charge through the revenue cycle.
type ChargeStatus string

const (
	StatusPending ChargeStatus = "PENDING"
	StatusBilled  ChargeStatus = "BILLED"
	StatusPaid    ChargeStatus = "PAID"
	StatusVoid    ChargeStatus = "VOID"
)

func (s ChargeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBilled, StatusPaid, StatusVoid:
		return true
	}
	return false
}

// Charge is a billable service line. Amounts are integer cents.
type Charge struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID string       `json:"organizationId"`
	ClientID       uuid.UUID    `json:"clientId"`
	AppointmentID  *uuid.UUID   `json:"appointmentId,omitempty"`
	AmountCents    int64        `json:"amountCents"`
	CPTCode        string       `json:"cptCode"`
	Status         ChargeStatus `json:"status"`
	CreatedBy      uuid.UUID    `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
