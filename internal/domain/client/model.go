// Package client manages client (patient) records with row-level scope
// enforcement on every read path.
package client

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus is the engagement state of a client record.
type ClientStatus string

const (
	StatusActive     ClientStatus = "ACTIVE"
	StatusInactive   ClientStatus = "INACTIVE"
	StatusDischarged ClientStatus = "DISCHARGED"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDischarged:
		return true
	}
	return false
}

// Client is a person receiving care. Therapist IDs are uuid.Nil when
// unassigned.
type Client struct {
	ID                   uuid.UUID    `json:"id"`
	OrganizationID       string       `json:"organizationId"`
	FirstName            string       `json:"firstName"`
	LastName             string       `json:"lastName"`
	DateOfBirth          *time.Time   `json:"dateOfBirth,omitempty"`
	Email                string       `json:"email,omitempty"`
	Phone                string       `json:"phone,omitempty"`
	Status               ClientStatus `json:"status"`
	PrimaryTherapistID   uuid.UUID    `json:"primaryTherapistId,omitempty"`
	SecondaryTherapistID uuid.UUID    `json:"secondaryTherapistId,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}
