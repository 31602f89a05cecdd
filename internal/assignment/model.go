package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a client package assignment.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusPaused  Status = "paused"
)

// Valid reports whether s names a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusExpired || s == StatusPaused
}

// Assignment binds one package template to one client for a period. At
// most one assignment per client is active at a time; activating a new one
// expires the prior active assignment.
type Assignment struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	TemplateID       uuid.UUID
	StartDate        time.Time
	RenewalDate      *time.Time
	CustomMonthlyFee *float64
	Notes            string
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Meta carries the optional attributes of a new assignment.
type Meta struct {
	StartDate        time.Time
	RenewalDate      *time.Time
	CustomMonthlyFee *float64
	Notes            string
}

// UpdateFields holds optional fields for a partial assignment update.
// Nil fields are not updated.
type UpdateFields struct {
	RenewalDate      *time.Time
	CustomMonthlyFee *float64
	Notes            *string
	Status           *Status
}
