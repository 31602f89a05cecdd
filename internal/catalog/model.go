package catalog

import (
	"time"

	"github.com/google/uuid"
)

// DeliverableType represents a row in the deliverable_types table. The
// type key is the stable identity used by package allocations and usage
// records; HoursPerUnit only affects future workload computations, never
// stored hour totals.
type DeliverableType struct {
	TypeKey      string
	Label        string
	UnitLabel    string
	HoursPerUnit float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ServiceCategory groups deliverable types for presentation.
type ServiceCategory struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

// UpdateFields holds optional fields for a partial deliverable-type update.
// Nil fields are not updated.
type UpdateFields struct {
	Label        *string
	UnitLabel    *string
	HoursPerUnit *float64
}

// HoursTable maps deliverable type keys to hours-per-unit. It is the
// lookup input of the workload allocator.
type HoursTable map[string]float64
