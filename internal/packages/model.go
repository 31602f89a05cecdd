package packages

import (
	"time"

	"github.com/google/uuid"
)

// Template represents a row in the package_templates table together with
// its ordered deliverable allocations.
type Template struct {
	ID              uuid.UUID
	Name            string
	Tier            string
	PlanType        string
	Category        *string
	MonthlyFee      float64
	Currency        string
	PlatformCount   int
	CorrectionLimit int
	Features        []string
	Recommended     bool
	Allocations     []Allocation
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Allocation is one deliverable line of a template. Deliverable types are
// unique within a template; TotalAllocated becomes the usage record's
// total when the template is assigned to a client.
type Allocation struct {
	DeliverableType  string
	TotalAllocated   int
	UnitLabel        string
	WarningThreshold int
	AutoDeduction    bool
}

// DefaultWarningThreshold is applied to allocations created without one.
const DefaultWarningThreshold = 20

// UpdateFields holds optional fields for a partial template update.
// Nil fields are not updated. Allocations are replaced wholesale when set.
type UpdateFields struct {
	Tier            *string
	PlanType        *string
	Category        *string
	MonthlyFee      *float64
	Currency        *string
	PlatformCount   *int
	CorrectionLimit *int
	Features        *[]string
	Recommended     *bool
	Allocations     *[]Allocation
}
