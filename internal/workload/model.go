package workload

import (
	"math"

	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/packages"
)

// TeamMember is one staffed member on an assignment, as supplied by the
// team-management collaborator. CurrentLoadPercent is informational; fleet
// capacity math uses the standard per-member figure, not this field.
type TeamMember struct {
	MemberID           uuid.UUID
	Role               string
	CurrentLoadPercent int
	Recommended        bool
}

// AssignmentContext is the allocator input: the client's package
// allocations plus the team assigned to them. It is supplied by
// collaborators and never persisted here.
type AssignmentContext struct {
	ClientID     uuid.UUID
	AssignmentID uuid.UUID
	Allocations  []packages.Allocation
	Members      []TeamMember
}

// BreakdownLine is one deliverable line of a computed workload, in the
// same order as the input allocations.
type BreakdownLine struct {
	DeliverableType string
	Quantity        int
	HoursPerUnit    float64
	TotalHours      float64
}

// Workload is the derived demand and utilization figures for one staffed
// assignment. Recomputed on demand; nothing here is stored.
type Workload struct {
	AssignmentID           uuid.UUID
	TotalCreativeUnits     int
	TotalHoursRequired     float64
	CapacityHours          float64
	TeamUtilizationPercent int
	Unstaffed              bool
	Breakdown              []BreakdownLine
}

// TotalHoursDisplay returns the display convention for summed hours: the
// fractional value floored to whole hours. The fractional value itself is
// what aggregation consumes.
func (w *Workload) TotalHoursDisplay() int {
	return int(math.Floor(w.TotalHoursRequired))
}

// Severity bands a utilization percent for alerting callers.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityHealthy  Severity = "healthy"
)

// SeverityFor returns the band for a utilization percent: critical above
// 80, warning for 61 through 80, healthy at 60 and below.
func SeverityFor(utilizationPercent int) Severity {
	switch {
	case utilizationPercent > 80:
		return SeverityCritical
	case utilizationPercent > 60:
		return SeverityWarning
	default:
		return SeverityHealthy
	}
}
