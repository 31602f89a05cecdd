package workload

import (
	"errors"
	"fmt"
	"math"

	"github.com/packdesk/packdesk/internal/catalog"
)

// ErrUnknownDeliverableType is returned when an allocation references a
// type key missing from the hours table. Defaulting the hours would
// silently corrupt capacity math, so the computation fails instead.
var ErrUnknownDeliverableType = errors.New("unknown deliverable type in hours table")

// Allocator computes demand hours and team utilization for assignments.
// The per-member capacity is a coarse fleet-level policy figure, injected
// from configuration rather than derived from individual member fields.
type Allocator struct {
	capacityHoursPerMember float64
}

// DefaultCapacityHoursPerMember is the standard monthly capacity assumed
// per assigned team member.
const DefaultCapacityHoursPerMember = 160

// NewAllocator creates an Allocator with the given per-member monthly
// capacity. Non-positive values fall back to the default.
func NewAllocator(capacityHoursPerMember float64) *Allocator {
	if capacityHoursPerMember <= 0 {
		capacityHoursPerMember = DefaultCapacityHoursPerMember
	}
	return &Allocator{capacityHoursPerMember: capacityHoursPerMember}
}

// CapacityHoursPerMember returns the configured per-member capacity.
func (a *Allocator) CapacityHoursPerMember() float64 {
	return a.capacityHoursPerMember
}

// Compute derives the workload for one assignment. Per-line hours are
// rounded to one fractional digit; the summed total keeps its fractional
// value for aggregation. An unstaffed assignment reports 0% utilization
// with the Unstaffed flag set rather than failing.
func (a *Allocator) Compute(actx AssignmentContext, hours catalog.HoursTable) (*Workload, error) {
	w := &Workload{
		AssignmentID: actx.AssignmentID,
		Breakdown:    make([]BreakdownLine, 0, len(actx.Allocations)),
	}

	for _, alloc := range actx.Allocations {
		perUnit, ok := hours[alloc.DeliverableType]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDeliverableType, alloc.DeliverableType)
		}

		lineHours := round1(float64(alloc.TotalAllocated) * perUnit)
		w.Breakdown = append(w.Breakdown, BreakdownLine{
			DeliverableType: alloc.DeliverableType,
			Quantity:        alloc.TotalAllocated,
			HoursPerUnit:    perUnit,
			TotalHours:      lineHours,
		})

		w.TotalCreativeUnits += alloc.TotalAllocated
		w.TotalHoursRequired += lineHours
	}

	w.CapacityHours = float64(len(actx.Members)) * a.capacityHoursPerMember
	if w.CapacityHours == 0 {
		w.Unstaffed = true
		w.TeamUtilizationPercent = 0
		return w, nil
	}

	w.TeamUtilizationPercent = int(math.Round(w.TotalHoursRequired / w.CapacityHours * 100))
	return w, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
