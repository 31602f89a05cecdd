package capacity

import (
	"math"
	"time"

	"github.com/packdesk/packdesk/internal/workload"
)

// Fleet is the rolled-up demand and capacity picture across assignments.
//
// OverallUtilizationPercent is the unweighted mean of each assignment's
// own utilization percent, the figure the dashboard has always shown.
// DemandRatioPercent is total demand over total capacity; the two diverge
// when team sizes differ, so both are exposed under distinct names.
type Fleet struct {
	TotalDemandHours          float64
	TotalCapacityHours        float64
	OverallUtilizationPercent int
	DemandRatioPercent        int
	Assignments               int
	Unstaffed                 int
	ComputedAt                time.Time
}

// Aggregate rolls up per-assignment workloads into fleet figures.
func Aggregate(workloads []workload.Workload) Fleet {
	fleet := Fleet{
		Assignments: len(workloads),
		ComputedAt:  time.Now().UTC(),
	}

	var percentSum int
	for _, w := range workloads {
		fleet.TotalDemandHours += w.TotalHoursRequired
		fleet.TotalCapacityHours += w.CapacityHours
		percentSum += w.TeamUtilizationPercent
		if w.Unstaffed {
			fleet.Unstaffed++
		}
	}

	if len(workloads) > 0 {
		fleet.OverallUtilizationPercent = int(math.Round(float64(percentSum) / float64(len(workloads))))
	}
	if fleet.TotalCapacityHours > 0 {
		fleet.DemandRatioPercent = int(math.Round(fleet.TotalDemandHours / fleet.TotalCapacityHours * 100))
	}

	return fleet
}
