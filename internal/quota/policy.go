package quota

import "math"

// IsLowUsage reports whether remaining quota has fallen below the warning
// threshold, expressed as a percent of the total. A record with total == 0
// is never low; the warning is not applicable to zero allocations.
func IsLowUsage(used, total, warningThreshold int) bool {
	if total <= 0 {
		return false
	}
	remaining := float64(total-used) / float64(total) * 100
	return remaining < float64(warningThreshold)
}

// IsDepleted reports whether the allocation is exhausted.
func IsDepleted(used, total int) bool {
	return total-used <= 0
}

// PercentUsed returns used/total as a percent rounded to the nearest
// integer, or 0 when total == 0.
func PercentUsed(used, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(total) * 100))
}
