package quota

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is the used-vs-allocated counter for one deliverable type
// under one assignment. Used may legitimately exceed Total after
// administrative overrides; Remaining is clamped for display only.
type UsageRecord struct {
	AssignmentID     uuid.UUID
	DeliverableType  string
	Used             int
	Total            int
	WarningThreshold int
	UpdatedAt        time.Time
}

// Remaining returns the displayable remaining quota, clamped at zero.
func (u *UsageRecord) Remaining() int {
	if r := u.Total - u.Used; r > 0 {
		return r
	}
	return 0
}

// EventStatus is the lifecycle state of a deduction event.
type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusConfirmed EventStatus = "confirmed"
	StatusCancelled EventStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s EventStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// DeductionEvent is a request to consume quota. Only pending events are
// mutable; confirming one increments the matching usage record, cancelling
// touches nothing.
type DeductionEvent struct {
	ID              uuid.UUID
	AssignmentID    uuid.UUID
	DeliverableType string
	Quantity        int
	Status          EventStatus
	RequestedBy     string
	RequestedAt     time.Time
	ResolvedAt      *time.Time
}

// OverrideField selects which counter an administrative override writes.
type OverrideField string

const (
	FieldUsed  OverrideField = "used"
	FieldTotal OverrideField = "total"
)

// Valid reports whether the field names a writable counter.
func (f OverrideField) Valid() bool {
	return f == FieldUsed || f == FieldTotal
}

// UsageStatus is the read model returned to reporting callers: the raw
// counters plus the derived display figures.
type UsageStatus struct {
	UsageRecord
	RemainingDisplay int
	PercentUsed      int
	Low              bool
	Depleted         bool
}

// NewUsageStatus derives the display figures for a usage record.
func NewUsageStatus(u UsageRecord) UsageStatus {
	return UsageStatus{
		UsageRecord:      u,
		RemainingDisplay: u.Remaining(),
		PercentUsed:      PercentUsed(u.Used, u.Total),
		Low:              IsLowUsage(u.Used, u.Total, u.WarningThreshold),
		Depleted:         IsDepleted(u.Used, u.Total),
	}
}
