package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLowUsage(t *testing.T) {
	tests := []struct {
		name      string
		used      int
		total     int
		threshold int
		want      bool
	}{
		{"plenty remaining", 2, 10, 20, false},
		{"exactly at threshold", 8, 10, 20, false},
		{"below threshold", 9, 10, 20, true},
		{"depleted is also low", 10, 10, 20, true},
		{"zero total never low", 0, 0, 20, false},
		{"zero total with usage never low", 5, 0, 20, false},
		{"zero threshold never low", 9, 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLowUsage(tt.used, tt.total, tt.threshold))
		})
	}
}

func TestIsDepleted(t *testing.T) {
	assert.False(t, IsDepleted(9, 10))
	assert.True(t, IsDepleted(10, 10))
	assert.True(t, IsDepleted(11, 10))
	assert.True(t, IsDepleted(0, 0))
}

func TestPercentUsed(t *testing.T) {
	assert.Equal(t, 0, PercentUsed(0, 10))
	assert.Equal(t, 50, PercentUsed(5, 10))
	assert.Equal(t, 100, PercentUsed(10, 10))
	assert.Equal(t, 33, PercentUsed(1, 3))
	assert.Equal(t, 67, PercentUsed(2, 3))

	// Overrides can push used past total.
	assert.Equal(t, 120, PercentUsed(12, 10))

	// Zero total reports zero rather than dividing.
	assert.Equal(t, 0, PercentUsed(5, 0))
}

func TestUsageRecordRemaining(t *testing.T) {
	u := UsageRecord{Used: 3, Total: 10}
	assert.Equal(t, 7, u.Remaining())

	u.Used = 12
	assert.Equal(t, 0, u.Remaining(), "remaining is clamped at zero for display")
}

func TestNewUsageStatus(t *testing.T) {
	s := NewUsageStatus(UsageRecord{Used: 9, Total: 10, WarningThreshold: 20})
	assert.Equal(t, 1, s.RemainingDisplay)
	assert.Equal(t, 90, s.PercentUsed)
	assert.True(t, s.Low)
	assert.False(t, s.Depleted)
}

func TestEventStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
