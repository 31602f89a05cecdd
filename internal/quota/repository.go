package quota

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUsageAlreadyInitialized is returned when usage rows already exist for
// an assignment being initialized.
var ErrUsageAlreadyInitialized = errors.New("usage already initialized for assignment")

// ErrUsageRecordNotFound is returned when no usage record exists for the
// requested assignment and deliverable type.
var ErrUsageRecordNotFound = errors.New("usage record not found")

// ErrEventNotFound is returned when a deduction event is not found.
var ErrEventNotFound = errors.New("deduction event not found")

// ErrInvalidEventState is returned on an illegal event transition, such as
// confirming a cancelled event or confirming twice.
var ErrInvalidEventState = errors.New("invalid deduction event state")

// ErrQuotaDepleted is returned when a confirmation would consume quota
// that is no longer available. The event stays pending; escalation is the
// caller's decision.
var ErrQuotaDepleted = errors.New("quota depleted")

// ErrInvalidQuantity is returned when a deduction is requested with a
// non-positive quantity.
var ErrInvalidQuantity = errors.New("deduction quantity must be positive")

// ErrNegativeValue is returned when an override writes a negative value.
var ErrNegativeValue = errors.New("override value must not be negative")

// Repository is the persistence contract of the quota ledger. ConfirmEvent
// carries the full transition semantics so that every implementation keeps
// the increment atomic per usage record.
type Repository interface {
	// InitializeUsage inserts all usage rows for an assignment, failing
	// with ErrUsageAlreadyInitialized if any row exists for it.
	InitializeUsage(ctx context.Context, records []UsageRecord) error

	ListUsage(ctx context.Context, assignmentID uuid.UUID) ([]UsageRecord, error)
	GetUsage(ctx context.Context, assignmentID uuid.UUID, deliverableType string) (*UsageRecord, error)

	// CreateEvent records a pending deduction. Fails with
	// ErrUsageRecordNotFound when the target record does not exist.
	CreateEvent(ctx context.Context, ev *DeductionEvent) error

	GetEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error)

	// ConfirmEvent transitions pending -> confirmed and increments the
	// target record's used counter by the event quantity, atomically. A
	// depleted record refuses the confirmation with ErrQuotaDepleted and
	// leaves the event pending.
	ConfirmEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error)

	// CancelEvent transitions pending -> cancelled without touching the
	// ledger. Cancelling an already-cancelled event is a no-op returning
	// the terminal event.
	CancelEvent(ctx context.Context, id uuid.UUID) (*DeductionEvent, error)

	// OverrideUsage writes one counter directly, bypassing the event
	// workflow.
	OverrideUsage(ctx context.Context, assignmentID uuid.UUID, deliverableType string, field OverrideField, value int) (*UsageRecord, error)
}
