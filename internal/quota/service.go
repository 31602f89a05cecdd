package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/metrics"
	"github.com/packdesk/packdesk/internal/packages"
)

// Service is the quota ledger engine: it owns usage initialization, the
// deduction event workflow, and administrative overrides. It never retries
// or swallows ledger errors; escalation is the caller's decision.
type Service struct {
	repo Repository
	mtx  *metrics.Metrics
}

// NewService creates a ledger service. Metrics may be nil.
func NewService(repo Repository, mtx *metrics.Metrics) *Service {
	return &Service{repo: repo, mtx: mtx}
}

// InitializeUsage creates one usage record per template allocation, with
// used=0 and the allocation's total and warning threshold. Called exactly
// once per assignment; a second call fails with ErrUsageAlreadyInitialized.
func (s *Service) InitializeUsage(ctx context.Context, assignmentID uuid.UUID, tmpl *packages.Template) error {
	records := make([]UsageRecord, 0, len(tmpl.Allocations))
	for _, a := range tmpl.Allocations {
		records = append(records, UsageRecord{
			AssignmentID:     assignmentID,
			DeliverableType:  a.DeliverableType,
			Used:             0,
			Total:            a.TotalAllocated,
			WarningThreshold: a.WarningThreshold,
		})
	}

	if err := s.repo.InitializeUsage(ctx, records); err != nil {
		return fmt.Errorf("initializing usage for assignment %s: %w", assignmentID, err)
	}
	return nil
}

// RequestDeduction records a pending deduction event. It never mutates the
// used counter and is allowed even against a depleted record, so that
// over-quota work stays visible while escalation is resolved out of band.
func (s *Service) RequestDeduction(ctx context.Context, assignmentID uuid.UUID, deliverableType string, quantity int, requestedBy string) (*DeductionEvent, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	ev := &DeductionEvent{
		AssignmentID:    assignmentID,
		DeliverableType: deliverableType,
		Quantity:        quantity,
		RequestedBy:     requestedBy,
	}
	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}

	slog.Info("deduction requested",
		"assignment", assignmentID,
		"type", deliverableType,
		"quantity", quantity,
		"event", ev.ID,
	)
	return ev, nil
}

// ConfirmDeduction applies a pending event to the ledger. Depletion is
// re-checked at confirmation time; a refused event stays pending.
func (s *Service) ConfirmDeduction(ctx context.Context, eventID uuid.UUID) (*DeductionEvent, error) {
	ev, err := s.repo.ConfirmEvent(ctx, eventID)
	if err != nil {
		s.mtx.DeductionRejected(rejectionReason(err))
		return nil, err
	}

	s.mtx.DeductionConfirmed()
	slog.Info("deduction confirmed", "event", ev.ID, "assignment", ev.AssignmentID, "type", ev.DeliverableType)
	return ev, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrQuotaDepleted):
		return "depleted"
	case errors.Is(err, ErrInvalidEventState):
		return "invalid_state"
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrUsageRecordNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// CancelDeduction cancels a pending event. Idempotent on cancelled events.
func (s *Service) CancelDeduction(ctx context.Context, eventID uuid.UUID) (*DeductionEvent, error) {
	return s.repo.CancelEvent(ctx, eventID)
}

// GetEvent returns a deduction event by id.
func (s *Service) GetEvent(ctx context.Context, eventID uuid.UUID) (*DeductionEvent, error) {
	return s.repo.GetEvent(ctx, eventID)
}

// GetUsageStatus returns the usage read model for an assignment: one entry
// per deliverable type with derived remaining, percent-used, and the low
// and depleted flags.
func (s *Service) GetUsageStatus(ctx context.Context, assignmentID uuid.UUID) ([]UsageStatus, error) {
	records, err := s.repo.ListUsage(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	statuses := make([]UsageStatus, 0, len(records))
	for _, u := range records {
		statuses = append(statuses, NewUsageStatus(u))
	}
	return statuses, nil
}

// OverrideUsage writes a counter directly, bypassing the event workflow.
// The only rule enforced is value >= 0.
func (s *Service) OverrideUsage(ctx context.Context, assignmentID uuid.UUID, deliverableType string, field OverrideField, value int) (*UsageRecord, error) {
	u, err := s.repo.OverrideUsage(ctx, assignmentID, deliverableType, field, value)
	if err != nil {
		return nil, err
	}

	slog.Warn("usage overridden",
		"assignment", assignmentID,
		"type", deliverableType,
		"field", field,
		"value", value,
	)
	return u, nil
}
