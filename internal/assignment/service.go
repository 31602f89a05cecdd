package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/quota"
)

// UsageInitializer is the slice of the quota ledger the lifecycle needs.
type UsageInitializer interface {
	InitializeUsage(ctx context.Context, assignmentID uuid.UUID, tmpl *packages.Template) error
}

// Service implements the assignment lifecycle. Switching a client to a new
// package is a two-step sequence: expire the prior active assignment, then
// create the replacement and initialize its usage. The store has no
// transaction spanning both steps, so a failure after the expire step is
// surfaced as a PartialFailureError the caller can recover from with Retry.
type Service struct {
	repo      Repository
	templates packages.Repository
	usage     UsageInitializer
}

// NewService creates an assignment lifecycle service.
func NewService(repo Repository, templates packages.Repository, usage UsageInitializer) *Service {
	return &Service{repo: repo, templates: templates, usage: usage}
}

// Assign activates a package for a client. Any prior active assignment is
// expired first. On success the new assignment has one usage record per
// template allocation, all at used=0.
func (s *Service) Assign(ctx context.Context, clientID, templateID uuid.UUID, meta Meta) (*Assignment, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", templateID, err)
	}

	expiredID, err := s.repo.ExpireActive(ctx, clientID)
	switch {
	case err == nil:
		slog.Info("expired prior assignment", "client", clientID, "assignment", expiredID)
	case errors.Is(err, ErrNoActiveAssignment):
		// First package for this client.
	default:
		return nil, err
	}

	a, err := s.create(ctx, clientID, tmpl, meta)
	if err != nil {
		if expiredID != uuid.Nil {
			return nil, &PartialFailureError{
				ClientID:            clientID,
				ExpiredAssignmentID: expiredID,
				Err:                 err,
			}
		}
		return nil, err
	}
	return a, nil
}

// Retry completes the creation step after a PartialFailureError, without
// expiring anything. It refuses if the client somehow has an active
// assignment again.
func (s *Service) Retry(ctx context.Context, clientID, templateID uuid.UUID, meta Meta) (*Assignment, error) {
	tmpl, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", templateID, err)
	}

	if _, err := s.repo.GetActiveByClient(ctx, clientID); err == nil {
		return nil, ErrClientHasActiveAssignment
	} else if !errors.Is(err, ErrNoActiveAssignment) {
		return nil, err
	}

	return s.create(ctx, clientID, tmpl, meta)
}

// ChangePackage switches the client to a new template, keeping the start
// date at today.
func (s *Service) ChangePackage(ctx context.Context, clientID, newTemplateID uuid.UUID) (*Assignment, error) {
	return s.Assign(ctx, clientID, newTemplateID, Meta{StartDate: time.Now().UTC()})
}

func (s *Service) create(ctx context.Context, clientID uuid.UUID, tmpl *packages.Template, meta Meta) (*Assignment, error) {
	start := meta.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}

	a := &Assignment{
		ClientID:         clientID,
		TemplateID:       tmpl.ID,
		StartDate:        start,
		RenewalDate:      meta.RenewalDate,
		CustomMonthlyFee: meta.CustomMonthlyFee,
		Notes:            meta.Notes,
		Status:           StatusActive,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.usage.InitializeUsage(ctx, a.ID, tmpl); err != nil {
		// Duplicate usage rows mean a previous initialization already
		// completed; the assignment is usable as-is.
		if !errors.Is(err, quota.ErrUsageAlreadyInitialized) {
			// Best-effort compensation so the client is back in the
			// no-active state Retry expects.
			status := StatusExpired
			if _, uerr := s.repo.Update(ctx, a.ID, UpdateFields{Status: &status}); uerr != nil {
				slog.Error("failed to expire assignment after usage initialization failure",
					"assignment", a.ID, "error", uerr)
			}
			return nil, err
		}
	}

	slog.Info("package assigned", "client", clientID, "template", tmpl.ID, "assignment", a.ID)
	return a, nil
}

// GetByID returns an assignment by id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

// GetActiveByClient returns the client's active assignment.
func (s *Service) GetActiveByClient(ctx context.Context, clientID uuid.UUID) (*Assignment, error) {
	return s.repo.GetActiveByClient(ctx, clientID)
}
