package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/quota"
)

type memoryAssignmentRepository struct {
	assignments map[uuid.UUID]*Assignment
	createErr   error
}

func newMemoryAssignmentRepository() *memoryAssignmentRepository {
	return &memoryAssignmentRepository{assignments: make(map[uuid.UUID]*Assignment)}
}

func (m *memoryAssignmentRepository) Create(_ context.Context, a *Assignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.assignments {
		if existing.ClientID == a.ClientID && existing.Status == StatusActive {
			return ErrClientHasActiveAssignment
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *memoryAssignmentRepository) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAssignmentRepository) GetActiveByClient(_ context.Context, clientID uuid.UUID) (*Assignment, error) {
	for _, a := range m.assignments {
		if a.ClientID == clientID && a.Status == StatusActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNoActiveAssignment
}

func (m *memoryAssignmentRepository) ListActive(_ context.Context) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.assignments {
		if a.Status == StatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryAssignmentRepository) ExpireActive(_ context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	for _, a := range m.assignments {
		if a.ClientID == clientID && a.Status == StatusActive {
			a.Status = StatusExpired
			return a.ID, nil
		}
	}
	return uuid.Nil, ErrNoActiveAssignment
}

func (m *memoryAssignmentRepository) Update(_ context.Context, id uuid.UUID, fields UpdateFields) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	if fields.Status != nil {
		a.Status = *fields.Status
	}
	if fields.Notes != nil {
		a.Notes = *fields.Notes
	}
	cp := *a
	return &cp, nil
}

type stubTemplateRepository struct {
	templates map[uuid.UUID]*packages.Template
}

func (s *stubTemplateRepository) Create(context.Context, *packages.Template) error { return nil }
func (s *stubTemplateRepository) List(context.Context) ([]packages.Template, error) {
	return nil, nil
}
func (s *stubTemplateRepository) Update(context.Context, uuid.UUID, packages.UpdateFields) (*packages.Template, error) {
	return nil, nil
}
func (s *stubTemplateRepository) Delete(context.Context, uuid.UUID) error { return nil }

func (s *stubTemplateRepository) GetByID(_ context.Context, id uuid.UUID) (*packages.Template, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, packages.ErrTemplateNotFound
	}
	return t, nil
}

type stubUsageInitializer struct {
	initialized []uuid.UUID
	err         error
}

func (s *stubUsageInitializer) InitializeUsage(_ context.Context, assignmentID uuid.UUID, _ *packages.Template) error {
	if s.err != nil {
		return s.err
	}
	s.initialized = append(s.initialized, assignmentID)
	return nil
}

func newTestService() (*Service, *memoryAssignmentRepository, *stubUsageInitializer, *packages.Template) {
	repo := newMemoryAssignmentRepository()
	tmpl := &packages.Template{
		ID:   uuid.New(),
		Name: "Growth",
		Allocations: []packages.Allocation{
			{DeliverableType: "static_post", TotalAllocated: 10, WarningThreshold: 20},
		},
	}
	templates := &stubTemplateRepository{templates: map[uuid.UUID]*packages.Template{tmpl.ID: tmpl}}
	usage := &stubUsageInitializer{}
	return NewService(repo, templates, usage), repo, usage, tmpl
}

func TestAssignFirstPackage(t *testing.T) {
	svc, _, usage, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	a, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, clientID, a.ClientID)
	require.Len(t, usage.initialized, 1)
	assert.Equal(t, a.ID, usage.initialized[0])
}

func TestAssignExpiresPriorActive(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	first, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)

	second, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, old.Status)

	active, err := repo.GetActiveByClient(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestAssignUnknownTemplate(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Assign(context.Background(), uuid.New(), uuid.New(), Meta{})
	assert.ErrorIs(t, err, packages.ErrTemplateNotFound)
}

func TestAssignPartialFailure(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	first, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)

	// Creation of the replacement fails after the expire step.
	repo.createErr = errors.New("connection reset")
	_, err = svc.Assign(ctx, clientID, tmpl.ID, Meta{})

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, clientID, partial.ClientID)
	assert.Equal(t, first.ID, partial.ExpiredAssignmentID)

	// The prior assignment stays expired; the client has no active one.
	old, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, old.Status)
	_, err = repo.GetActiveByClient(ctx, clientID)
	assert.ErrorIs(t, err, ErrNoActiveAssignment)
}

func TestAssignFirstPackageFailureIsNotPartial(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	repo.createErr = errors.New("connection reset")

	_, err := svc.Assign(context.Background(), uuid.New(), tmpl.ID, Meta{})
	require.Error(t, err)

	var partial *PartialFailureError
	assert.False(t, errors.As(err, &partial), "no expire happened, so the failure is plain")
}

func TestRetryAfterPartialFailure(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	_, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)

	repo.createErr = errors.New("connection reset")
	_, err = svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)

	// The outage clears; Retry completes only the creation step.
	repo.createErr = nil
	a, err := svc.Retry(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, a.Status)
}

func TestRetryRefusesWhenActiveExists(t *testing.T) {
	svc, _, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	_, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)

	_, err = svc.Retry(ctx, clientID, tmpl.ID, Meta{})
	assert.ErrorIs(t, err, ErrClientHasActiveAssignment)
}

func TestUsageInitializationFailureCompensates(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	failing := &stubUsageInitializer{err: errors.New("ledger unavailable")}
	svc.usage = failing

	_, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.Error(t, err)

	// The half-created assignment is expired so the client is back in the
	// state Retry expects.
	_, err = repo.GetActiveByClient(ctx, clientID)
	assert.ErrorIs(t, err, ErrNoActiveAssignment)
}

func TestUsageAlreadyInitializedTolerated(t *testing.T) {
	svc, _, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	svc.usage = &stubUsageInitializer{err: quota.ErrUsageAlreadyInitialized}

	a, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, a.Status)
}

func TestChangePackage(t *testing.T) {
	svc, repo, _, tmpl := newTestService()
	ctx := context.Background()
	clientID := uuid.New()

	first, err := svc.Assign(ctx, clientID, tmpl.ID, Meta{StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	changed, err := svc.ChangePackage(ctx, clientID, tmpl.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, changed.ID)
	assert.Equal(t, time.Now().UTC().Truncate(24*time.Hour), changed.StartDate.Truncate(24*time.Hour))

	old, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, old.Status)
}
