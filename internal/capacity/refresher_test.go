package capacity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/catalog"
	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/workload"
)

type stubAssignmentRepository struct {
	active []assignment.Assignment
}

func (s *stubAssignmentRepository) Create(context.Context, *assignment.Assignment) error { return nil }
func (s *stubAssignmentRepository) GetByID(context.Context, uuid.UUID) (*assignment.Assignment, error) {
	return nil, assignment.ErrAssignmentNotFound
}
func (s *stubAssignmentRepository) GetActiveByClient(context.Context, uuid.UUID) (*assignment.Assignment, error) {
	return nil, assignment.ErrNoActiveAssignment
}
func (s *stubAssignmentRepository) ListActive(context.Context) ([]assignment.Assignment, error) {
	return s.active, nil
}
func (s *stubAssignmentRepository) ExpireActive(context.Context, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, assignment.ErrNoActiveAssignment
}
func (s *stubAssignmentRepository) Update(context.Context, uuid.UUID, assignment.UpdateFields) (*assignment.Assignment, error) {
	return nil, assignment.ErrAssignmentNotFound
}

type stubPackageRepository struct {
	templates map[uuid.UUID]*packages.Template
}

func (s *stubPackageRepository) Create(context.Context, *packages.Template) error { return nil }
func (s *stubPackageRepository) GetByID(_ context.Context, id uuid.UUID) (*packages.Template, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, packages.ErrTemplateNotFound
	}
	return t, nil
}
func (s *stubPackageRepository) List(context.Context) ([]packages.Template, error) { return nil, nil }
func (s *stubPackageRepository) Update(context.Context, uuid.UUID, packages.UpdateFields) (*packages.Template, error) {
	return nil, packages.ErrTemplateNotFound
}
func (s *stubPackageRepository) Delete(context.Context, uuid.UUID) error { return nil }

type stubCatalogRepository struct {
	types []catalog.DeliverableType
}

func (s *stubCatalogRepository) Create(context.Context, *catalog.DeliverableType) error { return nil }
func (s *stubCatalogRepository) GetByKey(context.Context, string) (*catalog.DeliverableType, error) {
	return nil, catalog.ErrTypeNotFound
}
func (s *stubCatalogRepository) List(context.Context) ([]catalog.DeliverableType, error) {
	return s.types, nil
}
func (s *stubCatalogRepository) Update(context.Context, string, catalog.UpdateFields) (*catalog.DeliverableType, error) {
	return nil, catalog.ErrTypeNotFound
}
func (s *stubCatalogRepository) Delete(context.Context, string) error { return nil }
func (s *stubCatalogRepository) CreateCategory(context.Context, *catalog.ServiceCategory) error {
	return nil
}
func (s *stubCatalogRepository) ListCategories(context.Context) ([]catalog.ServiceCategory, error) {
	return nil, nil
}

type staticTeamSource struct {
	members []workload.TeamMember
}

func (s staticTeamSource) MembersFor(context.Context, uuid.UUID) ([]workload.TeamMember, error) {
	return s.members, nil
}

func TestRefresh(t *testing.T) {
	tmpl := &packages.Template{
		ID:   uuid.New(),
		Name: "Growth",
		Allocations: []packages.Allocation{
			{DeliverableType: "static_post", TotalAllocated: 10},
			{DeliverableType: "video_reel", TotalAllocated: 4},
		},
	}

	assignments := &stubAssignmentRepository{active: []assignment.Assignment{
		{ID: uuid.New(), ClientID: uuid.New(), TemplateID: tmpl.ID, Status: assignment.StatusActive},
	}}
	templates := &stubPackageRepository{templates: map[uuid.UUID]*packages.Template{tmpl.ID: tmpl}}
	cat := &stubCatalogRepository{types: []catalog.DeliverableType{
		{TypeKey: "static_post", HoursPerUnit: 2},
		{TypeKey: "video_reel", HoursPerUnit: 5},
	}}
	teams := staticTeamSource{members: []workload.TeamMember{
		{MemberID: uuid.New(), Role: "designer"},
		{MemberID: uuid.New(), Role: "editor"},
	}}

	r := NewRefresher(assignments, templates, cat, teams, workload.NewAllocator(160), nil, 0)
	r.Refresh(context.Background())

	snap := r.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "Growth", snap.Rows[0].TemplateName)
	assert.Equal(t, workload.SeverityHealthy, snap.Rows[0].Severity)
	assert.InDelta(t, 40.0, snap.Fleet.TotalDemandHours, 0.001)
	assert.InDelta(t, 320.0, snap.Fleet.TotalCapacityHours, 0.001)
	assert.Equal(t, 13, snap.Fleet.OverallUtilizationPercent)
	assert.Equal(t, 1, snap.Fleet.Assignments)
	assert.Equal(t, 0, snap.Fleet.Unstaffed)
}

func TestRefreshSkipsBrokenAssignments(t *testing.T) {
	tmpl := &packages.Template{
		ID:   uuid.New(),
		Name: "Growth",
		Allocations: []packages.Allocation{
			{DeliverableType: "static_post", TotalAllocated: 10},
		},
	}

	assignments := &stubAssignmentRepository{active: []assignment.Assignment{
		{ID: uuid.New(), ClientID: uuid.New(), TemplateID: tmpl.ID, Status: assignment.StatusActive},
		// References a template the store no longer has.
		{ID: uuid.New(), ClientID: uuid.New(), TemplateID: uuid.New(), Status: assignment.StatusActive},
	}}
	templates := &stubPackageRepository{templates: map[uuid.UUID]*packages.Template{tmpl.ID: tmpl}}
	cat := &stubCatalogRepository{types: []catalog.DeliverableType{
		{TypeKey: "static_post", HoursPerUnit: 2},
	}}

	r := NewRefresher(assignments, templates, cat, nil, workload.NewAllocator(160), nil, 0)
	r.Refresh(context.Background())

	snap := r.Snapshot()
	require.Len(t, snap.Rows, 1, "the broken assignment is skipped, not fatal")
	assert.Equal(t, 1, snap.Fleet.Assignments)
	assert.Equal(t, 1, snap.Fleet.Unstaffed, "nil team source leaves assignments unstaffed")
}
