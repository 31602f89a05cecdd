package capacity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/catalog"
	"github.com/packdesk/packdesk/internal/metrics"
	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/workload"
)

// TeamSource supplies the team roster for an assignment. Team management
// is an external collaborator; the engine only consumes its output.
type TeamSource interface {
	MembersFor(ctx context.Context, assignmentID uuid.UUID) ([]workload.TeamMember, error)
}

// NopTeamSource reports every assignment as unstaffed. Used when no team
// collaborator is wired in; workloads still compute, flagged unstaffed.
type NopTeamSource struct{}

func (NopTeamSource) MembersFor(context.Context, uuid.UUID) ([]workload.TeamMember, error) {
	return nil, nil
}

// AssignmentRow is one assignment's contribution to the fleet snapshot.
type AssignmentRow struct {
	AssignmentID uuid.UUID
	ClientID     uuid.UUID
	TemplateName string
	Workload     workload.Workload
	Severity     workload.Severity
}

// Snapshot is the most recent fleet roll-up plus its per-assignment rows.
type Snapshot struct {
	Fleet Fleet
	Rows  []AssignmentRow
}

// Refresher periodically recomputes the fleet capacity snapshot from all
// active assignments. The engine itself never schedules work on behalf of
// callers; this loop is the external refresh trigger living in-process.
type Refresher struct {
	assignments assignment.Repository
	templates   packages.Repository
	catalog     catalog.Repository
	teams       TeamSource
	allocator   *workload.Allocator
	mtx         *metrics.Metrics
	interval    time.Duration

	mu   sync.RWMutex
	snap Snapshot
}

// NewRefresher creates a Refresher. Metrics may be nil.
func NewRefresher(
	assignments assignment.Repository,
	templates packages.Repository,
	cat catalog.Repository,
	teams TeamSource,
	allocator *workload.Allocator,
	mtx *metrics.Metrics,
	interval time.Duration,
) *Refresher {
	if teams == nil {
		teams = NopTeamSource{}
	}
	return &Refresher{
		assignments: assignments,
		templates:   templates,
		catalog:     cat,
		teams:       teams,
		allocator:   allocator,
		mtx:         mtx,
		interval:    interval,
	}
}

// Start begins the refresh loop. It blocks until ctx is cancelled. One
// refresh runs immediately so the snapshot is never empty at startup.
func (r *Refresher) Start(ctx context.Context) {
	slog.Info("capacity refresher started", "interval", r.interval.String())

	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("capacity refresher stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh recomputes the snapshot once. Individual assignment failures are
// logged and skipped so one bad row cannot blank the whole fleet view.
func (r *Refresher) Refresh(ctx context.Context) {
	active, err := r.assignments.ListActive(ctx)
	if err != nil {
		slog.Error("capacity refresh: failed to list active assignments", "error", err)
		return
	}

	hours, err := catalog.Hours(ctx, r.catalog)
	if err != nil {
		slog.Error("capacity refresh: failed to load hours table", "error", err)
		return
	}

	rows := make([]AssignmentRow, 0, len(active))
	workloads := make([]workload.Workload, 0, len(active))

	for _, a := range active {
		if ctx.Err() != nil {
			return
		}

		tmpl, err := r.templates.GetByID(ctx, a.TemplateID)
		if err != nil {
			slog.Warn("capacity refresh: skipping assignment", "assignment", a.ID, "error", err)
			continue
		}

		members, err := r.teams.MembersFor(ctx, a.ID)
		if err != nil {
			slog.Warn("capacity refresh: no team roster", "assignment", a.ID, "error", err)
			members = nil
		}

		w, err := r.allocator.Compute(workload.AssignmentContext{
			ClientID:     a.ClientID,
			AssignmentID: a.ID,
			Allocations:  tmpl.Allocations,
			Members:      members,
		}, hours)
		if err != nil {
			slog.Warn("capacity refresh: workload computation failed", "assignment", a.ID, "error", err)
			continue
		}

		rows = append(rows, AssignmentRow{
			AssignmentID: a.ID,
			ClientID:     a.ClientID,
			TemplateName: tmpl.Name,
			Workload:     *w,
			Severity:     workload.SeverityFor(w.TeamUtilizationPercent),
		})
		workloads = append(workloads, *w)
	}

	fleet := Aggregate(workloads)

	r.mu.Lock()
	r.snap = Snapshot{Fleet: fleet, Rows: rows}
	r.mu.Unlock()

	r.mtx.SetFleet(fleet.TotalDemandHours, fleet.TotalCapacityHours, fleet.OverallUtilizationPercent)
	slog.Debug("capacity snapshot refreshed",
		"assignments", fleet.Assignments,
		"demandHours", fleet.TotalDemandHours,
		"utilization", fleet.OverallUtilizationPercent,
	)
}

// Snapshot returns the most recent fleet snapshot.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
