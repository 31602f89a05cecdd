package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/capacity"
	"github.com/packdesk/packdesk/internal/catalog"
	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/workload"
)

type breakdownLineResponse struct {
	DeliverableType string  `json:"deliverableType"`
	Quantity        int     `json:"quantity"`
	HoursPerUnit    float64 `json:"hoursPerUnit"`
	TotalHours      float64 `json:"totalHours"`
}

type workloadResponse struct {
	AssignmentID           string                  `json:"assignmentId"`
	TotalCreativeUnits     int                     `json:"totalCreativeUnits"`
	TotalHoursRequired     int                     `json:"totalHoursRequired"`
	TotalHoursExact        float64                 `json:"totalHoursExact"`
	CapacityHours          float64                 `json:"capacityHours"`
	TeamUtilizationPercent int                     `json:"teamUtilizationPercent"`
	Severity               string                  `json:"severity"`
	Unstaffed              bool                    `json:"unstaffed"`
	Breakdown              []breakdownLineResponse `json:"breakdown"`
}

func toWorkloadResponse(w *workload.Workload) workloadResponse {
	resp := workloadResponse{
		AssignmentID:           w.AssignmentID.String(),
		TotalCreativeUnits:     w.TotalCreativeUnits,
		TotalHoursRequired:     w.TotalHoursDisplay(),
		TotalHoursExact:        w.TotalHoursRequired,
		CapacityHours:          w.CapacityHours,
		TeamUtilizationPercent: w.TeamUtilizationPercent,
		Severity:               string(workload.SeverityFor(w.TeamUtilizationPercent)),
		Unstaffed:              w.Unstaffed,
		Breakdown:              make([]breakdownLineResponse, 0, len(w.Breakdown)),
	}
	for _, line := range w.Breakdown {
		resp.Breakdown = append(resp.Breakdown, breakdownLineResponse{
			DeliverableType: line.DeliverableType,
			Quantity:        line.Quantity,
			HoursPerUnit:    line.HoursPerUnit,
			TotalHours:      line.TotalHours,
		})
	}
	return resp
}

// WorkloadHandler computes workload figures for assignments on demand.
type WorkloadHandler struct {
	assignments assignment.Repository
	templates   packages.Repository
	catalog     catalog.Repository
	teams       capacity.TeamSource
	allocator   *workload.Allocator
}

// NewWorkloadHandler creates a new WorkloadHandler.
func NewWorkloadHandler(
	assignments assignment.Repository,
	templates packages.Repository,
	cat catalog.Repository,
	teams capacity.TeamSource,
	allocator *workload.Allocator,
) *WorkloadHandler {
	if teams == nil {
		teams = capacity.NopTeamSource{}
	}
	return &WorkloadHandler{
		assignments: assignments,
		templates:   templates,
		catalog:     cat,
		teams:       teams,
		allocator:   allocator,
	}
}

// Get handles GET /assignments/{id}/workload. The team roster comes from
// the configured team source; without one the result is flagged unstaffed.
func (h *WorkloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	a, err := h.assignments.GetByID(r.Context(), assignmentID)
	if err != nil {
		if errors.Is(err, assignment.ErrAssignmentNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Assignment not found", requestID)
			return
		}
		slog.Error("failed to load assignment for workload", "error", err, "assignment", assignmentID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute workload", requestID)
		return
	}

	tmpl, err := h.templates.GetByID(r.Context(), a.TemplateID)
	if err != nil {
		slog.Error("failed to load template for workload", "error", err, "assignment", assignmentID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute workload", requestID)
		return
	}

	members, err := h.teams.MembersFor(r.Context(), assignmentID)
	if err != nil {
		slog.Warn("no team roster for workload", "assignment", assignmentID, "error", err)
		members = nil
	}

	h.compute(w, r, workload.AssignmentContext{
		ClientID:     a.ClientID,
		AssignmentID: a.ID,
		Allocations:  tmpl.Allocations,
		Members:      members,
	}, requestID)
}

// previewRequest is the request body for POST /workload/preview: an ad-hoc
// allocation mix and roster, computed without touching stored assignments.
type previewRequest struct {
	Allocations []struct {
		DeliverableType string `json:"deliverableType"`
		Quantity        int    `json:"quantity"`
	} `json:"allocations"`
	Members []struct {
		MemberID string `json:"memberId"`
		Role     string `json:"role"`
	} `json:"members"`
}

// Preview handles POST /workload/preview.
func (h *WorkloadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if len(req.Allocations) == 0 {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "allocations must not be empty", requestID)
		return
	}

	actx := workload.AssignmentContext{}
	for _, a := range req.Allocations {
		if a.Quantity <= 0 {
			response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "allocation quantity must be positive", requestID)
			return
		}
		actx.Allocations = append(actx.Allocations, packages.Allocation{
			DeliverableType: a.DeliverableType,
			TotalAllocated:  a.Quantity,
		})
	}
	for _, m := range req.Members {
		memberID, err := uuid.Parse(m.MemberID)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "memberId must be a valid UUID", requestID)
			return
		}
		actx.Members = append(actx.Members, workload.TeamMember{MemberID: memberID, Role: m.Role})
	}

	h.compute(w, r, actx, requestID)
}

func (h *WorkloadHandler) compute(w http.ResponseWriter, r *http.Request, actx workload.AssignmentContext, requestID string) {
	hours, err := catalog.Hours(r.Context(), h.catalog)
	if err != nil {
		slog.Error("failed to load hours table", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute workload", requestID)
		return
	}

	wl, err := h.allocator.Compute(actx, hours)
	if err != nil {
		if errors.Is(err, workload.ErrUnknownDeliverableType) {
			response.Err(w, http.StatusUnprocessableEntity, "UNKNOWN_DELIVERABLE_TYPE", err.Error(), requestID)
			return
		}
		slog.Error("workload computation failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute workload", requestID)
		return
	}

	response.Success(w, http.StatusOK, toWorkloadResponse(wl), requestID)
}
