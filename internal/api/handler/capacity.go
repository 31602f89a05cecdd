package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
	"github.com/packdesk/packdesk/internal/capacity"
)

type fleetResponse struct {
	TotalDemandHours          float64 `json:"totalDemandHours"`
	TotalCapacityHours        float64 `json:"totalCapacityHours"`
	OverallUtilizationPercent int     `json:"overallUtilizationPercent"`
	DemandRatioPercent        int     `json:"demandRatioPercent"`
	Assignments               int     `json:"assignments"`
	Unstaffed                 int     `json:"unstaffed"`
	ComputedAt                string  `json:"computedAt"`
}

type capacityRowResponse struct {
	AssignmentID           string  `json:"assignmentId"`
	ClientID               string  `json:"clientId"`
	TemplateName           string  `json:"templateName"`
	TotalHoursRequired     float64 `json:"totalHoursRequired"`
	CapacityHours          float64 `json:"capacityHours"`
	TeamUtilizationPercent int     `json:"teamUtilizationPercent"`
	Severity               string  `json:"severity"`
	Unstaffed              bool    `json:"unstaffed"`
}

type capacitySnapshotResponse struct {
	Fleet fleetResponse         `json:"fleet"`
	Rows  []capacityRowResponse `json:"rows"`
}

// CapacityHandler serves the fleet capacity snapshot and its xlsx export.
type CapacityHandler struct {
	refresher *capacity.Refresher
}

// NewCapacityHandler creates a new CapacityHandler.
func NewCapacityHandler(refresher *capacity.Refresher) *CapacityHandler {
	return &CapacityHandler{refresher: refresher}
}

// Get handles GET /capacity.
func (h *CapacityHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	snap := h.refresher.Snapshot()

	resp := capacitySnapshotResponse{
		Fleet: fleetResponse{
			TotalDemandHours:          snap.Fleet.TotalDemandHours,
			TotalCapacityHours:        snap.Fleet.TotalCapacityHours,
			OverallUtilizationPercent: snap.Fleet.OverallUtilizationPercent,
			DemandRatioPercent:        snap.Fleet.DemandRatioPercent,
			Assignments:               snap.Fleet.Assignments,
			Unstaffed:                 snap.Fleet.Unstaffed,
			ComputedAt:                snap.Fleet.ComputedAt.UTC().Format(time.RFC3339),
		},
		Rows: make([]capacityRowResponse, 0, len(snap.Rows)),
	}
	for _, row := range snap.Rows {
		resp.Rows = append(resp.Rows, capacityRowResponse{
			AssignmentID:           row.AssignmentID.String(),
			ClientID:               row.ClientID.String(),
			TemplateName:           row.TemplateName,
			TotalHoursRequired:     row.Workload.TotalHoursRequired,
			CapacityHours:          row.Workload.CapacityHours,
			TeamUtilizationPercent: row.Workload.TeamUtilizationPercent,
			Severity:               string(row.Severity),
			Unstaffed:              row.Workload.Unstaffed,
		})
	}

	response.Success(w, http.StatusOK, resp, requestID)
}

// Refresh handles POST /capacity/refresh, forcing an immediate recompute.
func (h *CapacityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.refresher.Refresh(r.Context())
	h.Get(w, r)
}

// Report handles GET /capacity/report, streaming the snapshot as xlsx.
func (h *CapacityHandler) Report(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	snap := h.refresher.Snapshot()

	filename := fmt.Sprintf("capacity-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := capacity.WriteReport(w, snap); err != nil {
		slog.Error("failed to write capacity report", "error", err, "requestId", requestID)
	}
}
