package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/packages"
)

// assignRequest is the request body for POST /clients/{clientID}/assignments.
type assignRequest struct {
	TemplateID       string   `json:"templateId"`
	StartDate        string   `json:"startDate"`
	RenewalDate      *string  `json:"renewalDate"`
	CustomMonthlyFee *float64 `json:"customMonthlyFee"`
	Notes            string   `json:"notes"`
}

type assignmentResponse struct {
	ID               string   `json:"id"`
	ClientID         string   `json:"clientId"`
	TemplateID       string   `json:"templateId"`
	StartDate        string   `json:"startDate"`
	RenewalDate      *string  `json:"renewalDate,omitempty"`
	CustomMonthlyFee *float64 `json:"customMonthlyFee,omitempty"`
	Notes            string   `json:"notes"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
}

func toAssignmentResponse(a *assignment.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:               a.ID.String(),
		ClientID:         a.ClientID.String(),
		TemplateID:       a.TemplateID.String(),
		StartDate:        a.StartDate.UTC().Format("2006-01-02"),
		CustomMonthlyFee: a.CustomMonthlyFee,
		Notes:            a.Notes,
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if a.RenewalDate != nil {
		s := a.RenewalDate.UTC().Format("2006-01-02")
		resp.RenewalDate = &s
	}
	return resp
}

// AssignmentHandler handles assignment lifecycle endpoints.
type AssignmentHandler struct {
	svc *assignment.Service
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(svc *assignment.Service) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

func (h *AssignmentHandler) parseAssignRequest(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, assignment.Meta, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return uuid.Nil, assignment.Meta{}, false
	}

	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "templateId must be a valid UUID", requestID)
		return uuid.Nil, assignment.Meta{}, false
	}

	meta := assignment.Meta{
		CustomMonthlyFee: req.CustomMonthlyFee,
		Notes:            req.Notes,
	}
	if req.StartDate != "" {
		meta.StartDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_DATE", "startDate must be YYYY-MM-DD", requestID)
			return uuid.Nil, assignment.Meta{}, false
		}
	}
	if req.RenewalDate != nil {
		renewal, err := time.Parse("2006-01-02", *req.RenewalDate)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_DATE", "renewalDate must be YYYY-MM-DD", requestID)
			return uuid.Nil, assignment.Meta{}, false
		}
		meta.RenewalDate = &renewal
	}

	return templateID, meta, true
}

func (h *AssignmentHandler) writeAssignError(w http.ResponseWriter, err error, requestID string) {
	var partial *assignment.PartialFailureError
	switch {
	case errors.As(err, &partial):
		response.ErrWithDetails(w, http.StatusBadGateway, "PARTIAL_ASSIGNMENT",
			"Prior assignment was expired but the new assignment could not be completed; retry the assignment",
			map[string]string{
				"clientId":            partial.ClientID.String(),
				"expiredAssignmentId": partial.ExpiredAssignmentID.String(),
			}, requestID)
	case errors.Is(err, packages.ErrTemplateNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Template not found", requestID)
	case errors.Is(err, assignment.ErrClientHasActiveAssignment):
		response.Err(w, http.StatusConflict, "ACTIVE_ASSIGNMENT_EXISTS", "Client already has an active assignment", requestID)
	default:
		slog.Error("failed to assign package", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to assign package", requestID)
	}
}

// Assign handles POST /clients/{clientID}/assignments.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "clientID must be a valid UUID", requestID)
		return
	}

	templateID, meta, ok := h.parseAssignRequest(w, r, requestID)
	if !ok {
		return
	}

	a, err := h.svc.Assign(r.Context(), clientID, templateID, meta)
	if err != nil {
		h.writeAssignError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAssignmentResponse(a), requestID)
}

// Retry handles POST /clients/{clientID}/assignments/retry, completing an
// assignment switch that previously failed part-way.
func (h *AssignmentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "clientID must be a valid UUID", requestID)
		return
	}

	templateID, meta, ok := h.parseAssignRequest(w, r, requestID)
	if !ok {
		return
	}

	a, err := h.svc.Retry(r.Context(), clientID, templateID, meta)
	if err != nil {
		h.writeAssignError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toAssignmentResponse(a), requestID)
}

// Change handles POST /clients/{clientID}/assignments/change.
func (h *AssignmentHandler) Change(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "clientID must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		TemplateID string `json:"templateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "templateId must be a valid UUID", requestID)
		return
	}

	a, err := h.svc.ChangePackage(r.Context(), clientID, templateID)
	if err != nil {
		h.writeAssignError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toAssignmentResponse(a), requestID)
}

// GetByID handles GET /assignments/{id}.
func (h *AssignmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	a, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, assignment.ErrAssignmentNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Assignment not found", requestID)
			return
		}
		slog.Error("failed to get assignment", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get assignment", requestID)
		return
	}

	response.Success(w, http.StatusOK, toAssignmentResponse(a), requestID)
}

// GetActive handles GET /clients/{clientID}/assignments/active.
func (h *AssignmentHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "clientID must be a valid UUID", requestID)
		return
	}

	a, err := h.svc.GetActiveByClient(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, assignment.ErrNoActiveAssignment) {
			response.Err(w, http.StatusNotFound, "NO_ACTIVE_ASSIGNMENT", "Client has no active assignment", requestID)
			return
		}
		slog.Error("failed to get active assignment", "error", err, "client", clientID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get active assignment", requestID)
		return
	}

	response.Success(w, http.StatusOK, toAssignmentResponse(a), requestID)
}
