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
	"github.com/packdesk/packdesk/internal/api/validation"
	"github.com/packdesk/packdesk/internal/quota"
)

// deductionRequest is the request body for POST /assignments/{id}/deductions.
type deductionRequest struct {
	DeliverableType string `json:"deliverableType"`
	Quantity        int    `json:"quantity"`
	RequestedBy     string `json:"requestedBy"`
}

// overrideRequest is the request body for PUT /assignments/{id}/usage/{type}.
type overrideRequest struct {
	Field string `json:"field"`
	Value int    `json:"value"`
}

type usageStatusResponse struct {
	DeliverableType  string `json:"deliverableType"`
	Used             int    `json:"used"`
	Total            int    `json:"total"`
	Remaining        int    `json:"remaining"`
	PercentUsed      int    `json:"percentUsed"`
	WarningThreshold int    `json:"warningThreshold"`
	IsLowUsage       bool   `json:"isLowUsage"`
	IsDepleted       bool   `json:"isDepleted"`
}

func toUsageStatusResponse(s quota.UsageStatus) usageStatusResponse {
	return usageStatusResponse{
		DeliverableType:  s.DeliverableType,
		Used:             s.Used,
		Total:            s.Total,
		Remaining:        s.RemainingDisplay,
		PercentUsed:      s.PercentUsed,
		WarningThreshold: s.WarningThreshold,
		IsLowUsage:       s.Low,
		IsDepleted:       s.Depleted,
	}
}

type deductionEventResponse struct {
	ID              string  `json:"id"`
	AssignmentID    string  `json:"assignmentId"`
	DeliverableType string  `json:"deliverableType"`
	Quantity        int     `json:"quantity"`
	Status          string  `json:"status"`
	RequestedBy     string  `json:"requestedBy"`
	RequestedAt     string  `json:"requestedAt"`
	ResolvedAt      *string `json:"resolvedAt,omitempty"`
}

func toDeductionEventResponse(ev *quota.DeductionEvent) deductionEventResponse {
	resp := deductionEventResponse{
		ID:              ev.ID.String(),
		AssignmentID:    ev.AssignmentID.String(),
		DeliverableType: ev.DeliverableType,
		Quantity:        ev.Quantity,
		Status:          string(ev.Status),
		RequestedBy:     ev.RequestedBy,
		RequestedAt:     ev.RequestedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if ev.ResolvedAt != nil {
		s := ev.ResolvedAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.ResolvedAt = &s
	}
	return resp
}

// QuotaHandler handles usage status, deduction events, and overrides.
type QuotaHandler struct {
	svc *quota.Service
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(svc *quota.Service) *QuotaHandler {
	return &QuotaHandler{svc: svc}
}

// GetUsage handles GET /assignments/{id}/usage.
func (h *QuotaHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	statuses, err := h.svc.GetUsageStatus(r.Context(), assignmentID)
	if err != nil {
		slog.Error("failed to get usage status", "error", err, "assignment", assignmentID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get usage status", requestID)
		return
	}

	items := make([]usageStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, toUsageStatusResponse(s))
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// RequestDeduction handles POST /assignments/{id}/deductions.
func (h *QuotaHandler) RequestDeduction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req deductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateDeductionRequest(validation.DeductionRequest{
		DeliverableType: req.DeliverableType,
		Quantity:        req.Quantity,
		RequestedBy:     req.RequestedBy,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	ev, err := h.svc.RequestDeduction(r.Context(), assignmentID, req.DeliverableType, req.Quantity, req.RequestedBy)
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrUsageRecordNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "No usage record for this assignment and deliverable type", requestID)
		case errors.Is(err, quota.ErrInvalidQuantity):
			response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be positive", requestID)
		default:
			slog.Error("failed to request deduction", "error", err, "assignment", assignmentID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to request deduction", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toDeductionEventResponse(ev), requestID)
}

// ConfirmDeduction handles POST /deductions/{id}/confirm.
func (h *QuotaHandler) ConfirmDeduction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	ev, err := h.svc.ConfirmDeduction(r.Context(), eventID)
	if err != nil {
		h.writeEventError(w, err, requestID, "Failed to confirm deduction")
		return
	}

	response.Success(w, http.StatusOK, toDeductionEventResponse(ev), requestID)
}

// CancelDeduction handles POST /deductions/{id}/cancel.
func (h *QuotaHandler) CancelDeduction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	ev, err := h.svc.CancelDeduction(r.Context(), eventID)
	if err != nil {
		h.writeEventError(w, err, requestID, "Failed to cancel deduction")
		return
	}

	response.Success(w, http.StatusOK, toDeductionEventResponse(ev), requestID)
}

// GetEvent handles GET /deductions/{id}.
func (h *QuotaHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	ev, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		h.writeEventError(w, err, requestID, "Failed to get deduction event")
		return
	}

	response.Success(w, http.StatusOK, toDeductionEventResponse(ev), requestID)
}

func (h *QuotaHandler) writeEventError(w http.ResponseWriter, err error, requestID, fallback string) {
	switch {
	case errors.Is(err, quota.ErrEventNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Deduction event not found", requestID)
	case errors.Is(err, quota.ErrUsageRecordNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "No usage record for this assignment and deliverable type", requestID)
	case errors.Is(err, quota.ErrQuotaDepleted):
		response.Err(w, http.StatusConflict, "QUOTA_DEPLETED", "Quota for this deliverable type is depleted", requestID)
	case errors.Is(err, quota.ErrInvalidEventState):
		response.Err(w, http.StatusConflict, "INVALID_EVENT_STATE", "Event is not in a state that allows this transition", requestID)
	default:
		slog.Error("deduction event operation failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
	}
}

// OverrideUsage handles PUT /assignments/{id}/usage/{type}.
func (h *QuotaHandler) OverrideUsage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	assignmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}
	deliverableType := chi.URLParam(r, "type")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateOverrideRequest(validation.OverrideRequest{
		Field: req.Field,
		Value: req.Value,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	u, err := h.svc.OverrideUsage(r.Context(), assignmentID, deliverableType, quota.OverrideField(req.Field), req.Value)
	if err != nil {
		if errors.Is(err, quota.ErrUsageRecordNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "No usage record for this assignment and deliverable type", requestID)
			return
		}
		slog.Error("failed to override usage", "error", err, "assignment", assignmentID, "type", deliverableType)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to override usage", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUsageStatusResponse(quota.NewUsageStatus(*u)), requestID)
}
