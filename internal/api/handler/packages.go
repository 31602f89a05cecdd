package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
	"github.com/packdesk/packdesk/internal/api/validation"
	"github.com/packdesk/packdesk/internal/packages"
)

type allocationRequest struct {
	DeliverableType  string `json:"deliverableType"`
	TotalAllocated   int    `json:"totalAllocated"`
	UnitLabel        string `json:"unitLabel"`
	WarningThreshold int    `json:"warningThreshold"`
	AutoDeduction    bool   `json:"autoDeduction"`
}

// createTemplateRequest is the request body for POST /package-templates.
type createTemplateRequest struct {
	Name            string              `json:"name"`
	Tier            string              `json:"tier"`
	PlanType        string              `json:"planType"`
	Category        *string             `json:"category"`
	MonthlyFee      float64             `json:"monthlyFee"`
	Currency        string              `json:"currency"`
	PlatformCount   int                 `json:"platformCount"`
	CorrectionLimit int                 `json:"correctionLimit"`
	Features        []string            `json:"features"`
	Recommended     bool                `json:"recommended"`
	Allocations     []allocationRequest `json:"allocations"`
}

// updateTemplateRequest is the request body for PATCH /package-templates/{id}.
type updateTemplateRequest struct {
	Tier            *string              `json:"tier"`
	PlanType        *string              `json:"planType"`
	Category        *string              `json:"category"`
	MonthlyFee      *float64             `json:"monthlyFee"`
	Currency        *string              `json:"currency"`
	PlatformCount   *int                 `json:"platformCount"`
	CorrectionLimit *int                 `json:"correctionLimit"`
	Features        *[]string            `json:"features"`
	Recommended     *bool                `json:"recommended"`
	Allocations     *[]allocationRequest `json:"allocations"`
}

type allocationResponse struct {
	DeliverableType  string `json:"deliverableType"`
	TotalAllocated   int    `json:"totalAllocated"`
	UnitLabel        string `json:"unitLabel"`
	WarningThreshold int    `json:"warningThreshold"`
	AutoDeduction    bool   `json:"autoDeduction"`
}

type templateResponse struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Tier            string               `json:"tier"`
	PlanType        string               `json:"planType"`
	Category        *string              `json:"category,omitempty"`
	MonthlyFee      float64              `json:"monthlyFee"`
	Currency        string               `json:"currency"`
	PlatformCount   int                  `json:"platformCount"`
	CorrectionLimit int                  `json:"correctionLimit"`
	Features        []string             `json:"features"`
	Recommended     bool                 `json:"recommended"`
	Allocations     []allocationResponse `json:"allocations"`
	CreatedAt       string               `json:"createdAt"`
	UpdatedAt       string               `json:"updatedAt"`
}

func toTemplateResponse(t *packages.Template) templateResponse {
	allocs := make([]allocationResponse, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		allocs = append(allocs, allocationResponse{
			DeliverableType:  a.DeliverableType,
			TotalAllocated:   a.TotalAllocated,
			UnitLabel:        a.UnitLabel,
			WarningThreshold: a.WarningThreshold,
			AutoDeduction:    a.AutoDeduction,
		})
	}
	features := t.Features
	if features == nil {
		features = []string{}
	}
	return templateResponse{
		ID:              t.ID.String(),
		Name:            t.Name,
		Tier:            t.Tier,
		PlanType:        t.PlanType,
		Category:        t.Category,
		MonthlyFee:      t.MonthlyFee,
		Currency:        t.Currency,
		PlatformCount:   t.PlatformCount,
		CorrectionLimit: t.CorrectionLimit,
		Features:        features,
		Recommended:     t.Recommended,
		Allocations:     allocs,
		CreatedAt:       t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       t.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toAllocations(reqs []allocationRequest) []packages.Allocation {
	allocs := make([]packages.Allocation, 0, len(reqs))
	for _, a := range reqs {
		allocs = append(allocs, packages.Allocation{
			DeliverableType:  a.DeliverableType,
			TotalAllocated:   a.TotalAllocated,
			UnitLabel:        a.UnitLabel,
			WarningThreshold: a.WarningThreshold,
			AutoDeduction:    a.AutoDeduction,
		})
	}
	return allocs
}

// TemplateHandler handles package template CRUD endpoints.
type TemplateHandler struct {
	repo packages.Repository
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(repo packages.Repository) *TemplateHandler {
	return &TemplateHandler{repo: repo}
}

// Create handles POST /package-templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	valAllocs := make([]validation.AllocationRequest, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		valAllocs = append(valAllocs, validation.AllocationRequest{
			DeliverableType:  a.DeliverableType,
			TotalAllocated:   a.TotalAllocated,
			UnitLabel:        a.UnitLabel,
			WarningThreshold: a.WarningThreshold,
		})
	}
	fieldErrors := validation.ValidateCreateTemplateRequest(validation.CreateTemplateRequest{
		Name:        req.Name,
		Tier:        req.Tier,
		PlanType:    req.PlanType,
		MonthlyFee:  req.MonthlyFee,
		Allocations: valAllocs,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	t := &packages.Template{
		Name:            req.Name,
		Tier:            req.Tier,
		PlanType:        req.PlanType,
		Category:        req.Category,
		MonthlyFee:      req.MonthlyFee,
		Currency:        currency,
		PlatformCount:   req.PlatformCount,
		CorrectionLimit: req.CorrectionLimit,
		Features:        req.Features,
		Recommended:     req.Recommended,
		Allocations:     toAllocations(req.Allocations),
	}

	if err := h.repo.Create(r.Context(), t); err != nil {
		switch {
		case errors.Is(err, packages.ErrDuplicateTemplateName):
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A template named %q already exists", req.Name), requestID)
		case errors.Is(err, packages.ErrDuplicateAllocation):
			response.Err(w, http.StatusBadRequest, "DUPLICATE_ALLOCATION", "Template allocations must have unique deliverable types", requestID)
		case errors.Is(err, packages.ErrUnknownAllocationType):
			response.Err(w, http.StatusBadRequest, "UNKNOWN_DELIVERABLE_TYPE", err.Error(), requestID)
		default:
			slog.Error("failed to create template", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create template", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toTemplateResponse(t), requestID)
}

// List handles GET /package-templates.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	templates, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list templates", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list templates", requestID)
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, toTemplateResponse(&templates[i]))
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// GetByID handles GET /package-templates/{id}.
func (h *TemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	t, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, packages.ErrTemplateNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Template not found", requestID)
			return
		}
		slog.Error("failed to get template", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get template", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTemplateResponse(t), requestID)
}

// Update handles PATCH /package-templates/{id}.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fields := packages.UpdateFields{
		Tier:            req.Tier,
		PlanType:        req.PlanType,
		Category:        req.Category,
		MonthlyFee:      req.MonthlyFee,
		Currency:        req.Currency,
		PlatformCount:   req.PlatformCount,
		CorrectionLimit: req.CorrectionLimit,
		Features:        req.Features,
		Recommended:     req.Recommended,
	}
	if req.Allocations != nil {
		allocs := toAllocations(*req.Allocations)
		fields.Allocations = &allocs
	}

	t, err := h.repo.Update(r.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, packages.ErrTemplateNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Template not found", requestID)
		case errors.Is(err, packages.ErrDuplicateAllocation):
			response.Err(w, http.StatusBadRequest, "DUPLICATE_ALLOCATION", "Template allocations must have unique deliverable types", requestID)
		case errors.Is(err, packages.ErrUnknownAllocationType):
			response.Err(w, http.StatusBadRequest, "UNKNOWN_DELIVERABLE_TYPE", err.Error(), requestID)
		default:
			slog.Error("failed to update template", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update template", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toTemplateResponse(t), requestID)
}

// Delete handles DELETE /package-templates/{id}.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, packages.ErrTemplateNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Template not found", requestID)
			return
		}
		if errors.Is(err, packages.ErrTemplateInUse) {
			response.Err(w, http.StatusConflict, "TEMPLATE_IN_USE", "Cannot delete a template with client assignments", requestID)
			return
		}
		slog.Error("failed to delete template", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete template", requestID)
		return
	}

	response.NoContent(w)
}
