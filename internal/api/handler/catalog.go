package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
	"github.com/packdesk/packdesk/internal/api/validation"
	"github.com/packdesk/packdesk/internal/catalog"
)

// createDeliverableTypeRequest is the request body for POST /deliverable-types.
type createDeliverableTypeRequest struct {
	TypeKey      string  `json:"typeKey"`
	Label        string  `json:"label"`
	UnitLabel    string  `json:"unitLabel"`
	HoursPerUnit float64 `json:"hoursPerUnit"`
}

// updateDeliverableTypeRequest is the request body for PATCH /deliverable-types/{key}.
type updateDeliverableTypeRequest struct {
	Label        *string  `json:"label"`
	UnitLabel    *string  `json:"unitLabel"`
	HoursPerUnit *float64 `json:"hoursPerUnit"`
}

type deliverableTypeResponse struct {
	TypeKey      string  `json:"typeKey"`
	Label        string  `json:"label"`
	UnitLabel    string  `json:"unitLabel"`
	HoursPerUnit float64 `json:"hoursPerUnit"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toDeliverableTypeResponse(dt *catalog.DeliverableType) deliverableTypeResponse {
	return deliverableTypeResponse{
		TypeKey:      dt.TypeKey,
		Label:        dt.Label,
		UnitLabel:    dt.UnitLabel,
		HoursPerUnit: dt.HoursPerUnit,
		CreatedAt:    dt.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    dt.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

type serviceCategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogHandler handles deliverable-type and service-category endpoints.
type CatalogHandler struct {
	repo catalog.Repository
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(repo catalog.Repository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// CreateType handles POST /deliverable-types.
func (h *CatalogHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createDeliverableTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	req.TypeKey = strings.TrimSpace(req.TypeKey)

	fieldErrors := validation.ValidateCreateDeliverableTypeRequest(validation.CreateDeliverableTypeRequest{
		TypeKey:      req.TypeKey,
		Label:        req.Label,
		UnitLabel:    req.UnitLabel,
		HoursPerUnit: req.HoursPerUnit,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	dt := &catalog.DeliverableType{
		TypeKey:      req.TypeKey,
		Label:        req.Label,
		UnitLabel:    req.UnitLabel,
		HoursPerUnit: req.HoursPerUnit,
	}

	if err := h.repo.Create(r.Context(), dt); err != nil {
		if errors.Is(err, catalog.ErrDuplicateTypeKey) {
			response.Err(w, http.StatusConflict, "DUPLICATE_KEY", "A deliverable type with this key already exists", requestID)
			return
		}
		slog.Error("failed to create deliverable type", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create deliverable type", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toDeliverableTypeResponse(dt), requestID)
}

// ListTypes handles GET /deliverable-types.
func (h *CatalogHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	types, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list deliverable types", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list deliverable types", requestID)
		return
	}

	items := make([]deliverableTypeResponse, 0, len(types))
	for i := range types {
		items = append(items, toDeliverableTypeResponse(&types[i]))
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// GetType handles GET /deliverable-types/{key}.
func (h *CatalogHandler) GetType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	key := chi.URLParam(r, "key")
	dt, err := h.repo.GetByKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, catalog.ErrTypeNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Deliverable type not found", requestID)
			return
		}
		slog.Error("failed to get deliverable type", "error", err, "key", key)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get deliverable type", requestID)
		return
	}

	response.Success(w, http.StatusOK, toDeliverableTypeResponse(dt), requestID)
}

// UpdateType handles PATCH /deliverable-types/{key}.
func (h *CatalogHandler) UpdateType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	key := chi.URLParam(r, "key")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateDeliverableTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateDeliverableTypeRequest(validation.UpdateDeliverableTypeRequest{
		Label:        req.Label,
		UnitLabel:    req.UnitLabel,
		HoursPerUnit: req.HoursPerUnit,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	dt, err := h.repo.Update(r.Context(), key, catalog.UpdateFields{
		Label:        req.Label,
		UnitLabel:    req.UnitLabel,
		HoursPerUnit: req.HoursPerUnit,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrTypeNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Deliverable type not found", requestID)
			return
		}
		slog.Error("failed to update deliverable type", "error", err, "key", key)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update deliverable type", requestID)
		return
	}

	response.Success(w, http.StatusOK, toDeliverableTypeResponse(dt), requestID)
}

// DeleteType handles DELETE /deliverable-types/{key}.
func (h *CatalogHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	key := chi.URLParam(r, "key")
	if err := h.repo.Delete(r.Context(), key); err != nil {
		if errors.Is(err, catalog.ErrTypeNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Deliverable type not found", requestID)
			return
		}
		if errors.Is(err, catalog.ErrTypeInUse) {
			response.Err(w, http.StatusConflict, "TYPE_IN_USE", "Cannot delete a deliverable type referenced by package allocations", requestID)
			return
		}
		slog.Error("failed to delete deliverable type", "error", err, "key", key)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete deliverable type", requestID)
		return
	}

	response.NoContent(w)
}

// ListCategories handles GET /service-categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		slog.Error("failed to list service categories", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list service categories", requestID)
		return
	}

	items := make([]serviceCategoryResponse, 0, len(cats))
	for _, c := range cats {
		items = append(items, serviceCategoryResponse{
			ID:          c.ID.String(),
			Name:        c.Name,
			Description: c.Description,
		})
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// CreateCategory handles POST /service-categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		response.Err(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required", requestID)
		return
	}

	c := &catalog.ServiceCategory{Name: req.Name, Description: req.Description}
	if err := h.repo.CreateCategory(r.Context(), c); err != nil {
		if errors.Is(err, catalog.ErrDuplicateCategory) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", "A service category with this name already exists", requestID)
			return
		}
		slog.Error("failed to create service category", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create service category", requestID)
		return
	}

	response.Success(w, http.StatusCreated, serviceCategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
	}, requestID)
}
