package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdesk/packdesk/internal/catalog"
)

type fakeCatalogRepository struct {
	types      map[string]*catalog.DeliverableType
	categories []catalog.ServiceCategory
	inUse      map[string]bool
}

func newFakeCatalogRepository() *fakeCatalogRepository {
	return &fakeCatalogRepository{
		types: make(map[string]*catalog.DeliverableType),
		inUse: make(map[string]bool),
	}
}

func (f *fakeCatalogRepository) Create(_ context.Context, dt *catalog.DeliverableType) error {
	if _, ok := f.types[dt.TypeKey]; ok {
		return catalog.ErrDuplicateTypeKey
	}
	dt.CreatedAt = time.Now().UTC()
	dt.UpdatedAt = dt.CreatedAt
	cp := *dt
	f.types[dt.TypeKey] = &cp
	return nil
}

func (f *fakeCatalogRepository) GetByKey(_ context.Context, typeKey string) (*catalog.DeliverableType, error) {
	dt, ok := f.types[typeKey]
	if !ok {
		return nil, catalog.ErrTypeNotFound
	}
	cp := *dt
	return &cp, nil
}

func (f *fakeCatalogRepository) List(_ context.Context) ([]catalog.DeliverableType, error) {
	out := make([]catalog.DeliverableType, 0, len(f.types))
	for _, dt := range f.types {
		out = append(out, *dt)
	}
	return out, nil
}

func (f *fakeCatalogRepository) Update(_ context.Context, typeKey string, fields catalog.UpdateFields) (*catalog.DeliverableType, error) {
	dt, ok := f.types[typeKey]
	if !ok {
		return nil, catalog.ErrTypeNotFound
	}
	if fields.Label != nil {
		dt.Label = *fields.Label
	}
	if fields.UnitLabel != nil {
		dt.UnitLabel = *fields.UnitLabel
	}
	if fields.HoursPerUnit != nil {
		dt.HoursPerUnit = *fields.HoursPerUnit
	}
	cp := *dt
	return &cp, nil
}

func (f *fakeCatalogRepository) Delete(_ context.Context, typeKey string) error {
	if _, ok := f.types[typeKey]; !ok {
		return catalog.ErrTypeNotFound
	}
	if f.inUse[typeKey] {
		return catalog.ErrTypeInUse
	}
	delete(f.types, typeKey)
	return nil
}

func (f *fakeCatalogRepository) CreateCategory(_ context.Context, c *catalog.ServiceCategory) error {
	for _, existing := range f.categories {
		if existing.Name == c.Name {
			return catalog.ErrDuplicateCategory
		}
	}
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeCatalogRepository) ListCategories(_ context.Context) ([]catalog.ServiceCategory, error) {
	return f.categories, nil
}

func newCatalogTestRouter(repo catalog.Repository) *chi.Mux {
	h := NewCatalogHandler(repo)
	r := chi.NewRouter()
	r.Route("/deliverable-types", func(r chi.Router) {
		r.Post("/", h.CreateType)
		r.Get("/", h.ListTypes)
		r.Get("/{key}", h.GetType)
		r.Patch("/{key}", h.UpdateType)
		r.Delete("/{key}", h.DeleteType)
	})
	return r
}

func TestCreateDeliverableType(t *testing.T) {
	router := newCatalogTestRouter(newFakeCatalogRepository())

	body := `{"typeKey":"static_post","label":"Static Post","unitLabel":"posts","hoursPerUnit":2}`
	req := httptest.NewRequest(http.MethodPost, "/deliverable-types", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			TypeKey      string  `json:"typeKey"`
			HoursPerUnit float64 `json:"hoursPerUnit"`
		} `json:"data"`
		Meta struct {
			RequestID string `json:"requestId"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "static_post", resp.Data.TypeKey)
	assert.Equal(t, 2.0, resp.Data.HoursPerUnit)
}

func TestCreateDeliverableTypeValidation(t *testing.T) {
	router := newCatalogTestRouter(newFakeCatalogRepository())

	body := `{"typeKey":"Bad Key","label":"","unitLabel":"posts","hoursPerUnit":0}`
	req := httptest.NewRequest(http.MethodPost, "/deliverable-types", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestCreateDeliverableTypeDuplicate(t *testing.T) {
	router := newCatalogTestRouter(newFakeCatalogRepository())

	body := `{"typeKey":"static_post","label":"Static Post","unitLabel":"posts","hoursPerUnit":2}`
	req := httptest.NewRequest(http.MethodPost, "/deliverable-types", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/deliverable-types", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetDeliverableTypeNotFound(t *testing.T) {
	router := newCatalogTestRouter(newFakeCatalogRepository())

	req := httptest.NewRequest(http.MethodGet, "/deliverable-types/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDeliverableTypeInUse(t *testing.T) {
	repo := newFakeCatalogRepository()
	require.NoError(t, repo.Create(context.Background(), &catalog.DeliverableType{
		TypeKey: "static_post", Label: "Static Post", UnitLabel: "posts", HoursPerUnit: 2,
	}))
	repo.inUse["static_post"] = true
	router := newCatalogTestRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/deliverable-types/static_post", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "TYPE_IN_USE", resp.Error.Code)
}

func TestUpdateDeliverableType(t *testing.T) {
	repo := newFakeCatalogRepository()
	require.NoError(t, repo.Create(context.Background(), &catalog.DeliverableType{
		TypeKey: "static_post", Label: "Static Post", UnitLabel: "posts", HoursPerUnit: 2,
	}))
	router := newCatalogTestRouter(repo)

	body := `{"hoursPerUnit":2.5}`
	req := httptest.NewRequest(http.MethodPatch, "/deliverable-types/static_post", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			HoursPerUnit float64 `json:"hoursPerUnit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2.5, resp.Data.HoursPerUnit)
}
