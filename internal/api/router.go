package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-chi/chi/v5"

	"github.com/packdesk/packdesk/internal/api/handler"
	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/capacity"
	"github.com/packdesk/packdesk/internal/catalog"
	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/quota"
	"github.com/packdesk/packdesk/internal/workload"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger       handler.DBPinger
	Version        string
	Catalog        catalog.Repository
	Templates      packages.Repository
	Assignments    assignment.Repository
	AssignmentSvc  *assignment.Service
	QuotaSvc       *quota.Service
	Teams          capacity.TeamSource
	Allocator      *workload.Allocator
	Refresher      *capacity.Refresher
	MetricsEnabled bool
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if deps.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	catalogHandler := handler.NewCatalogHandler(deps.Catalog)
	r.Route("/deliverable-types", func(r chi.Router) {
		r.Post("/", catalogHandler.CreateType)
		r.Get("/", catalogHandler.ListTypes)
		r.Get("/{key}", catalogHandler.GetType)
		r.Patch("/{key}", catalogHandler.UpdateType)
		r.Delete("/{key}", catalogHandler.DeleteType)
	})
	r.Route("/service-categories", func(r chi.Router) {
		r.Get("/", catalogHandler.ListCategories)
		r.Post("/", catalogHandler.CreateCategory)
	})

	templateHandler := handler.NewTemplateHandler(deps.Templates)
	r.Route("/package-templates", func(r chi.Router) {
		r.Post("/", templateHandler.Create)
		r.Get("/", templateHandler.List)
		r.Get("/{id}", templateHandler.GetByID)
		r.Patch("/{id}", templateHandler.Update)
		r.Delete("/{id}", templateHandler.Delete)
	})

	assignmentHandler := handler.NewAssignmentHandler(deps.AssignmentSvc)
	quotaHandler := handler.NewQuotaHandler(deps.QuotaSvc)
	workloadHandler := handler.NewWorkloadHandler(deps.Assignments, deps.Templates, deps.Catalog, deps.Teams, deps.Allocator)

	r.Route("/clients/{clientID}/assignments", func(r chi.Router) {
		r.Post("/", assignmentHandler.Assign)
		r.Post("/change", assignmentHandler.Change)
		r.Post("/retry", assignmentHandler.Retry)
		r.Get("/active", assignmentHandler.GetActive)
	})

	r.Route("/assignments/{id}", func(r chi.Router) {
		r.Get("/", assignmentHandler.GetByID)
		r.Get("/usage", quotaHandler.GetUsage)
		r.Put("/usage/{type}", quotaHandler.OverrideUsage)
		r.Post("/deductions", quotaHandler.RequestDeduction)
		r.Get("/workload", workloadHandler.Get)
	})

	r.Route("/deductions/{id}", func(r chi.Router) {
		r.Get("/", quotaHandler.GetEvent)
		r.Post("/confirm", quotaHandler.ConfirmDeduction)
		r.Post("/cancel", quotaHandler.CancelDeduction)
	})

	r.Post("/workload/preview", workloadHandler.Preview)

	if deps.Refresher != nil {
		capacityHandler := handler.NewCapacityHandler(deps.Refresher)
		r.Route("/capacity", func(r chi.Router) {
			r.Get("/", capacityHandler.Get)
			r.Post("/refresh", capacityHandler.Refresh)
			r.Get("/report", capacityHandler.Report)
		})
	}

	return r
}
