package handler

import (
	"context"
	"net/http"

	"github.com/packdesk/packdesk/internal/api/middleware"
	"github.com/packdesk/packdesk/internal/api/response"
)

// DBPinger verifies storage connectivity for health checks.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	status := "healthy"
	dbStatus := "connected"
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		status = "degraded"
		dbStatus = "disconnected"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:   status,
		Version:  h.version,
		Database: dbStatus,
	}, requestID)
}
