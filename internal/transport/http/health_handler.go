package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"napsidx/internal/infrastructure"
)

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Entries   int       `json:"entries"`
	Stations  int       `json:"stations"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler reports whether the catalog is reachable
type HealthHandler struct {
	catalog Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(catalog Catalog, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		catalog: catalog,
		logger:  logger.With(slog.String("handler", "health")),
		now:     time.Now,
	}
}

// HealthCheck handles GET /api/health. An unreachable catalog answers 503
// with status "degraded".
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   infrastructure.ServiceVersion,
		Timestamp: h.now().UTC(),
	}

	err := h.catalog.Ping(r.Context())
	if err == nil {
		resp.Entries, resp.Stations, err = h.catalog.Counts(r.Context())
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "catalog unavailable", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Error = err.Error()
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
