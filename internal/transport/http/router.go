package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"napsidx/internal/config"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
	"napsidx/internal/middleware"
)

// DefaultRequestTimeout bounds each API request.
const DefaultRequestTimeout = 10 * time.Second

// RouterDeps are the collaborators of the API router
type RouterDeps struct {
	Catalog Catalog
	// Index is the snapshot served by /api/index. When nil it is loaded
	// from Catalog.
	Index     *index.Index
	Server    config.ServerConfig
	Telemetry *infrastructure.OTelProviders
	Metrics   *infrastructure.PipelineMetrics
	Logger    *slog.Logger
}

// NewRouter builds the query API. The index snapshot is loaded once; a
// catalog without an index still serves health and stations.
func NewRouter(deps RouterDeps) (http.Handler, *IndexHandler) {
	logger := infrastructure.WithComponent(deps.Logger, "http")
	errorHandler := apperrors.NewErrorHandler(logger, false)

	ix := deps.Index
	if ix == nil && deps.Catalog != nil {
		loaded, err := deps.Catalog.Index(context.Background())
		if err != nil {
			logger.Warn("index snapshot unavailable", slog.String("error", err.Error()))
		} else {
			ix = loaded
			logger.Info("index snapshot loaded", slog.Int("entries", ix.Len()))
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apperrors.NewErrorMiddleware(errorHandler, logger).Handler)
	if deps.Telemetry != nil {
		r.Use(middleware.NewOTelMiddleware(deps.Telemetry.Tracer, deps.Metrics).Handler)
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	if rl := deps.Server.RateLimit; rl.Enabled && rl.RPS > 0 {
		r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, logger).Handler)
	}
	r.Use(middleware.Timeout(DefaultRequestTimeout))

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	health := NewHealthHandler(deps.Catalog, logger)
	indexHandler := NewIndexHandler(ix, logger, errorHandler)
	stationHandler := NewStationHandler(deps.Catalog, logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HealthCheck)
		r.Mount("/index", indexHandler.Routes())
		r.Mount("/stations", stationHandler.Routes())
	})
	if deps.Telemetry != nil && deps.Telemetry.PrometheusHTTP != nil {
		r.Handle("/metrics", deps.Telemetry.PrometheusHTTP)
	}

	return r, indexHandler
}
