package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "napsidx/internal/errors"
)

// StationHandler serves station metadata from the catalog
type StationHandler struct {
	catalog      Catalog
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewStationHandler creates a new station handler
func NewStationHandler(catalog Catalog, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *StationHandler {
	return &StationHandler{
		catalog:      catalog,
		logger:       logger.With(slog.String("handler", "stations")),
		errorHandler: errorHandler,
	}
}

// Routes returns the station routes
func (h *StationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.ListStations)
	r.Get("/{id}", h.GetStation)
	return r
}

// ListStations handles GET /api/stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.Stations(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"stations": nonNil(list)})
}

// GetStation handles GET /api/stations/{id}
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.errorHandler.HandleError(w, r, apperrors.ErrValidation("id", "must be a positive site id"))
		return
	}

	station, err := h.catalog.Station(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, station)
}
