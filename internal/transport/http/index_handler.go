package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/index"
)

// EntryResponse is one index row as served by the API
type EntryResponse struct {
	Year        int    `json:"year"`
	SiteID      int    `json:"site_id"`
	Analyte     string `json:"analyte"`
	AnalyteType string `json:"analyte_type"`
	Instrument  string `json:"instrument"`
	Frequency   int    `json:"frequency"`
}

// CombinationResponse is a sampled (year, site, form) without the analyte
type CombinationResponse struct {
	Year        int    `json:"year"`
	SiteID      int    `json:"site_id"`
	AnalyteType string `json:"analyte_type"`
	Instrument  string `json:"instrument"`
	Frequency   int    `json:"frequency"`
}

type sitesQuery struct {
	Year        int    `query:"year" validate:"required,gte=2003,lte=2100"`
	Analyte     string `query:"analyte"`
	AnalyteType string `query:"analyte_type" validate:"omitempty,oneof=NT WS total"`
}

type yearsQuery struct {
	SiteID      int    `query:"site_id" validate:"required,gt=0"`
	Analyte     string `query:"analyte" validate:"required"`
	AnalyteType string `query:"analyte_type" validate:"required,oneof=NT WS total"`
}

type metadataQuery struct {
	Analyte     string `query:"analyte" validate:"required"`
	Instrument  string `query:"instrument" validate:"required,oneof=ICPMS IC"`
	AnalyteType string `query:"analyte_type" validate:"omitempty,oneof=NT WS total"`
	SiteID      int    `query:"site_id" validate:"gte=0"`
}

type combinationsQuery struct {
	Instrument  string `query:"instrument" validate:"required,oneof=ICPMS IC"`
	AnalyteType string `query:"analyte_type" validate:"omitempty,oneof=NT WS total"`
}

// IndexHandler answers availability queries from an in-memory index
// snapshot.
type IndexHandler struct {
	mu           sync.RWMutex
	ix           *index.Index
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewIndexHandler creates a handler serving ix. A nil index answers 503
// until Swap installs one.
func NewIndexHandler(ix *index.Index, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *IndexHandler {
	return &IndexHandler{
		ix:           ix,
		logger:       logger.With(slog.String("handler", "index")),
		errorHandler: errorHandler,
	}
}

// Swap replaces the served snapshot.
func (h *IndexHandler) Swap(ix *index.Index) {
	h.mu.Lock()
	h.ix = ix
	h.mu.Unlock()
}

// Routes returns the index routes
func (h *IndexHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.requireIndex)

	r.Get("/ions", h.GetIons)
	r.Get("/metals", h.GetMetals)
	r.Get("/years", h.GetYears)
	r.Get("/sites", h.GetSites)
	r.Get("/metadata", h.GetMetadata)
	r.Get("/combinations", h.GetCombinations)
	return r
}

func (h *IndexHandler) snapshot() *index.Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ix
}

func (h *IndexHandler) requireIndex(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.snapshot() == nil {
			h.errorHandler.HandleError(w, r, apperrors.ErrIndexUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIons handles GET /api/index/ions
func (h *IndexHandler) GetIons(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"ions": nonNil(h.snapshot().AllIons())})
}

// GetMetals handles GET /api/index/metals
func (h *IndexHandler) GetMetals(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"metals": nonNil(h.snapshot().AllMetals())})
}

// GetSites handles GET /api/index/sites
func (h *IndexHandler) GetSites(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := sitesQuery{
		Year:        year,
		Analyte:     strings.TrimSpace(r.URL.Query().Get("analyte")),
		AnalyteType: string(analyteTypeParam(r)),
	}
	if err := validateQuery(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sites := h.snapshot().SitesForYear(q.Year, index.Filter{
		Analyte:     q.Analyte,
		AnalyteType: index.AnalyteType(q.AnalyteType),
	})
	render.JSON(w, r, map[string]any{"year": q.Year, "sites": nonNil(sites)})
}

// GetYears handles GET /api/index/years
func (h *IndexHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	siteID, err := intParam(r, "site_id")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := yearsQuery{
		SiteID:      siteID,
		Analyte:     strings.TrimSpace(r.URL.Query().Get("analyte")),
		AnalyteType: string(analyteTypeParam(r)),
	}
	if err := validateQuery(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	years := h.snapshot().YearsForSite(q.SiteID, q.Analyte, index.AnalyteType(q.AnalyteType))
	render.JSON(w, r, map[string]any{"site_id": q.SiteID, "years": nonNil(years)})
}

// GetMetadata handles GET /api/index/metadata
func (h *IndexHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	siteID, err := intParam(r, "site_id")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := metadataQuery{
		Analyte:     strings.TrimSpace(r.URL.Query().Get("analyte")),
		Instrument:  string(instrumentParam(r)),
		AnalyteType: string(analyteTypeParam(r)),
		SiteID:      siteID,
	}
	if err := validateQuery(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	entries := h.snapshot().AllYearsMetadata(q.Analyte, index.Instrument(q.Instrument), index.Filter{
		AnalyteType: index.AnalyteType(q.AnalyteType),
		SiteID:      q.SiteID,
	})
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = EntryResponse{
			Year:        e.Year,
			SiteID:      e.SiteID,
			Analyte:     e.Analyte,
			AnalyteType: string(e.AnalyteType),
			Instrument:  string(e.Instrument),
			Frequency:   e.Frequency,
		}
	}
	render.JSON(w, r, map[string]any{"entries": out})
}

// GetCombinations handles GET /api/index/combinations
func (h *IndexHandler) GetCombinations(w http.ResponseWriter, r *http.Request) {
	sites, err := intListParam(r, "site_id")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q := combinationsQuery{
		Instrument:  string(instrumentParam(r)),
		AnalyteType: string(analyteTypeParam(r)),
	}
	if err := validateQuery(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	combos := h.snapshot().AllYearsPM25Metadata(index.Instrument(q.Instrument), index.AnalyteType(q.AnalyteType), sites)
	out := make([]CombinationResponse, len(combos))
	for i, c := range combos {
		out[i] = CombinationResponse{
			Year:        c.Year,
			SiteID:      c.SiteID,
			AnalyteType: string(c.AnalyteType),
			Instrument:  string(c.Instrument),
			Frequency:   c.Frequency,
		}
	}
	render.JSON(w, r, map[string]any{"combinations": out})
}
