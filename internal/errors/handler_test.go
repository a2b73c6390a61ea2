package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"napsidx/internal/shared/testutil"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "api validation error",
			err:        ErrValidation("year", "year is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
		},
		{
			name:       "api not found",
			err:        NotFoundError("station"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "api index unavailable",
			err:        ErrIndexUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeIndexUnavailable,
			wantTitle:  "Service Unavailable",
		},
		{
			name:       "api rate limited",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
			wantTitle:  "Too Many Requests",
		},
		{
			name:       "app not found",
			err:        NewNotFoundError("station 99999"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "resolution error is a bad request",
			err:        NewResolutionError("no layout for year 1999"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Validation Failed",
		},
		{
			name:       "storage error",
			err:        fmt.Errorf("load: %w", NewStorageError("catalog missing", nil)),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeIndexUnavailable,
			wantTitle:  "Index Unavailable",
		},
		{
			name:       "structural error",
			err:        NewStructuralError("header row not found", nil),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeDataCorrupted,
			wantTitle:  "Data Corrupted",
		},
		{
			name:       "ambiguity falls back to internal",
			err:        NewAmbiguityError("two sheets match"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/index/sites", nil)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, tt.wantTitle, body["title"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/index/sites", body["instance"])
			assert.Equal(t, "req-42", body["trace_id"])
			assert.NotContains(t, body, "stack")

			testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
			assert.True(t, logs.ContainsAttr("request_id", "req-42"))
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)
	rec := httptest.NewRecorder()

	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, rec.Body.Len())
	assert.Zero(t, logs.Count())
}

func TestErrorHandler_Extensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	t.Run("validation details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewErrorHandler(logger, false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/api/index/years", nil),
			ErrValidation("site_id", "must be greater than 0"))

		body := decodeProblem(t, rec)
		assert.Equal(t, CodeValidationFailed, body["error_code"])
		assert.Equal(t, "site_id must be greater than 0", body["detail"])
		assert.Equal(t, map[string]interface{}{"field": "site_id", "message": "must be greater than 0"}, body["details"])
	})

	t.Run("app error type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewErrorHandler(logger, false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/api/index/ions", nil),
			NewStorageError("index not loaded", nil))

		body := decodeProblem(t, rec)
		assert.Equal(t, string(ErrTypeStorage), body["error_type"])
		assert.Equal(t, "index not loaded", body["detail"])
	})

	t.Run("stack when enabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewErrorHandler(logger, true).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

		body := decodeProblem(t, rec)
		assert.Contains(t, body["stack"], "goroutine")
	})
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/api/plots", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/stations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "Method DELETE is not allowed for this endpoint", body["detail"])
}

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel slog.Level
	}{
		{
			name:      "success logs at info",
			path:      "/api/index/sites?year=2010",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "client error logs at warn",
			path:      "/api/index/sites?year=2010",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			wantCode:  http.StatusBadRequest,
			wantLevel: slog.LevelWarn,
		},
		{
			name:      "server error logs at error",
			path:      "/api/index/sites?year=2010",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			wantCode:  http.StatusServiceUnavailable,
			wantLevel: slog.LevelError,
		},
		{
			name:      "health probe logs at debug",
			path:      "/api/health",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "failing health probe still logs at error",
			path:      "/api/health",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			wantCode:  http.StatusServiceUnavailable,
			wantLevel: slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			rec := httptest.NewRecorder()
			mw.Handler(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			testutil.AssertLogContains(t, logs, tt.wantLevel, "http request")
			assert.Len(t, logs.GetRecords(), 1)
		})
	}
}

func TestErrorMiddleware_Panic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	rec := httptest.NewRecorder()
	mw.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("index corrupted")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/index/ions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, decodeProblem(t, rec)["type"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorMiddleware_Route(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	r := chi.NewRouter()
	r.Use(NewErrorMiddleware(NewErrorHandler(logger, false), logger).Handler)
	r.Get("/api/stations/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stations/10102?verbose=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, logs.ContainsAttr("route", "/api/stations/{id}"))
	assert.True(t, logs.ContainsAttr("query", "verbose=1"))
}
