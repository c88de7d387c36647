package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/export"
	"github.com/Simplici0/costestimator/internal/logging"
	"github.com/Simplici0/costestimator/internal/metrics"
	"github.com/Simplici0/costestimator/internal/session"
	"github.com/Simplici0/costestimator/internal/store"
)

type server struct {
	session *session.Session
	store   store.Store
	metrics *metrics.Metrics
	logger  logrus.FieldLogger

	// catalogPath is re-read by POST /catalog/reload. Empty means the built-in table.
	catalogPath string
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/catalog", s.handleCatalog)
	r.Get("/catalog/search", s.handleCatalogSearch)
	r.Get("/catalog/rules/{id}", s.handleCatalogRule)
	r.Post("/catalog/reload", s.handleCatalogReload)
	r.Get("/price", s.handlePrice)

	r.Route("/estimate", func(r chi.Router) {
		r.Get("/", s.handleEstimate)
		r.Post("/reset", s.handleReset)
		r.Put("/project", s.handleProject)
		r.Put("/costs", s.handleCosts)
		r.Post("/locations", s.handleAddLocation)
		r.Put("/locations/{loc}", s.handleUpdateLocation)
		r.Delete("/locations/{loc}", s.handleDeleteLocation)
		r.Post("/locations/{loc}/actions", s.handleAddAction)
		r.Put("/locations/{loc}/actions/{act}", s.handleUpdateAction)
		r.Delete("/locations/{loc}/actions/{act}", s.handleDeleteAction)
	})

	r.Get("/estimates", s.handleSavedList)
	r.Post("/estimates", s.handleSave)
	r.Get("/estimates/{id}", s.handleSavedGet)
	r.Delete("/estimates/{id}", s.handleSavedDelete)
	r.Post("/estimates/{id}/load", s.handleSavedLoad)

	r.Get("/export/{format}", s.handleExport)
	return r
}

// requestMiddleware counts every request by route pattern and logs it.
func (s *server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start).String(),
			"reqID":    middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

type errorResponse struct {
	Error   string           `json:"error"`
	Notices []session.Notice `json:"notices,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Only unexpected errors are
// logged at error level.
func (s *server) writeError(w http.ResponseWriter, funcName string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.LogError(s.logger, "server", funcName, "handling request", nil, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Notices: s.session.Notices()})
}

func statusFor(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, estimate.ErrLocationNotFound),
		errors.Is(err, estimate.ErrActionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, estimate.ErrTooManyLocations),
		errors.Is(err, estimate.ErrTooManyActions):
		return http.StatusConflict
	case errors.Is(err, export.ErrEmptyEstimate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst as is.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return badRequest("invalid json body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return id, nil
}

// amount is a JSON number or a user-typed string such as "$1,250.50". Input
// that is not a finite, non-negative number decodes as 0.
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		*a = amount(estimate.ParseAmount(raw))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*a = 0
		return nil
	}
	*a = amount(estimate.Coerce(f))
	return nil
}

func (a *amount) float() *float64 {
	if a == nil {
		return nil
	}
	f := float64(*a)
	return &f
}
