// Package api provides the status HTTP API of a running simulator session.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/spatial-anchors/internal/session"
	"github.com/stacklok/spatial-anchors/internal/versions"
)

//go:generate mockgen -destination=mocks/mock_inspector.go -package=mocks -source=server.go Inspector

// Inspector takes consistent snapshots of a session from any goroutine
type Inspector interface {
	Inspect(ctx context.Context) (session.Snapshot, error)
}

// ServerOption configures the status API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h on /metrics. A nil handler is ignored.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates the router for the status API
func NewServer(inspector Inspector, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(inspector))
	r.Get("/version", versionHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", sessionHandler(inspector))
		r.Get("/anchors", anchorsHandler(inspector))
	})

	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}
	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func readinessHandler(inspector Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := inspector.Inspect(r.Context())
		if err != nil {
			writeError(w, "session not responding: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if !snap.Running {
			writeError(w, "session not started", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, HealthResponse{Status: "ready"}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, versions.GetVersionInfo(), http.StatusOK)
}

func sessionHandler(inspector Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := inspector.Inspect(r.Context())
		if err != nil {
			writeError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap, http.StatusOK)
	}
}

func anchorsHandler(inspector Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := inspector.Inspect(r.Context())
		if err != nil {
			writeError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		anchors := snap.Anchors
		if r.URL.Query().Get("recovered") == "true" {
			anchors = filterRecovered(anchors)
		}
		writeJSON(w, AnchorsResponse{Session: snap.ID, Total: len(anchors), Anchors: anchors}, http.StatusOK)
	}
}

func filterRecovered(anchors []session.AnchorView) []session.AnchorView {
	out := []session.AnchorView{}
	for _, a := range anchors {
		if a.Recovered {
			out = append(out, a)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}
