// Package api serves the health and diagnostics endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clambin/energyua-monitor/internal/resolver"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Resolver interface {
	Snapshot() (schedule.Snapshot, bool)
	DumpRaw(dir string) (string, error)
}

// New returns the router for the API endpoints. health serves /health.
func New(r Resolver, health http.Handler, dumpDir string, logger *slog.Logger) http.Handler {
	h := handler{resolver: r, dumpDir: dumpDir, logger: logger}

	m := chi.NewRouter()
	m.Use(middleware.Recoverer)
	m.Use(RequestLogger(logger))
	m.Method(http.MethodGet, "/health", health)
	m.Route("/api", func(m chi.Router) {
		m.Get("/snapshot", h.snapshot)
		m.Post("/dump", h.dump)
	})
	return m
}

type handler struct {
	resolver Resolver
	dumpDir  string
	logger   *slog.Logger
}

func (h handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.resolver.Snapshot()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type dumpResponse struct {
	File string `json:"file"`
}

func (h handler) dump(w http.ResponseWriter, _ *http.Request) {
	path, err := h.resolver.DumpRaw(h.dumpDir)
	switch {
	case err == nil:
		h.logger.Info("page dumped", slog.String("file", path))
		writeJSON(w, http.StatusOK, dumpResponse{File: path})
	case errors.Is(err, resolver.ErrNoData):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("page dump failed", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(v)
}

// RequestLogger logs each request with its method, path, status, duration and response size.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int("size", ww.BytesWritten()),
			)
		})
	}
}
