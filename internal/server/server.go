package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// RunStatus exposes the live state of a run.
type RunStatus interface {
	RunID() string
	Summary() models.Summary
	Rows() []*models.ResultRow
}

// Server is the optional status surface of a run: health, metrics and the
// live summary.
type Server struct {
	httpServer *http.Server
	status     RunStatus
	logger     *slog.Logger
	started    time.Time
}

func New(addr string, status RunStatus, registry *prometheus.Registry) *Server {
	s := &Server{
		status:  status,
		logger:  slog.Default().With("component", "server"),
		started: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/rows", s.handleRows)
	})

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown failed", "error", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"run_id":     s.status.RunID(),
		"uptime_sec": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.status.Summary()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     s.status.RunID(),
		"total_rows": summary.Total(),
		"summary":    summary,
	})
}

// handleRows lists emitted rows, optionally filtered by ?status= and ?mode=.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))
	mode := strings.ToLower(r.URL.Query().Get("mode"))

	rows := make([]*models.ResultRow, 0)
	for _, row := range s.status.Rows() {
		if status != "" && string(row.Status) != status {
			continue
		}
		if mode != "" && string(row.Mode) != mode {
			continue
		}
		rows = append(rows, row)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
