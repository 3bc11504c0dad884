// Package server exposes the analyzer over HTTP: analysis, feedback intake,
// dashboard statistics and history export.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/phishshield/internal/core"
	"go.uber.org/zap"
)

const defaultStatsDays = 7

// Server is the HTTP front of the analyzer. Handlers are thin: decode,
// validate, call the collaborator, encode.
type Server struct {
	service  *core.AnalyzerService
	feedback core.FeedbackRepository
	history  core.ScanHistoryRepository
	logger   *zap.Logger
	http     *http.Server
}

// New creates the HTTP server listening on addr.
func New(
	addr string,
	service *core.AnalyzerService,
	feedback core.FeedbackRepository,
	history core.ScanHistoryRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		service:  service,
		feedback: feedback,
		history:  history,
		logger:   logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Post("/analyze", s.handleAnalyze)
	router.Post("/feedback", s.handleFeedback)
	router.Get("/stats", s.handleStats)
	router.Get("/export", s.handleExport)
	router.Get("/healthz", s.handleHealthz)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info("HTTP server starting", zap.String("address", s.http.Addr))
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var email core.EmailRecord
	if err := decodeJSON(r, &email); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(email.Sender) == "" {
		s.writeError(w, http.StatusBadRequest, "sender is required")
		return
	}

	result := s.service.Analyze(r.Context(), &email)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var record core.FeedbackRecord
	if err := decodeJSON(r, &record); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.feedback.Append(record); err != nil {
		s.logger.Error("Failed to store feedback", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "recorded",
		"stats":  s.feedback.Stats(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	stats, err := s.history.Stats(r.Context(), days)
	if err != nil {
		s.logger.Error("Failed to build dashboard stats", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to build stats")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"dashboard": stats,
		"feedback":  s.feedback.Stats(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		data, err := s.history.ExportCSV(r.Context())
		if err != nil {
			s.logger.Error("Failed to export history", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to export history")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="scan_history.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	case "json":
		data, err := s.history.ExportJSON(r.Context())
		if err != nil {
			s.logger.Error("Failed to export history", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to export history")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="scan_history.json"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		s.writeError(w, http.StatusBadRequest, "format must be csv or json")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body strictly: unknown fields and trailing
// garbage are malformed requests.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
