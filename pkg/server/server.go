// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianlabs/salescope/pkg/analyst"
	"github.com/meridianlabs/salescope/pkg/history"
)

// Analyst runs one question through the analysis pipeline.
type Analyst interface {
	Execute(ctx context.Context, question string) analyst.State
}

// Server is the salescope HTTP API.
type Server struct {
	log      *slog.Logger
	workflow Analyst
	history  *history.Log
	started  time.Time
}

// New creates a Server.
func New(log *slog.Logger, workflow Analyst, hist *history.Log) *Server {
	return &Server{
		log:      log,
		workflow: workflow,
		history:  hist,
		started:  time.Now(),
	}
}

// Router builds the chi router with all API routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metricsMiddleware)

	r.Post("/api/ask", s.handleAsk)
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// AskRequest is the incoming question.
type AskRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	}

	if s.log != nil {
		s.log.Info("server: question received", "question", req.Question)
	}

	start := time.Now()
	state := s.workflow.Execute(r.Context(), req.Question)
	pipelineDuration.Observe(time.Since(start).Seconds())

	if state.FriendlyError != "" {
		questionsTotal.WithLabelValues("error").Inc()
	} else {
		questionsTotal.WithLabelValues("answered").Inc()
	}

	if s.history != nil {
		s.history.Record(state)
	}

	writeJSON(w, http.StatusOK, state.Result())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"uptimeSeconds":     time.Since(s.started).Seconds(),
		"questionsAnswered": s.history.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
