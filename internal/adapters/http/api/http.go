// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/gifduel/internal/domain/duel"
	"github.com/okian/gifduel/internal/domain/model"
	"github.com/okian/gifduel/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session service.
type Dependencies interface {
	CreateSession(ctx context.Context, theme string) (string, duel.State, error)
	Session(ctx context.Context, id string) (duel.State, error)
	SetTheme(ctx context.Context, id, theme string) (duel.State, error)
	Next(ctx context.Context, id string) (duel.State, error)
	Vote(ctx context.Context, id string, vt model.VoteType, side model.Side, requestID string) (types.Result, error)
	Undo(ctx context.Context, id, requestID string) (types.Result, error)
	Reset(ctx context.Context, id string) (duel.State, error)
	DeleteSession(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	h := s.sessionsHandler
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "session_create"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleGet, "session_get"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleDelete, "session_delete"))
	mux.HandleFunc("POST /sessions/{id}/theme", MetricsMiddleware(h.HandleTheme, "session_theme"))
	mux.HandleFunc("POST /sessions/{id}/next", MetricsMiddleware(h.HandleNext, "session_next"))
	mux.HandleFunc("POST /sessions/{id}/vote", MetricsMiddleware(h.HandleVote, "session_vote"))
	mux.HandleFunc("POST /sessions/{id}/undo", MetricsMiddleware(h.HandleUndo, "session_undo"))
	mux.HandleFunc("POST /sessions/{id}/reset", MetricsMiddleware(h.HandleReset, "session_reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
