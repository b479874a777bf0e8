// Package api exposes the academy service over HTTP/JSON.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/session"
)

const maxBodyBytes = 1 << 20

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the HTTP server.
type Config struct {
	Service  *academy.Service
	Health   HealthChecker
	Sessions *session.Registry
	Hub      *Hub
	// Languages are the export locales offered; the first is the default.
	Languages []language.Tag
	// GameSeconds is the countdown for game sessions that don't ask for one.
	GameSeconds int
}

// Server routes HTTP requests to the academy service.
type Server struct {
	svc         *academy.Service
	health      HealthChecker
	sessions    *session.Registry
	hub         *Hub
	languages   language.Matcher
	supported   []language.Tag
	defaultLang language.Tag
	gameSeconds int

	// ctx outlives requests; game countdowns run on it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server. Close stops any running game countdowns.
func NewServer(cfg Config) *Server {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []language.Tag{language.English}
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewRegistry()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		svc:         cfg.Service,
		health:      cfg.Health,
		sessions:    sessions,
		hub:         hub,
		languages:   language.NewMatcher(langs),
		supported:   langs,
		defaultLang: langs[0],
		gameSeconds: cfg.GameSeconds,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Close cancels background work started by requests.
func (s *Server) Close() {
	s.cancel()
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/progress", s.handleProgress)
	mux.HandleFunc("POST /v1/checkin", s.handleCheckIn)
	mux.HandleFunc("POST /v1/answers", s.handleAnswer)
	mux.HandleFunc("POST /v1/lessons/complete", s.handleCompleteLesson)
	mux.HandleFunc("POST /v1/games/complete", s.handleCompleteGame)
	mux.HandleFunc("POST /v1/reset", s.handleReset)
	mux.HandleFunc("POST /v1/onboarding/complete", s.handleOnboarding)
	mux.HandleFunc("PUT /v1/settings", s.handleSettings)

	mux.HandleFunc("GET /v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /v1/categories", s.handleCategories)
	mux.HandleFunc("GET /v1/categories/{id}/lessons", s.handleLessons)
	mux.HandleFunc("GET /v1/achievements", s.handleAchievements)
	mux.HandleFunc("GET /v1/export.xlsx", s.handleExport)
	mux.Handle("GET /v1/signals", s.hub)

	mux.HandleFunc("POST /v1/sessions/lessons", s.handleStartLesson)
	mux.HandleFunc("GET /v1/sessions/lessons/{id}", s.handleLessonState)
	mux.HandleFunc("POST /v1/sessions/lessons/{id}/answer", s.handleLessonAnswer)
	mux.HandleFunc("POST /v1/sessions/lessons/{id}/advance", s.handleLessonAdvance)
	mux.HandleFunc("POST /v1/sessions/lessons/{id}/finish", s.handleLessonFinish)
	mux.HandleFunc("DELETE /v1/sessions/lessons/{id}", s.handleLessonAbort)

	mux.HandleFunc("POST /v1/sessions/games", s.handleStartGame)
	mux.HandleFunc("GET /v1/sessions/games/{id}", s.handleGameState)
	mux.HandleFunc("POST /v1/sessions/games/{id}/points", s.handleGamePoints)
	mux.HandleFunc("POST /v1/sessions/games/{id}/finish", s.handleGameFinish)
	mux.HandleFunc("DELETE /v1/sessions/games/{id}", s.handleGameAbort)

	return logRequests(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, academy.ErrOutOfHearts):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrNoQuestion),
		errors.Is(err, session.ErrAlreadyAnswered),
		errors.Is(err, session.ErrLessonIncomplete):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, academy.ErrLessonLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, academy.ErrInvalidGoalTier), errors.Is(err, academy.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
