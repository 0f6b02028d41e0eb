// Package server exposes the session boundary over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"shopassist/internal/assistant"
	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 64 << 10

// SessionService is the boundary the handlers drive.
type SessionService interface {
	NewSession() (string, assistant.Reply)
	SubmitMessage(ctx context.Context, id, text string) (assistant.Reply, error)
	ResetSession(id string) (assistant.Reply, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	service SessionService
	checks  map[string]HealthCheck
	logger  logger.Logger
	mux     *http.ServeMux
}

func New(service SessionService, checks map[string]HealthCheck, log logger.Logger) *Server {
	s := &Server{
		service: service,
		checks:  checks,
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("POST /sessions/{id}/messages", s.handleSubmitMessage)
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handleResetSession)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	s.logger.Debug("request handled", map[string]interface{}{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rec.status,
		"duration": time.Since(start).String(),
	})
}

type sessionResponse struct {
	SessionID     string `json:"sessionId"`
	AssistantText string `json:"assistantText"`
	Phase         string `json:"phase"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, reply := s.service.NewSession()
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:     id,
		AssistantText: reply.AssistantText,
		Phase:         string(reply.Phase),
	})
}

func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req messageRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, apperrors.NewInvalidRequestError("body must be a JSON object with a message field"))
		return
	}

	reply, err := s.service.SubmitMessage(r.Context(), id, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     id,
		AssistantText: reply.AssistantText,
		Phase:         string(reply.Phase),
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	reply, err := s.service.ResetSession(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     id,
		AssistantText: reply.AssistantText,
		Phase:         string(reply.Phase),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
	}

	resp := errorResponse{Code: string(stdErr.Code), Message: stdErr.Message}
	if stdErr.Code == apperrors.ErrCodeInvalidRequest {
		resp.Details = stdErr.Details
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
