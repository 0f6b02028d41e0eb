package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopassist/internal/assistant"
	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Service Implementation
// ==========================

type MockService struct {
	mock.Mock
}

func (m *MockService) NewSession() (string, assistant.Reply) {
	args := m.Called()
	return args.String(0), args.Get(1).(assistant.Reply)
}

func (m *MockService) SubmitMessage(ctx context.Context, id, text string) (assistant.Reply, error) {
	args := m.Called(ctx, id, text)
	return args.Get(0).(assistant.Reply), args.Error(1)
}

func (m *MockService) ResetSession(id string) (assistant.Reply, error) {
	args := m.Called(id)
	return args.Get(0).(assistant.Reply), args.Error(1)
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// ==========================
// Tests
// ==========================

func TestCreateSession(t *testing.T) {
	svc := new(MockService)
	svc.On("NewSession").Return("abc", assistant.Reply{AssistantText: "Hello!", Phase: models.PhaseEliciting})
	srv := New(svc, nil, logger.NewTestLogger(t))

	rec, body := do(t, srv, http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc", body["sessionId"])
	assert.Equal(t, "Hello!", body["assistantText"])
	assert.Equal(t, "ELICITING", body["phase"])
}

func TestSubmitMessage(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitMessage", mock.Anything, "abc", "I edit videos").
		Return(assistant.Reply{AssistantText: "Do you travel often?", Phase: models.PhaseEliciting}, nil)
	srv := New(svc, nil, logger.NewTestLogger(t))

	rec, body := do(t, srv, http.MethodPost, "/sessions/abc/messages", `{"message": "I edit videos"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Do you travel often?", body["assistantText"])
	svc.AssertExpectations(t)
}

func TestSubmitMessage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("%w: abc", apperrors.ErrSessionNotFound), http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"terminated", fmt.Errorf("%w: abc", apperrors.ErrSessionTerminated), http.StatusConflict, "SESSION_TERMINATED"},
		{"unavailable", fmt.Errorf("%w: retries exhausted", apperrors.ErrServiceUnavailable), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("SubmitMessage", mock.Anything, "abc", "hi").Return(assistant.Reply{}, tt.err)
			srv := New(svc, nil, logger.NewTestLogger(t))

			rec, body := do(t, srv, http.MethodPost, "/sessions/abc/messages", `{"message":"hi"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestSubmitMessage_BadBody(t *testing.T) {
	svc := new(MockService)
	srv := New(svc, nil, logger.NewTestLogger(t))

	rec, body := do(t, srv, http.MethodPost, "/sessions/abc/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
	svc.AssertNotCalled(t, "SubmitMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetSession(t *testing.T) {
	svc := new(MockService)
	svc.On("ResetSession", "abc").Return(assistant.Reply{AssistantText: "Hello!", Phase: models.PhaseEliciting}, nil)
	srv := New(svc, nil, logger.NewTestLogger(t))

	rec, body := do(t, srv, http.MethodPost, "/sessions/abc/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ELICITING", body["phase"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(new(MockService), nil, logger.NewTestLogger(t))
	rec, _ := do(t, srv, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	healthy := New(new(MockService), map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return nil },
	}, logger.NewTestLogger(t))
	rec, body := do(t, healthy, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	degraded := New(new(MockService), map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return errors.New("connection refused") },
	}, logger.NewTestLogger(t))
	rec, body = do(t, degraded, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetrics(t *testing.T) {
	srv := New(new(MockService), nil, logger.NewTestLogger(t))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
