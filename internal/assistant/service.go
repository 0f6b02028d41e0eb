// Package assistant is the session boundary: it owns every session and runs
// one turn at a time per session.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
	"shopassist/internal/common/observability"
	"shopassist/internal/models"
	"shopassist/internal/workers/conversation/elicitation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TerminatedMessage is shown when moderation ends a session.
const TerminatedMessage = "Sorry, this conversation has been ended because some content was flagged. Please reset the session to start again."

type Reply struct {
	AssistantText string       `json:"assistantText"`
	Phase         models.Phase `json:"phase"`
}

// Eliciter runs turns while a session is Eliciting.
type Eliciter interface {
	Initialize() models.Transcript
	Turn(ctx context.Context, sess *models.Session, text string) (elicitation.Outcome, error)
}

// Responder answers questions while a session is Recommending.
type Responder interface {
	Respond(ctx context.Context, sess *models.Session, text string) (string, error)
}

type Config struct {
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	TurnTimeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SessionTTL:      time.Hour,
		CleanupInterval: 10 * time.Minute,
		TurnTimeout:     90 * time.Second,
	}
}

type Service struct {
	config    *Config
	store     *Store
	eliciter  Eliciter
	responder Responder
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

// NewService wires the session boundary. obs may be nil.
func NewService(config *Config, eliciter Eliciter, responder Responder, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		config:    config,
		store:     NewStore(config.SessionTTL, config.CleanupInterval),
		eliciter:  eliciter,
		responder: responder,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "assistant"}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewSession creates an Eliciting session and returns its id and greeting.
func (s *Service) NewSession() (string, Reply) {
	sess := s.fresh(uuid.NewString())
	s.store.put(sess)
	s.logger.Info("session created", map[string]interface{}{"sessionId": sess.ID})
	return sess.ID, greeting(sess)
}

// ResetSession replaces the session wholesale with a fresh Eliciting one.
func (s *Service) ResetSession(id string) (Reply, error) {
	e, ok := s.store.get(id)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess = s.fresh(id)

	s.logger.Info("session reset", map[string]interface{}{"sessionId": id})
	return greeting(e.sess), nil
}

// Session returns a snapshot of the session.
func (s *Service) Session(id string) (*models.Session, error) {
	e, ok := s.store.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), nil
}

// SubmitMessage runs one turn. The turn works on a clone that replaces the
// stored session only when the turn commits; on any error the stored
// session is unchanged, except that flagged content terminates it.
func (s *Service) SubmitMessage(ctx context.Context, id, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, apperrors.NewInvalidRequestError("message must not be empty")
	}

	e, ok := s.store.get(id)
	if !ok {
		return Reply{}, fmt.Errorf("%w: %s", apperrors.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	phase := e.sess.Phase
	if phase == models.PhaseTerminated {
		return Reply{}, fmt.Errorf("%w: %s", apperrors.ErrSessionTerminated, id)
	}

	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "assistant.turn",
		attribute.String("session.id", id),
		attribute.String("session.phase", string(phase)),
	)
	defer span.End()

	if s.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TurnTimeout)
		defer cancel()
	}

	clone := e.sess.Clone()
	reply, outcome, err := s.dispatch(ctx, e, clone, text)

	switch {
	case errors.Is(err, apperrors.ErrModerationFlagged):
		terminated := e.sess.Clone()
		terminated.Phase = models.PhaseTerminated
		terminated.UpdatedAt = s.now()
		e.sess = terminated
		outcome = "moderation_flagged"
		reply = Reply{AssistantText: TerminatedMessage, Phase: models.PhaseTerminated}
		err = nil
		s.logger.Warn("session terminated by moderation", map[string]interface{}{"sessionId": id})
	case err != nil:
		outcome = string(apperrors.Normalize(err).Code)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("turn failed", map[string]interface{}{
			"sessionId": id,
			"phase":     string(phase),
			"error":     err.Error(),
		})
	}

	duration := time.Since(start)
	metrics.TurnsTotal.WithLabelValues(string(phase), outcome).Inc()
	metrics.TurnDuration.WithLabelValues(string(phase)).Observe(duration.Seconds())
	s.obs.RecordTurn(ctx, string(phase), outcome, duration)
	span.SetAttributes(attribute.String("turn.outcome", outcome))

	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// dispatch runs the turn for the session's phase and commits the clone when
// the turn says so.
func (s *Service) dispatch(ctx context.Context, e *entry, clone *models.Session, text string) (Reply, string, error) {
	switch clone.Phase {
	case models.PhaseEliciting:
		out, err := s.eliciter.Turn(ctx, clone, text)
		if err != nil {
			return Reply{}, "", err
		}
		phase := clone.Phase
		if out.Commit {
			clone.UpdatedAt = s.now()
			e.sess = clone
		} else {
			phase = e.sess.Phase
		}
		return Reply{AssistantText: out.Reply, Phase: phase}, string(out.Result), nil

	case models.PhaseRecommending:
		answer, err := s.responder.Respond(ctx, clone, text)
		if err != nil {
			return Reply{}, "", err
		}
		clone.UpdatedAt = s.now()
		e.sess = clone
		return Reply{AssistantText: answer, Phase: clone.Phase}, "answered", nil
	}

	return Reply{}, "", fmt.Errorf("no turn handler for phase %s", clone.Phase)
}

func (s *Service) fresh(id string) *models.Session {
	now := s.now()
	return &models.Session{
		ID:          id,
		Phase:       models.PhaseEliciting,
		Elicitation: s.eliciter.Initialize(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func greeting(sess *models.Session) Reply {
	text := ""
	if last, ok := sess.Elicitation.Last(); ok {
		text = last.Content
	}
	return Reply{AssistantText: text, Phase: sess.Phase}
}
