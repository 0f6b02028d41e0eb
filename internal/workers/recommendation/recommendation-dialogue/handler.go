package recommendationdialogue

import (
	"context"
	"errors"

	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"
)

const (
	TaskType = "recommendation-dialogue"
)

var ErrNoShortlist = errors.New("session has no profile or shortlist")

// Gate screens text before it enters the transcript.
type Gate interface {
	Require(ctx context.Context, source moderationgate.Source, text string) error
}

// Handler drives the conversation about a shortlist. It only touches the
// session's recommendation transcript; callers pass a clone and commit it
// on success.
type Handler struct {
	config    *Config
	completer genai.Completer
	gate      Gate
	logger    logger.Logger
}

func NewHandler(config *Config, completer genai.Completer, gate Gate, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		completer: completer,
		gate:      gate,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Open initializes the recommendation transcript and returns the first
// recommendation.
func (h *Handler) Open(ctx context.Context, sess *models.Session) (string, error) {
	if sess.Profile == nil || len(sess.Shortlist) == 0 {
		return "", ErrNoShortlist
	}

	transcript, err := Initialize(*sess.Profile, sess.Shortlist)
	if err != nil {
		return "", err
	}
	sess.Recommendation = transcript.Append(models.RoleUser, ProfilePrefix+" "+sess.Profile.Canonical())

	reply, err := h.reply(ctx, sess)
	if err != nil {
		return "", err
	}

	h.logger.Info("recommendation opened", map[string]interface{}{
		"sessionId": sess.ID,
		"shortlist": len(sess.Shortlist),
	})
	return reply, nil
}

// Respond answers a follow-up question about the shortlist.
func (h *Handler) Respond(ctx context.Context, sess *models.Session, text string) (string, error) {
	if err := h.gate.Require(ctx, moderationgate.SourceUser, text); err != nil {
		return "", err
	}
	sess.Recommendation = sess.Recommendation.Append(models.RoleUser, text)
	return h.reply(ctx, sess)
}

func (h *Handler) reply(ctx context.Context, sess *models.Session) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out, err := h.completer.Complete(ctx, genai.Request{Messages: sess.Recommendation})
	if err != nil {
		return "", err
	}
	if err := h.gate.Require(ctx, moderationgate.SourceRecommendation, out); err != nil {
		return "", err
	}
	sess.Recommendation = sess.Recommendation.Append(models.RoleAssistant, out)
	return out, nil
}
