package moderationgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
)

const (
	TaskType = "moderation-gate"
)

// Handler screens every externally sourced text before it is recorded or
// acted upon.
type Handler struct {
	config    *Config
	moderator genai.Moderator
	logger    logger.Logger
}

func NewHandler(config *Config, moderator genai.Moderator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		moderator: moderator,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Check classifies text. Empty text is Clear without calling the capability.
// A capability failure is returned as ErrServiceUnavailable, never as Flagged.
func (h *Handler) Check(ctx context.Context, source Source, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		metrics.ModerationChecks.WithLabelValues(string(source), Clear.String()).Inc()
		return Clear, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	flagged, err := h.moderator.Moderate(ctx, text)
	if err != nil {
		metrics.ModerationChecks.WithLabelValues(string(source), "error").Inc()
		if errors.Is(err, apperrors.ErrServiceUnavailable) {
			return Clear, err
		}
		return Clear, fmt.Errorf("%w: moderation: %v", apperrors.ErrServiceUnavailable, err)
	}

	verdict := Clear
	if flagged {
		verdict = Flagged
		h.logger.Warn("content flagged", map[string]interface{}{
			"source": string(source),
			"length": len(text),
		})
	}
	metrics.ModerationChecks.WithLabelValues(string(source), verdict.String()).Inc()
	return verdict, nil
}

// Require returns ErrModerationFlagged when text is Flagged.
func (h *Handler) Require(ctx context.Context, source Source, text string) error {
	verdict, err := h.Check(ctx, source, text)
	if err != nil {
		return err
	}
	if verdict == Flagged {
		return fmt.Errorf("%w: %s text", apperrors.ErrModerationFlagged, source)
	}
	return nil
}
