package validaterecommendation

import (
	"fmt"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
)

const (
	TaskType = "validate-recommendation"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Validate keeps candidates scoring at least MinScore, preserving order.
// An empty result is ErrNoCandidatesMatch.
func (h *Handler) Validate(scored []models.ScoredCandidate) ([]models.ScoredCandidate, error) {
	kept := make([]models.ScoredCandidate, 0, len(scored))
	for _, c := range scored {
		if c.Score >= h.config.MinScore {
			kept = append(kept, c)
		}
	}

	h.logger.Info("shortlist validated", map[string]interface{}{
		"candidates": len(scored),
		"kept":       len(kept),
		"minScore":   h.config.MinScore,
	})

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: none of %d candidates scored %d or more",
			apperrors.ErrNoCandidatesMatch, len(scored), h.config.MinScore)
	}
	return kept, nil
}
