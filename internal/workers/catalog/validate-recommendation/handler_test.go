package validaterecommendation

import (
	"errors"
	"testing"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(pairs ...interface{}) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.ScoredCandidate{
			Item:  models.CandidateItem{Name: pairs[i].(string)},
			Score: pairs[i+1].(int),
		})
	}
	return out
}

func TestValidate_KeepsScoresAboveTwo(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	kept, err := h.Validate(scored("A", 5, "B", 2, "C", 3))
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "A", kept[0].Item.Name)
	assert.Equal(t, "C", kept[1].Item.Name)
}

func TestValidate_EmptyIsNoCandidatesMatch(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	for _, in := range [][]models.ScoredCandidate{nil, scored("A", 2, "B", 1, "C", 0)} {
		kept, err := h.Validate(in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNoCandidatesMatch))
		assert.Nil(t, kept)
	}
}

func TestValidate_CustomThreshold(t *testing.T) {
	h := NewHandler(&Config{MinScore: 5}, logger.NewTestLogger(t))

	kept, err := h.Validate(scored("A", 5, "B", 4))
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
