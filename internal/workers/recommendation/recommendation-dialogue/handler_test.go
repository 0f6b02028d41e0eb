package recommendationdialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/genai/genaitest"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testProfile() models.RequirementProfile {
	return models.RequirementProfile{
		FeatureProfile: models.FeatureProfile{
			GPUIntensity:    models.LevelHigh,
			DisplayQuality:  models.LevelHigh,
			Portability:     models.LevelLow,
			Multitasking:    models.LevelHigh,
			ProcessingSpeed: models.LevelHigh,
		},
		Budget: 150000,
	}
}

func testShortlist() []models.ScoredCandidate {
	return []models.ScoredCandidate{
		{Item: models.CandidateItem{Name: "Lenovo ThinkPad X1", Price: 130000, Specs: map[string]string{"Core": "i7", "RAM Size": "16GB"}}, Score: 5},
		{Item: models.CandidateItem{Name: "Dell Inspiron", Price: 35000, Description: "i5, 8GB"}, Score: 3},
		{Item: models.CandidateItem{Name: "ASUS ROG", Price: 120000, Specs: map[string]string{"Graphics Processor": "NVIDIA RTX"}}, Score: 4},
	}
}

func testSession() *models.Session {
	p := testProfile()
	return &models.Session{ID: "s-1", Phase: models.PhaseShortlisted, Profile: &p, Shortlist: testShortlist()}
}

func newHandler(t *testing.T, completer *genaitest.Completer, flagged ...string) *Handler {
	gate := moderationgate.NewHandler(moderationgate.LoadConfig(), genaitest.NewModerator(flagged...), logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), completer, gate, logger.NewTestLogger(t))
}

// ==========================
// Initialize
// ==========================

func TestInitialize_SummaryByDecreasingPrice(t *testing.T) {
	transcript, err := Initialize(testProfile(), testShortlist())
	require.NoError(t, err)
	require.Equal(t, 2, transcript.Len())

	system := transcript[0]
	assert.Equal(t, models.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "1. Lenovo ThinkPad X1 : i7, 16GB, Rs 130000")
	assert.Contains(t, system.Content, "2. ASUS ROG : NVIDIA RTX, Rs 120000")
	assert.Contains(t, system.Content, "3. Dell Inspiron : i5, 8GB, Rs 35000")

	user := transcript[1]
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, strings.HasPrefix(user.Content, "These are the user's products: ["))
	assert.Contains(t, user.Content, `"name":"Dell Inspiron"`)
}

func TestInitialize_DoesNotReorderShortlist(t *testing.T) {
	shortlist := testShortlist()
	_, err := Initialize(testProfile(), shortlist)
	require.NoError(t, err)
	assert.Equal(t, "Lenovo ThinkPad X1", shortlist[0].Item.Name)
	assert.Equal(t, "Dell Inspiron", shortlist[1].Item.Name)
}

// ==========================
// Open / Respond
// ==========================

func TestOpen(t *testing.T) {
	completer := genaitest.NewCompleter("1. Lenovo ThinkPad X1 ...")
	h := newHandler(t, completer)
	sess := testSession()

	reply, err := h.Open(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "1. Lenovo ThinkPad X1 ...", reply)

	require.Equal(t, 4, sess.Recommendation.Len())
	assert.Equal(t, ProfilePrefix+" "+testProfile().Canonical(), sess.Recommendation[2].Content)
	last, _ := sess.Recommendation.Last()
	assert.Equal(t, models.RoleAssistant, last.Role)

	reqs := completer.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].System)
	assert.Len(t, reqs[0].Messages, 3)
}

func TestOpen_RequiresShortlist(t *testing.T) {
	h := newHandler(t, genaitest.NewCompleter())
	_, err := h.Open(context.Background(), &models.Session{ID: "s-1"})
	assert.ErrorIs(t, err, ErrNoShortlist)
}

func TestOpen_FlaggedRecommendation(t *testing.T) {
	h := newHandler(t, genaitest.NewCompleter("something forbidden"), "forbidden")
	sess := testSession()

	_, err := h.Open(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrModerationFlagged))
	assert.Equal(t, 3, sess.Recommendation.Len())
}

func TestRespond(t *testing.T) {
	completer := genaitest.NewCompleter("summary", "The ThinkPad has better battery life.")
	h := newHandler(t, completer)
	sess := testSession()

	_, err := h.Open(context.Background(), sess)
	require.NoError(t, err)

	reply, err := h.Respond(context.Background(), sess, "Which one lasts longer on battery?")
	require.NoError(t, err)
	assert.Equal(t, "The ThinkPad has better battery life.", reply)
	assert.Equal(t, 6, sess.Recommendation.Len())
	assert.Nil(t, sess.Elicitation)
}

func TestRespond_FlaggedUserText(t *testing.T) {
	completer := genaitest.NewCompleter("summary")
	h := newHandler(t, completer, "forbidden")
	sess := testSession()
	_, err := h.Open(context.Background(), sess)
	require.NoError(t, err)

	_, err = h.Respond(context.Background(), sess, "forbidden words")
	assert.True(t, errors.Is(err, apperrors.ErrModerationFlagged))
	assert.Equal(t, 4, sess.Recommendation.Len())
	assert.Len(t, completer.Requests(), 1)
}

func TestRespond_CapabilityFailure(t *testing.T) {
	completer := genaitest.NewCompleter("summary")
	h := newHandler(t, completer)
	sess := testSession()
	_, err := h.Open(context.Background(), sess)
	require.NoError(t, err)

	_, err = h.Respond(context.Background(), sess, "and gaming?")
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavailable))
}
