package matchcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	validaterecommendation "shopassist/internal/workers/catalog/validate-recommendation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type staticCatalog []models.CandidateItem

func (c staticCatalog) Items() []models.CandidateItem { return c }

func fp(gpu, display, port, multi, speed models.Level) models.FeatureProfile {
	return models.FeatureProfile{
		GPUIntensity:    gpu,
		DisplayQuality:  display,
		Portability:     port,
		Multitasking:    multi,
		ProcessingSpeed: speed,
	}
}

const (
	L = models.LevelLow
	M = models.LevelMedium
	H = models.LevelHigh
	X = models.LevelMissing
)

func testCatalog() staticCatalog {
	return staticCatalog{
		{Name: "Dell Inspiron", Price: 35000, Features: fp(M, M, M, H, M)},
		{Name: "Lenovo ThinkPad X1 Carbon", Price: 130000, Features: fp(M, H, H, H, H)},
		{Name: "ASUS ROG Strix G", Price: 120000, Features: fp(H, H, M, H, H)},
		{Name: "Apple MacBook Pro", Price: 280000, Features: fp(M, H, M, H, H)},
		{Name: "HP Pavilion", Price: 55000, Features: fp(L, M, M, M, M)},
		{Name: "Acer Aspire 3", Price: 28000, Features: fp(L, L, M, L, L)},
	}
}

func profile(gpu, display, port, multi, speed models.Level, budget int) models.RequirementProfile {
	return models.RequirementProfile{FeatureProfile: fp(gpu, display, port, multi, speed), Budget: budget}
}

func newTestHandler(t *testing.T, catalog Catalog) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(LoadConfig(), catalog, validaterecommendation.NewHandler(validaterecommendation.LoadConfig(), log), log)
}

// ==========================
// Scoring
// ==========================

func TestScore_CountsMetKeys(t *testing.T) {
	p := profile(H, H, L, H, H, 150000)

	assert.Equal(t, 5, Score(p, models.CandidateItem{Features: fp(H, H, M, H, H)}))
	assert.Equal(t, 4, Score(p, models.CandidateItem{Features: fp(M, H, H, H, H)}))
	assert.Equal(t, 2, Score(p, models.CandidateItem{Features: fp(L, L, L, H, L)}))
}

func TestScore_MissingNeverMeets(t *testing.T) {
	p := profile(L, L, L, L, L, 150000)
	assert.Equal(t, 0, Score(p, models.CandidateItem{Features: fp(X, X, X, X, X)}))
	assert.Equal(t, 3, Score(p, models.CandidateItem{Features: fp(L, X, L, X, L)}))
}

func TestScore_Bounds(t *testing.T) {
	levels := []models.Level{X, L, M, H}
	p := profile(M, H, L, M, H, 100000)
	for _, a := range levels {
		for _, b := range levels {
			s := Score(p, models.CandidateItem{Features: fp(a, b, a, b, a)})
			assert.GreaterOrEqual(t, s, 0)
			assert.LessOrEqual(t, s, 5)
		}
	}
}

// ==========================
// Matching
// ==========================

func TestMatch_BudgetFilterAndRanking(t *testing.T) {
	got := Match(profile(H, H, L, H, H, 150000), testCatalog(), 3)

	require.Len(t, got, 3)
	assert.Equal(t, "ASUS ROG Strix G", got[0].Item.Name)
	assert.Equal(t, 5, got[0].Score)
	assert.Equal(t, "Lenovo ThinkPad X1 Carbon", got[1].Item.Name)
	assert.Equal(t, 4, got[1].Score)
	for _, c := range got {
		assert.LessOrEqual(t, c.Item.Price, 150000)
	}
}

func TestMatch_StableOnTies(t *testing.T) {
	items := []models.CandidateItem{
		{Name: "first", Price: 30000, Features: fp(M, M, M, M, M)},
		{Name: "second", Price: 31000, Features: fp(M, M, M, M, M)},
		{Name: "third", Price: 32000, Features: fp(M, M, M, M, M)},
	}
	got := Match(profile(M, M, M, M, M, 50000), items, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{got[0].Item.Name, got[1].Item.Name, got[2].Item.Name})
}

func TestMatch_Deterministic(t *testing.T) {
	p := profile(M, M, M, M, M, 150000)
	assert.Equal(t, Match(p, testCatalog(), 3), Match(p, testCatalog(), 3))
}

func TestMatch_PriceEqualToBudgetIncluded(t *testing.T) {
	got := Match(profile(L, L, L, L, L, 28000), testCatalog(), 3)
	require.Len(t, got, 1)
	assert.Equal(t, "Acer Aspire 3", got[0].Item.Name)
}

func TestMatch_NothingAffordable(t *testing.T) {
	assert.Empty(t, Match(profile(L, L, L, L, L, 25000), testCatalog(), 3))
}

// ==========================
// Execute
// ==========================

func TestExecute_Shortlisted(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	out, err := h.Execute(context.Background(), &Input{
		Profile: "{'gpu intensity': 'high', 'display quality': 'high', 'portability': 'low', 'multitasking': 'high', 'processing speed': 'high', 'budget': '150000'}",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeShortlisted, out.Outcome)
	require.NotEmpty(t, out.Shortlist)
	for _, c := range out.Shortlist {
		assert.Greater(t, c.Score, 2)
	}
}

func TestExecute_BudgetTooLow(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	out, err := h.Execute(context.Background(), &Input{
		Profile: "{'gpu intensity': 'low', 'display quality': 'low', 'portability': 'low', 'multitasking': 'low', 'processing speed': 'low', 'budget': '20000'}",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBudgetTooLow, out.Outcome)
	assert.Empty(t, out.Shortlist)
}

func TestExecute_NoCandidatesMatch(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	out, err := h.Execute(context.Background(), &Input{
		Profile: "{'gpu intensity': 'high', 'display quality': 'high', 'portability': 'high', 'multitasking': 'high', 'processing speed': 'high', 'budget': '30000'}",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoCandidatesMatch, out.Outcome)
	assert.Empty(t, out.Shortlist)
}

func TestExecute_MalformedProfile(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	_, err := h.Execute(context.Background(), &Input{Profile: "no dictionary here"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedProfile))
	assert.Equal(t, apperrors.ErrCodeMalformedProfile, apperrors.Normalize(err).Code)
}

// ==========================
// Job Variables
// ==========================

func createMockJob(key int64, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "shopassist-recommendation",
		ElementId:          "Activity_MatchCatalog",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          variables,
	}}
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	vars, err := json.Marshal(map[string]interface{}{
		"profile":  "{'gpu intensity': 'high', 'display quality': 'high', 'portability': 'medium', 'multitasking': 'high', 'processing speed': 'high', 'budget': '150000'}",
		"customer": "ignored",
	})
	require.NoError(t, err)

	input, err := h.parseInput(createMockJob(1, string(vars)))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, OutcomeShortlisted, out.Outcome)
	assert.Equal(t, 150000, out.Budget)
	require.NotEmpty(t, out.Shortlist)
}

func TestHandler_ParseInputWithInvalidJSON(t *testing.T) {
	h := newTestHandler(t, testCatalog())

	_, err := h.parseInput(createMockJob(2, "{not json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedProfile))
}
