package mapfeatures

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/genai/genaitest"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const classified = "{'GPU intensity': 'medium','Display quality':'medium','Portability':'medium','Multitasking':'high','Processing speed':'medium'}"

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func dellInspiron() models.CandidateItem {
	return models.CandidateItem{
		Name:        "Dell Inspiron",
		Price:       35000,
		Description: "Intel Core i5, 8GB RAM, 15.6\" 1920x1080, 2.5 kg, Intel UHD GPU",
	}
}

func newGate(t *testing.T, flagged ...string) *moderationgate.Handler {
	return moderationgate.NewHandler(moderationgate.LoadConfig(), genaitest.NewModerator(flagged...), logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestMap_ClassifiesAndCaches(t *testing.T) {
	mr, rdb := setupRedis(t)
	completer := genaitest.NewCompleter(classified)
	h := NewHandler(LoadConfig(), completer, newGate(t), rdb, logger.NewTestLogger(t))

	fp, text, err := h.Map(context.Background(), dellInspiron())
	require.NoError(t, err)
	assert.Equal(t, models.LevelHigh, fp.Multitasking)
	assert.Equal(t, fp.Canonical(), text)

	key := h.cacheKey(dellInspiron())
	assert.Contains(t, key, "catalog:features:")
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, fp.Canonical(), cached)
	assert.Equal(t, 24*time.Hour, mr.TTL(key))

	// Second lookup is served from the cache.
	fp2, _, err := h.Map(context.Background(), dellInspiron())
	require.NoError(t, err)
	assert.Equal(t, fp, fp2)
	assert.Len(t, completer.Requests(), 1)
}

func TestMap_PartialIsNotCached(t *testing.T) {
	mr, rdb := setupRedis(t)
	completer := genaitest.NewCompleter("{'GPU intensity': 'high', 'Display quality': 'great'}")
	h := NewHandler(LoadConfig(), completer, newGate(t), rdb, logger.NewTestLogger(t))

	fp, _, err := h.Map(context.Background(), dellInspiron())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedProfile))
	assert.Equal(t, models.LevelHigh, fp.GPUIntensity)
	assert.Equal(t, models.LevelMissing, fp.DisplayQuality)
	assert.False(t, mr.Exists(h.cacheKey(dellInspiron())))
}

func TestMap_FlaggedOutput(t *testing.T) {
	_, rdb := setupRedis(t)
	completer := genaitest.NewCompleter("forbidden " + classified)
	h := NewHandler(LoadConfig(), completer, newGate(t, "forbidden"), rdb, logger.NewTestLogger(t))

	_, _, err := h.Map(context.Background(), dellInspiron())
	assert.True(t, errors.Is(err, apperrors.ErrModerationFlagged))
}

func TestMap_WithoutRedis(t *testing.T) {
	completer := genaitest.NewCompleter(classified, classified)
	h := NewHandler(LoadConfig(), completer, newGate(t), nil, logger.NewTestLogger(t))

	_, _, err := h.Map(context.Background(), dellInspiron())
	require.NoError(t, err)
	_, _, err = h.Map(context.Background(), dellInspiron())
	require.NoError(t, err)
	assert.Len(t, completer.Requests(), 2)
}

func TestMap_CacheErrorsFallThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	h := NewHandler(LoadConfig(), genaitest.NewCompleter(classified), newGate(t), rdb, logger.NewTestLogger(t))

	key := h.cacheKey(dellInspiron())
	mock.ExpectGet(key).SetErr(errors.New("connection reset"))
	mock.ExpectSet(key, "{'gpu intensity': 'medium', 'display quality': 'medium', 'portability': 'medium', 'multitasking': 'high', 'processing speed': 'medium'}", 24*time.Hour).
		SetErr(errors.New("connection reset"))

	fp, _, err := h.Map(context.Background(), dellInspiron())
	require.NoError(t, err)
	assert.Equal(t, models.LevelMedium, fp.GPUIntensity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribe_UsesSpecsWithoutDescription(t *testing.T) {
	text := describe(models.CandidateItem{
		Name:  "HP Pavilion",
		Specs: map[string]string{"RAM Size": "16GB", "Core": "i5"},
	})
	assert.Equal(t, "Classify the following laptop: HP Pavilion. Core: i5. RAM Size: 16GB.", text)
}
