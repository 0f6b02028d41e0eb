package mapfeatures

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
	"shopassist/internal/models"
	extractprofile "shopassist/internal/workers/conversation/extract-profile"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"

	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "map-features"
)

const classifierPrompt = `You are a Laptop Specifications Classifier whose job is to extract the key features of laptops.
For the laptop description in the user message:
Step 1: Extract the laptop's primary features from the description.
Step 2: Store them against these keys: GPU intensity (type of the graphics processor), Display quality (display type, screen resolution, display size), Portability (laptop weight), Multitasking (RAM size), Processing speed (CPU type, core, clock speed).
Step 3: Classify each key as 'low', 'medium' or 'high' using these rules:
#####
GPU intensity: low for integrated or entry-level dedicated graphics like Intel UHD; medium for mid-range dedicated graphics like M1, AMD Radeon, Intel Iris; high for high-end dedicated graphics like Nvidia.
Display quality: low for resolution below Full HD (e.g. 1366x768); medium for Full HD (1920x1080) or higher; high for high-resolution displays (e.g. 4K, Retina) with excellent color accuracy and features like HDR.
Portability: low if the laptop weighs less than 1.51 kg; medium between 1.51 kg and 2.51 kg; high above 2.51 kg.
Multitasking: low for 8GB or 12GB RAM; medium for 16GB; high for 32GB or 64GB.
Processing speed: low for entry-level processors like Intel Core i3, AMD Ryzen 3; medium for mid-range processors like Intel Core i5, AMD Ryzen 5; high for Intel Core i7, AMD Ryzen 7 or higher.
#####
Output only the dictionary, for example:
{'GPU intensity': 'medium', 'Display quality': 'high', 'Portability': 'medium', 'Multitasking': 'high', 'Processing speed': 'high'}`

// Gate screens completion output before it is parsed.
type Gate interface {
	Require(ctx context.Context, source moderationgate.Source, text string) error
}

// Handler classifies catalog items that carry no feature text, caching the
// classification in Redis when a client is configured.
type Handler struct {
	config    *Config
	completer genai.Completer
	gate      Gate
	redis     *redis.Client
	logger    logger.Logger
}

func NewHandler(config *Config, completer genai.Completer, gate Gate, rdb *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		completer: completer,
		gate:      gate,
		redis:     rdb,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Map returns the item's feature profile and its canonical text. A partial
// classification is returned together with a MalformedProfileError and is
// not cached.
func (h *Handler) Map(ctx context.Context, item models.CandidateItem) (models.FeatureProfile, string, error) {
	key := h.cacheKey(item)

	if fp, ok := h.lookup(ctx, key); ok {
		return fp, fp.Canonical(), nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out, err := h.completer.Complete(ctx, genai.Request{
		System: classifierPrompt,
		Messages: []models.Turn{
			{Role: models.RoleUser, Content: describe(item)},
		},
	})
	if err != nil {
		return models.FeatureProfile{}, "", err
	}
	if err := h.gate.Require(ctx, moderationgate.SourceFeatures, out); err != nil {
		return models.FeatureProfile{}, "", err
	}

	fp, err := extractprofile.ExtractFeatures(out)
	if err != nil {
		h.logger.Warn("partial feature classification", map[string]interface{}{
			"item":  item.Name,
			"error": err.Error(),
		})
		return fp, fp.Canonical(), err
	}

	h.store(ctx, key, fp)
	return fp, fp.Canonical(), nil
}

func (h *Handler) lookup(ctx context.Context, key string) (models.FeatureProfile, bool) {
	if h.redis == nil {
		return models.FeatureProfile{}, false
	}

	cached, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("feature cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
			metrics.FeatureCacheLookups.WithLabelValues("error").Inc()
		} else {
			metrics.FeatureCacheLookups.WithLabelValues("miss").Inc()
		}
		return models.FeatureProfile{}, false
	}

	fp, err := extractprofile.ExtractFeatures(cached)
	if err != nil {
		metrics.FeatureCacheLookups.WithLabelValues("invalid").Inc()
		return models.FeatureProfile{}, false
	}
	metrics.FeatureCacheLookups.WithLabelValues("hit").Inc()
	return fp, true
}

func (h *Handler) store(ctx context.Context, key string, fp models.FeatureProfile) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Set(ctx, key, fp.Canonical(), h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("feature cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (h *Handler) cacheKey(item models.CandidateItem) string {
	sum := sha256.Sum256([]byte(item.Name + "|" + item.Description))
	return fmt.Sprintf("%s:%s", h.config.KeyPrefix, hex.EncodeToString(sum[:]))
}

func describe(item models.CandidateItem) string {
	if item.Description != "" {
		return fmt.Sprintf("Classify the following laptop: %s. %s", item.Name, item.Description)
	}
	text := "Classify the following laptop: " + item.Name + "."
	for _, k := range sortedKeys(item.Specs) {
		text += fmt.Sprintf(" %s: %s.", k, item.Specs[k])
	}
	return text
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
