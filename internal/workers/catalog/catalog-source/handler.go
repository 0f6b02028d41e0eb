package catalogsource

import (
	"context"
	"fmt"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	extractprofile "shopassist/internal/workers/conversation/extract-profile"
)

const (
	TaskType = "catalog-source"
)

// FeatureMapper classifies an item that carries no feature text.
type FeatureMapper interface {
	Map(ctx context.Context, item models.CandidateItem) (models.FeatureProfile, string, error)
}

// Catalog is the loaded item list. It is never mutated after Load returns
// and is shared by every session.
type Catalog struct {
	items []models.CandidateItem
}

func NewCatalog(items []models.CandidateItem) *Catalog {
	return &Catalog{items: items}
}

func (c *Catalog) Items() []models.CandidateItem {
	return c.items
}

func (c *Catalog) Len() int {
	return len(c.items)
}

type Handler struct {
	config *Config
	source Source
	mapper FeatureMapper
	logger logger.Logger
}

// NewHandler builds a loader. mapper may be nil, in which case items without
// feature text keep every level missing.
func NewHandler(config *Config, source Source, mapper FeatureMapper, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		source: source,
		mapper: mapper,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Load reads every row, parses prices and resolves feature profiles. Rows
// with an unreadable price or no name are skipped.
func (h *Handler) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	rows, err := h.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCatalogUnavailable, err)
	}

	items := make([]models.CandidateItem, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		item, ok := h.toItem(ctx, i, row)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no usable catalog rows", apperrors.ErrCatalogUnavailable)
	}

	h.logger.Info("catalog loaded", map[string]interface{}{
		"items":    len(items),
		"skipped":  skipped,
		"duration": time.Since(start).String(),
	})
	return NewCatalog(items), nil
}

func (h *Handler) toItem(ctx context.Context, index int, row Row) (models.CandidateItem, bool) {
	if row.Name == "" {
		h.logger.Warn("skipping catalog row without name", map[string]interface{}{"row": index})
		return models.CandidateItem{}, false
	}

	price, err := extractprofile.ParseAmount(row.Price)
	if err != nil {
		h.logger.Warn("skipping catalog row with unreadable price", map[string]interface{}{
			"row":   index,
			"item":  row.Name,
			"error": err.Error(),
		})
		return models.CandidateItem{}, false
	}

	item := models.CandidateItem{
		Name:        row.Name,
		Brand:       row.Brand,
		Price:       price,
		Description: row.Description,
		Specs:       row.Specs,
		FeatureText: row.FeatureText,
	}

	switch {
	case row.FeatureText != "":
		fp, err := extractprofile.ExtractFeatures(row.FeatureText)
		if err != nil {
			h.logger.Warn("incomplete feature text", map[string]interface{}{
				"item":  row.Name,
				"error": err.Error(),
			})
		}
		item.Features = fp
	case h.mapper != nil:
		fp, text, err := h.mapper.Map(ctx, item)
		if err != nil {
			h.logger.Warn("feature classification failed", map[string]interface{}{
				"item":  row.Name,
				"error": err.Error(),
			})
		}
		item.Features = fp
		item.FeatureText = text
	default:
		h.logger.Warn("catalog row has no feature text", map[string]interface{}{"item": row.Name})
	}
	return item, true
}
