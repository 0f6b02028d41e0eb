package matchcatalog

import (
	"sort"

	"shopassist/internal/models"
)

// Score counts the requirement keys an item meets. A key is met when the
// item's level is at least the required level; a missing item level never
// meets.
func Score(profile models.RequirementProfile, item models.CandidateItem) int {
	score := 0
	for _, k := range models.FeatureKeys {
		if item.Features.Get(k).Meets(profile.Get(k)) {
			score++
		}
	}
	return score
}

// Match keeps items priced within budget, scores them and returns at most
// maxItems ordered by score descending. Ties keep catalog order.
func Match(profile models.RequirementProfile, items []models.CandidateItem, maxItems int) []models.ScoredCandidate {
	scored := make([]models.ScoredCandidate, 0, len(items))
	for _, item := range items {
		if item.Price > profile.Budget {
			continue
		}
		scored = append(scored, models.ScoredCandidate{Item: item, Score: Score(profile, item)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxItems > 0 && len(scored) > maxItems {
		scored = scored[:maxItems]
	}
	return scored
}
