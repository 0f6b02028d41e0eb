package models

// CandidateItem is one catalog row. Items are shared read-only between
// sessions once loaded.
type CandidateItem struct {
	Name        string            `json:"name"`
	Brand       string            `json:"brand,omitempty"`
	Price       int               `json:"price"`
	Description string            `json:"description,omitempty"`
	Specs       map[string]string `json:"specs,omitempty"`
	FeatureText string            `json:"featureText,omitempty"`
	Features    FeatureProfile    `json:"features"`
}

// ScoredCandidate pairs an item with the number of requirement keys it meets.
type ScoredCandidate struct {
	Item  CandidateItem `json:"item"`
	Score int           `json:"score"`
}
