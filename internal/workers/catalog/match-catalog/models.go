package matchcatalog

import "shopassist/internal/models"

type Outcome string

const (
	OutcomeShortlisted       Outcome = "SHORTLISTED"
	OutcomeNoCandidatesMatch Outcome = "NO_CANDIDATES_MATCH"
	OutcomeBudgetTooLow      Outcome = "BUDGET_TOO_LOW"
)

// Input carries the structured profile text produced by elicitation.
type Input struct {
	Profile string `json:"profile"`
}

type Output struct {
	Outcome   Outcome                  `json:"outcome"`
	Budget    int                      `json:"budget"`
	Shortlist []models.ScoredCandidate `json:"shortlist"`
}
