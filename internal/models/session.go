package models

import "time"

type Phase string

const (
	PhaseEliciting    Phase = "ELICITING"
	PhaseConfirmed    Phase = "CONFIRMED"
	PhaseShortlisted  Phase = "SHORTLISTED"
	PhaseRecommending Phase = "RECOMMENDING"
	PhaseTerminated   Phase = "TERMINATED"
)

func (p Phase) String() string {
	return string(p)
}

// CanTransition reports whether from -> to is a legal phase change.
// Terminated -> Eliciting only happens through a session reset.
func CanTransition(from, to Phase) bool {
	if to == PhaseTerminated {
		return from != PhaseTerminated
	}
	switch from {
	case PhaseEliciting:
		return to == PhaseConfirmed
	case PhaseConfirmed:
		return to == PhaseShortlisted
	case PhaseShortlisted:
		return to == PhaseRecommending
	}
	return false
}

// Session is the whole per-conversation state.
type Session struct {
	ID             string              `json:"id"`
	Phase          Phase               `json:"phase"`
	Elicitation    Transcript          `json:"elicitation"`
	Recommendation Transcript          `json:"recommendation"`
	Profile        *RequirementProfile `json:"profile,omitempty"`
	Shortlist      []ScoredCandidate   `json:"shortlist,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy. Catalog items inside the shortlist are shared
// read-only and only the slice is copied.
func (s *Session) Clone() *Session {
	c := *s
	c.Elicitation = s.Elicitation.Clone()
	c.Recommendation = s.Recommendation.Clone()
	if s.Profile != nil {
		p := *s.Profile
		c.Profile = &p
	}
	if s.Shortlist != nil {
		c.Shortlist = make([]ScoredCandidate, len(s.Shortlist))
		copy(c.Shortlist, s.Shortlist)
	}
	return &c
}
