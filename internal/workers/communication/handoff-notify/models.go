package handoffnotify

import (
	"time"

	"shopassist/internal/models"
)

const EventType = "shopassist.handoff.requested"

// Reason names why a session was handed to a human.
type Reason string

const (
	ReasonNoCandidatesMatch Reason = "NO_CANDIDATES_MATCH"
)

// Event is the payload published when a session needs a human agent.
type Event struct {
	SessionID string                     `json:"sessionId"`
	Reason    Reason                     `json:"reason"`
	Profile   *models.RequirementProfile `json:"profile,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}
