package models

import (
	"fmt"
	"strings"
)

// Level is an ordinal requirement or capability level. LevelMissing is the
// zero value and ranks below LevelLow; it never appears in a valid
// RequirementProfile.
type Level int

const (
	LevelMissing Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "missing"
	}
}

// Meets reports whether a candidate at level l satisfies requirement req.
func (l Level) Meets(req Level) bool {
	return l != LevelMissing && l >= req
}

// ParseLevel accepts low, medium or high in any case, ignoring surrounding
// whitespace.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	}
	return LevelMissing, fmt.Errorf("invalid level %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), "missing") || len(b) == 0 {
		*l = LevelMissing
		return nil
	}
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
