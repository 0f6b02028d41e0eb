package models

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "shopassist/internal/common/errors"
)

// BudgetFloor is the lowest budget the catalog can serve.
const BudgetFloor = 25000

// Normalized profile keys, in canonical order.
const (
	KeyGPUIntensity    = "gpu intensity"
	KeyDisplayQuality  = "display quality"
	KeyPortability     = "portability"
	KeyMultitasking    = "multitasking"
	KeyProcessingSpeed = "processing speed"
	KeyBudget          = "budget"
)

// FeatureKeys lists the five ordinal keys.
var FeatureKeys = []string{
	KeyGPUIntensity,
	KeyDisplayQuality,
	KeyPortability,
	KeyMultitasking,
	KeyProcessingSpeed,
}

// FeatureProfile holds the five ordinal levels of a user requirement or a
// catalog item.
type FeatureProfile struct {
	GPUIntensity    Level `json:"gpuIntensity"`
	DisplayQuality  Level `json:"displayQuality"`
	Portability     Level `json:"portability"`
	Multitasking    Level `json:"multitasking"`
	ProcessingSpeed Level `json:"processingSpeed"`
}

// Get returns the level stored under a normalized key.
func (f FeatureProfile) Get(key string) Level {
	switch key {
	case KeyGPUIntensity:
		return f.GPUIntensity
	case KeyDisplayQuality:
		return f.DisplayQuality
	case KeyPortability:
		return f.Portability
	case KeyMultitasking:
		return f.Multitasking
	case KeyProcessingSpeed:
		return f.ProcessingSpeed
	}
	return LevelMissing
}

// Set stores lvl under a normalized key and reports whether the key is known.
func (f *FeatureProfile) Set(key string, lvl Level) bool {
	switch key {
	case KeyGPUIntensity:
		f.GPUIntensity = lvl
	case KeyDisplayQuality:
		f.DisplayQuality = lvl
	case KeyPortability:
		f.Portability = lvl
	case KeyMultitasking:
		f.Multitasking = lvl
	case KeyProcessingSpeed:
		f.ProcessingSpeed = lvl
	default:
		return false
	}
	return true
}

// Canonical renders the feature text format stored alongside catalog rows.
func (f FeatureProfile) Canonical() string {
	parts := make([]string, 0, len(FeatureKeys))
	for _, k := range FeatureKeys {
		parts = append(parts, fmt.Sprintf("'%s': '%s'", k, f.Get(k)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RequirementProfile is the validated outcome of elicitation.
type RequirementProfile struct {
	FeatureProfile
	Budget int `json:"budget"`
}

// Validate checks that every level is present and that the budget reaches
// BudgetFloor.
func (p RequirementProfile) Validate() error {
	return p.ValidateFloor(BudgetFloor)
}

// ValidateFloor is Validate with an explicit budget floor. A budget below
// the floor is reported, never clamped.
func (p RequirementProfile) ValidateFloor(floor int) error {
	for _, k := range FeatureKeys {
		if p.Get(k) == LevelMissing {
			return apperrors.NewMalformedProfileError(k, "missing key")
		}
	}
	if p.Budget < floor {
		return fmt.Errorf("%w: budget %d is below %d", apperrors.ErrBudgetTooLow, p.Budget, floor)
	}
	return nil
}

// Canonical renders the profile in the structured text form the extractor
// reads back to an equal profile.
func (p RequirementProfile) Canonical() string {
	parts := make([]string, 0, len(FeatureKeys)+1)
	for _, k := range FeatureKeys {
		parts = append(parts, fmt.Sprintf("'%s': '%s'", k, p.Get(k)))
	}
	parts = append(parts, fmt.Sprintf("'%s': '%s'", KeyBudget, strconv.Itoa(p.Budget)))
	return "{" + strings.Join(parts, ", ") + "}"
}
