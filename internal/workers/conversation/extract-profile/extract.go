// Package extractprofile turns loosely formatted structured text, as produced
// by a completion, into typed profiles.
//
// The accepted form is the first brace-delimited span in the text, read as
// comma-separated "key: value" pairs. Keys and values may be single-quoted,
// double-quoted or bare. Matching is case-insensitive.
package extractprofile

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/models"
)

// ExtractRequirement reads all five levels and the budget. Any missing key,
// invalid level or unreadable budget yields a *MalformedProfileError. The
// budget floor is not checked here; see RequirementProfile.Validate.
func ExtractRequirement(text string) (models.RequirementProfile, error) {
	fields, err := parse(text)
	if err != nil {
		return models.RequirementProfile{}, err
	}

	var p models.RequirementProfile
	for _, k := range models.FeatureKeys {
		raw, ok := fields[k]
		if !ok {
			return models.RequirementProfile{}, apperrors.NewMalformedProfileError(k, "missing key")
		}
		lvl, err := parseLevel(raw)
		if err != nil {
			return models.RequirementProfile{}, apperrors.NewMalformedProfileError(k, err.Error())
		}
		p.Set(k, lvl)
	}

	raw, ok := fields[models.KeyBudget]
	if !ok {
		return models.RequirementProfile{}, apperrors.NewMalformedProfileError(models.KeyBudget, "missing key")
	}
	budget, err := ParseAmount(raw)
	if err != nil {
		return models.RequirementProfile{}, apperrors.NewMalformedProfileError(models.KeyBudget, err.Error())
	}
	p.Budget = budget
	return p, nil
}

// ExtractFeatures reads the five levels of a catalog item. Keys that are
// missing or invalid are left as LevelMissing and the first such problem is
// returned alongside the best-effort profile. A text with no structured span
// returns an empty profile and the error.
func ExtractFeatures(text string) (models.FeatureProfile, error) {
	fields, err := parse(text)
	if err != nil {
		return models.FeatureProfile{}, err
	}

	var fp models.FeatureProfile
	var firstErr error
	for _, k := range models.FeatureKeys {
		raw, ok := fields[k]
		if !ok {
			if firstErr == nil {
				firstErr = apperrors.NewMalformedProfileError(k, "missing key")
			}
			continue
		}
		lvl, err := parseLevel(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = apperrors.NewMalformedProfileError(k, err.Error())
			}
			continue
		}
		fp.Set(k, lvl)
	}
	return fp, firstErr
}

// parseLevel accepts exactly low, medium or high; the span is already
// lower-cased.
func parseLevel(raw string) (models.Level, error) {
	switch raw {
	case "low", "medium", "high":
		return models.ParseLevel(raw)
	}
	return models.LevelMissing, fmt.Errorf("invalid level %q", raw)
}

var (
	amountPrefixes = []string{"₹", "inr", "rs.", "rs"}
	amountSuffixes = []string{"inr", "rupees", "rs.", "rs", "/-"}
)

// ParseAmount reads a non-negative integer amount such as "150000",
// "1,50,000", "90,000 INR", "Rs. 45000/-" or "50000.00". Fractional parts
// must be zero. Text after the number is ignored once it is separated by a
// space, so "150000 INR approx" reads as 150000 while "50k" is rejected.
func ParseAmount(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range amountPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")

	j := 0
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j == 0 {
		return 0, fmt.Errorf("amount %q has no leading integer", raw)
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return 0, fmt.Errorf("amount %q: %v", raw, err)
	}

	rest := s[j:]
	if strings.HasPrefix(rest, ".") {
		k := 1
		for k < len(rest) && isDigit(rest[k]) {
			if rest[k] != '0' {
				return 0, fmt.Errorf("amount %q has a fractional part", raw)
			}
			k++
		}
		rest = rest[k:]
	}

	// Anything after a space is unit text and ignored; a currency word may
	// also sit directly against the digits.
	if rest == "" || rest[0] == ' ' || rest[0] == '/' {
		return n, nil
	}
	for _, u := range amountSuffixes {
		if strings.HasPrefix(rest, u) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("amount %q has unexpected trailing text %q", raw, rest)
}
