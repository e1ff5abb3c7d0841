package model

import (
	"strings"

	"github.com/google/uuid"
)

// Default values applied when an admin leaves a field blank.
const (
	DefaultEventIcon            = "Calendar"
	DefaultGroupIcon            = "Users"
	DefaultMemberIcon           = "User"
	DefaultCriterionDescription = "No description"
	DefaultCriterionWeight      = 1.0
	DefaultEvaluatorName        = "Evaluator"

	// MinPasswordLength is the shortest admin password accepted.
	MinPasswordLength = 4
)

// Identifier prefixes.
const (
	PrefixEvent      = "e"
	PrefixGroup      = "g"
	PrefixMember     = "m"
	PrefixCriterion  = "c"
	PrefixEvaluation = "ev"
)

// NewID returns a fresh identifier carrying the given prefix.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

var defaultCriteria = []struct{ name, description string }{
	{"Pitch", "Clarity and persuasiveness of the presentation"},
	{"Prototype", "Functionality and quality of what was built"},
	{"Creativity", "Originality of the approach"},
	{"Innovation", "Potential impact and novelty of the solution"},
}

// DefaultCriteria returns the criteria every new event starts with.
func DefaultCriteria(eventID string) []Criterion {
	out := make([]Criterion, 0, len(defaultCriteria))
	for _, d := range defaultCriteria {
		out = append(out, Criterion{
			ID:          NewID(PrefixCriterion),
			EventID:     eventID,
			Name:        d.name,
			Description: d.description,
			Weight:      DefaultCriterionWeight,
		})
	}
	return out
}

// NormalizeEvaluator folds an evaluator name for identity comparison.
func NormalizeEvaluator(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameEvaluator reports whether two evaluator names refer to the same person.
func SameEvaluator(a, b string) bool {
	return NormalizeEvaluator(a) == NormalizeEvaluator(b)
}
