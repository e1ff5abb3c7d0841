// Package model contains domain models passed between layers.
//
// JSON field names match the persisted local keys and the remote documents,
// so the same types round-trip through every store.
package model

// Event is a time-boxed evaluation campaign.
type Event struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Date             string `json:"date"`                       // calendar day, YYYY-MM-DD
	ResponseDeadline string `json:"responseDeadline,omitempty"` // calendar day; empty means Date
	Icon             string `json:"icon,omitempty"`
	Description      string `json:"description,omitempty"`
}

// Criterion is a scoring dimension scoped to one event.
type Criterion struct {
	ID          string  `json:"id"`
	EventID     string  `json:"eventId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Member belongs to exactly one Group.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Group is a team evaluated within an event.
type Group struct {
	ID      string   `json:"id"`
	EventID string   `json:"eventId"`
	Name    string   `json:"name"`
	Icon    string   `json:"icon,omitempty"`
	Members []Member `json:"members"`
}

// Evaluation is one evaluator's submission for one group in one event.
type Evaluation struct {
	ID               string             `json:"id"`
	EventID          string             `json:"eventId"`
	GroupID          string             `json:"groupId"`
	EvaluatorName    string             `json:"evaluatorName"`
	Scores           map[string]float64 `json:"scores"`
	IndividualScores map[string]float64 `json:"individualScores,omitempty"`
	GroupComment     *string            `json:"groupComment,omitempty"`
	Timestamp        int64              `json:"timestamp"` // epoch millis
}

// Structure is the events, groups and criteria collections taken together.
type Structure struct {
	Events   []Event     `json:"events"`
	Groups   []Group     `json:"groups"`
	Criteria []Criterion `json:"criteria"`
}

// IsEmpty reports whether all three collections are empty.
func (s Structure) IsEmpty() bool {
	return len(s.Events) == 0 && len(s.Groups) == 0 && len(s.Criteria) == 0
}

// StructureDocument is the remote form of a Structure.
type StructureDocument struct {
	Structure
	UpdatedAt int64 `json:"updatedAt"`
}

// EvaluationRecord is the remote form of an Evaluation.
type EvaluationRecord struct {
	Evaluation
	SyncedAt int64 `json:"syncedAt"`
}

// Theme is the persisted UI theme flag.
type Theme string

// Supported themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)
