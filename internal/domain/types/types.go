// Package types contains read models shared by the app service and the API.
package types

import (
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/scoring"
)

// EventStatus is an event with its lifecycle resolved against a clock.
type EventStatus struct {
	model.Event
	EffectiveDeadline string `json:"effectiveDeadline"`
	Closed            bool   `json:"closed"`
}

// EventList partitions events for display.
type EventList struct {
	Ongoing []EventStatus `json:"ongoing"`
	Past    []EventStatus `json:"past"`
}

// EventDetail is everything an evaluator needs to score an event.
type EventDetail struct {
	EventStatus
	Groups   []model.Group     `json:"groups"`
	Criteria []model.Criterion `json:"criteria"`
}

// CriterionScore is a criterion average within one group.
type CriterionScore struct {
	CriterionID string  `json:"criterionId"`
	Name        string  `json:"name"`
	Average     float64 `json:"average"`
}

// MemberScore is a member's individual average. Average is nil when no
// evaluation scored the member.
type MemberScore struct {
	MemberID string   `json:"memberId"`
	Name     string   `json:"name"`
	Average  *float64 `json:"average"`
}

// RankEntry is one row of an event ranking.
type RankEntry struct {
	Rank            int               `json:"rank"`
	Group           model.Group       `json:"group"`
	Score           string            `json:"score"`
	EvaluationCount int               `json:"evaluationCount"`
	Criteria        []CriterionScore  `json:"criteria"`
	Members         []MemberScore     `json:"members"`
	Comments        []scoring.Comment `json:"comments"`
}

// Ranking is the admin dashboard for one event.
type Ranking struct {
	Event   EventStatus `json:"event"`
	Entries []RankEntry `json:"entries"`
}

// Preferences are the persisted per-installation UI preferences.
type Preferences struct {
	LastEvaluatorName string      `json:"lastEvaluatorName"`
	Theme             model.Theme `json:"theme"`
}

// SyncStatus reports the reconciliation engine to clients.
type SyncStatus struct {
	State           string `json:"state"`
	Configured      bool   `json:"configured"`
	Backend         string `json:"backend"`
	StructureLatch  string `json:"structureLatch"`
	PendingPushes   int    `json:"pendingPushes"`
	FailedPushes    int64  `json:"failedPushes"`
	SucceededPushes int64  `json:"succeededPushes"`
}
