package loadtest

import (
	"time"

	"github.com/okian/avalia/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL         string        // Base URL of the service
	AdminPassword   string        // Sent as X-Admin-Password on admin routes
	Groups          int           // Number of groups to create
	MembersPerGroup int           // Members added to each group
	Evaluators      int           // Evaluators; each scores every group once
	Workers         int           // Number of concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Output file for submitted evaluations
	LogFile         string        // Log file for test output
	Verbose         bool          // Enable verbose logging
}

// Fixture is the event created for a run.
type Fixture struct {
	Event    model.Event
	Groups   []model.Group
	Criteria []model.Criterion
}

// Submission is one evaluation to post.
type Submission struct {
	GroupID          string             `json:"groupId"`
	EvaluatorName    string             `json:"evaluatorName"`
	Scores           map[string]float64 `json:"scores"`
	IndividualScores map[string]float64 `json:"individualScores,omitempty"`
	GroupComment     string             `json:"groupComment,omitempty"`
}

type submissionResponse struct {
	Evaluation model.Evaluation `json:"evaluation"`
	Updated    bool             `json:"updated"`
}

// Stats holds test statistics
type Stats struct {
	GroupsCreated        int
	MembersCreated       int
	EvaluationsGenerated int
	EvaluationsSubmitted int
	EvaluationsCreated   int
	EvaluationsUpdated   int
	EvaluationsFailed    int
	RankedGroups         int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
