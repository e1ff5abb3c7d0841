// Package scoring aggregates evaluations into group scores, per-criterion
// averages, per-member averages and rankings.
package scoring

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/avalia/internal/domain/model"
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithZeroForMissingMember makes MemberScore report 0 instead of absent for
// members nobody scored. Older stored data used 0 for both cases.
func WithZeroForMissingMember(enabled bool) Option {
	return func(a *Aggregator) {
		a.zeroForMissing = enabled
	}
}

// Aggregator applies presentation options on top of the pure functions below.
type Aggregator struct {
	zeroForMissing bool
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MemberScore is MemberAverage with the absent case resolved per options.
// A nil result means no evaluation scored the member.
func (a *Aggregator) MemberScore(memberID string, evals []model.Evaluation) *float64 {
	avg, ok := MemberAverage(memberID, evals)
	if !ok {
		if !a.zeroForMissing {
			return nil
		}
		avg = 0
	}
	return &avg
}

// ForGroup returns the evaluations submitted for one group of one event.
func ForGroup(evals []model.Evaluation, groupID, eventID string) []model.Evaluation {
	var out []model.Evaluation
	for _, e := range evals {
		if e.GroupID == groupID && e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out
}

// EvaluationMean averages the criteria the evaluator actually scored.
// An evaluation with no scores has mean 0.
func EvaluationMean(e model.Evaluation) float64 {
	if len(e.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range e.Scores {
		sum += v
	}
	return sum / float64(len(e.Scores))
}

// GroupScoreValue is the average of per-evaluation means for the group,
// rounded to one decimal.
func GroupScoreValue(evals []model.Evaluation, groupID, eventID string) float64 {
	scoped := ForGroup(evals, groupID, eventID)
	if len(scoped) == 0 {
		return 0
	}
	var sum float64
	for _, e := range scoped {
		sum += EvaluationMean(e)
	}
	return round1(sum / float64(len(scoped)))
}

// GroupScore formats GroupScoreValue with one decimal. It is "0.0" when the
// group has no evaluations.
func GroupScore(evals []model.Evaluation, groupID, eventID string) string {
	return Format(GroupScoreValue(evals, groupID, eventID))
}

// CriterionAverage averages one criterion across evals. A missing score
// counts as 0 and still contributes to the denominator.
func CriterionAverage(criterionID string, evals []model.Evaluation) float64 {
	if len(evals) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evals {
		sum += e.Scores[criterionID]
	}
	return sum / float64(len(evals))
}

// MemberAverage averages a member's individual scores over the evaluations
// that include one. ok is false when none do.
func MemberAverage(memberID string, evals []model.Evaluation) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, e := range evals {
		if v, present := e.IndividualScores[memberID]; present {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Ranked is a group with its event score.
type Ranked struct {
	Group model.Group
	Score string
	Value float64
}

// Rank orders the event's groups by score descending. Ties keep the order
// groups appear in.
func Rank(groups []model.Group, evals []model.Evaluation, eventID string) []Ranked {
	out := make([]Ranked, 0, len(groups))
	for _, g := range groups {
		if g.EventID != eventID {
			continue
		}
		v := GroupScoreValue(evals, g.ID, eventID)
		out = append(out, Ranked{Group: g, Score: Format(v), Value: v})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})
	return out
}

// Comment is a non-empty group comment shown on the dashboard.
type Comment struct {
	EvaluationID string `json:"evaluationId"`
	Text         string `json:"text"`
	Evaluator    string `json:"evaluator"`
	Timestamp    int64  `json:"timestamp"`
}

// Comments collects trimmed, non-empty group comments in evaluation order.
func Comments(evals []model.Evaluation) []Comment {
	var out []Comment
	for _, e := range evals {
		if e.GroupComment == nil {
			continue
		}
		text := strings.TrimSpace(*e.GroupComment)
		if text == "" {
			continue
		}
		evaluator := strings.TrimSpace(e.EvaluatorName)
		if evaluator == "" {
			evaluator = model.DefaultEvaluatorName
		}
		out = append(out, Comment{
			EvaluationID: e.ID,
			Text:         text,
			Evaluator:    evaluator,
			Timestamp:    e.Timestamp,
		})
	}
	return out
}

// Format renders a score with one decimal, rounding the exact binary value
// the way a JavaScript toFixed(1) does: 1.45 is stored below the tie and
// renders "1.4", while exact ties such as 7.25 round away from zero.
func Format(v float64) string {
	if q := v * 4; q == math.Trunc(q) && math.Mod(q, 2) != 0 {
		v = math.Round(v*10) / 10
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// round1 is Format as a number.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(Format(v), 64)
	return r
}
