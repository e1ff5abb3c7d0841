package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/avalia/internal/domain/lifecycle"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 10
)

// EvaluationInput is one evaluator's submission for a group.
type EvaluationInput struct {
	EventID          string
	GroupID          string
	EvaluatorName    string
	Scores           map[string]float64
	IndividualScores map[string]float64
	GroupComment     string
}

func checkScores(kind string, scores map[string]float64, known func(id string) bool) error {
	for id, v := range scores {
		if !known(id) {
			return fmt.Errorf("%w: unknown %s %q", ErrValidation, kind, id)
		}
		if math.IsNaN(v) || v < MinScore || v > MaxScore {
			return fmt.Errorf("%w: %s %q scored %v", ErrInvalidScore, kind, id, v)
		}
	}
	return nil
}

// SubmitEvaluation stores an evaluation. A second submission by the same
// evaluator for the same group rewrites the existing record under its id;
// updated reports which happened. Closed events are rejected before any
// state changes.
func (s *Service) SubmitEvaluation(ctx context.Context, in EvaluationInput) (ev model.Evaluation, updated bool, err error) {
	evaluator := strings.TrimSpace(in.EvaluatorName)
	if evaluator == "" {
		metrics.RecordEvaluationRejected("validation")
		return model.Evaluation{}, false, fmt.Errorf("%w: evaluatorName is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkStarted(); err != nil {
		return model.Evaluation{}, false, err
	}

	st := s.store.Structure()
	ei, err := findEvent(&st, in.EventID)
	if err != nil {
		metrics.RecordEvaluationRejected("not_found")
		return model.Evaluation{}, false, err
	}
	event := st.Events[ei]
	gi, err := findGroup(&st, in.GroupID)
	if err != nil || st.Groups[gi].EventID != event.ID {
		metrics.RecordEvaluationRejected("not_found")
		return model.Evaluation{}, false, fmt.Errorf("group %q in event %q: %w", in.GroupID, event.ID, ErrNotFound)
	}
	group := st.Groups[gi]

	now := s.now()
	if lifecycle.IsClosed(event, now) {
		metrics.RecordEvaluationRejected("closed")
		return model.Evaluation{}, false, fmt.Errorf("%w: %s closed after %s", ErrEventClosed, event.Name, lifecycle.EffectiveDeadline(event))
	}

	isCriterion := func(id string) bool {
		return slices.ContainsFunc(st.Criteria, func(c model.Criterion) bool { return c.ID == id && c.EventID == event.ID })
	}
	isMember := func(id string) bool {
		return slices.ContainsFunc(group.Members, func(m model.Member) bool { return m.ID == id })
	}
	if err := checkScores("criterion", in.Scores, isCriterion); err != nil {
		metrics.RecordEvaluationRejected("score")
		return model.Evaluation{}, false, err
	}
	if err := checkScores("member", in.IndividualScores, isMember); err != nil {
		metrics.RecordEvaluationRejected("score")
		return model.Evaluation{}, false, err
	}

	ev = model.Evaluation{
		EventID:          event.ID,
		GroupID:          group.ID,
		EvaluatorName:    evaluator,
		Scores:           cloneScores(in.Scores),
		IndividualScores: cloneScores(in.IndividualScores),
		Timestamp:        now.UnixMilli(),
	}
	if c := strings.TrimSpace(in.GroupComment); c != "" {
		ev.GroupComment = &c
	}
	if ev.Scores == nil {
		ev.Scores = map[string]float64{}
	}

	evals := s.store.Evaluations()
	i := slices.IndexFunc(evals, func(e model.Evaluation) bool {
		return e.EventID == ev.EventID && e.GroupID == ev.GroupID && model.SameEvaluator(e.EvaluatorName, evaluator)
	})
	if i >= 0 {
		ev.ID = evals[i].ID
		evals[i] = ev
		updated = true
	} else {
		ev.ID = model.NewID(model.PrefixEvaluation)
		evals = append(evals, ev)
	}

	if err := s.store.SetEvaluations(ctx, evals); err != nil {
		return model.Evaluation{}, false, err
	}
	if err := s.store.SetLastEvaluatorName(ctx, evaluator); err != nil {
		s.logger.Warn(ctx, "could not save evaluator name", logger.Error(err))
	}

	outcome := "created"
	if updated {
		outcome = "updated"
	}
	metrics.RecordEvaluationSubmitted(outcome)
	s.logger.Debug(ctx, "evaluation saved",
		logger.String("id", ev.ID),
		logger.String("group", ev.GroupID),
		logger.String("outcome", outcome),
	)

	s.engine.EvaluationSaved(ctx, ev)
	return ev, updated, nil
}

func cloneScores(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FindEvaluation returns the evaluator's existing evaluation of a group, so
// the form can be prefilled.
func (s *Service) FindEvaluation(eventID, groupID, evaluator string) (model.Evaluation, bool) {
	for _, e := range s.store.Evaluations() {
		if e.EventID == eventID && e.GroupID == groupID && model.SameEvaluator(e.EvaluatorName, evaluator) {
			return e, true
		}
	}
	return model.Evaluation{}, false
}

// ListEvaluations returns an event's evaluations, optionally narrowed to a
// group and to an evaluator.
func (s *Service) ListEvaluations(eventID, groupID, evaluator string) []model.Evaluation {
	out := []model.Evaluation{}
	for _, e := range s.store.Evaluations() {
		if e.EventID != eventID {
			continue
		}
		if groupID != "" && e.GroupID != groupID {
			continue
		}
		if strings.TrimSpace(evaluator) != "" && !model.SameEvaluator(e.EvaluatorName, evaluator) {
			continue
		}
		out = append(out, e)
	}
	return out
}
