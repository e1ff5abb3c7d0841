package service

import (
	"fmt"

	"github.com/okian/avalia/internal/domain/lifecycle"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/scoring"
	"github.com/okian/avalia/internal/domain/types"
)

func (s *Service) status(e model.Event) types.EventStatus {
	return types.EventStatus{
		Event:             e,
		EffectiveDeadline: lifecycle.EffectiveDeadline(e),
		Closed:            lifecycle.IsClosed(e, s.now()),
	}
}

// ListEvents splits events into ongoing and past, newest first.
func (s *Service) ListEvents() types.EventList {
	ongoing, past := lifecycle.Partition(s.store.Events(), s.now())
	out := types.EventList{
		Ongoing: make([]types.EventStatus, 0, len(ongoing)),
		Past:    make([]types.EventStatus, 0, len(past)),
	}
	for _, e := range ongoing {
		out.Ongoing = append(out.Ongoing, s.status(e))
	}
	for _, e := range past {
		out.Past = append(out.Past, s.status(e))
	}
	return out
}

func (s *Service) event(id string) (model.Event, error) {
	for _, e := range s.store.Events() {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
}

// EventDetail returns an event with its groups and criteria.
func (s *Service) EventDetail(id string) (types.EventDetail, error) {
	e, err := s.event(id)
	if err != nil {
		return types.EventDetail{}, err
	}
	st := s.store.Structure()
	d := types.EventDetail{
		EventStatus: s.status(e),
		Groups:      []model.Group{},
		Criteria:    []model.Criterion{},
	}
	for _, g := range st.Groups {
		if g.EventID == id {
			d.Groups = append(d.Groups, g)
		}
	}
	for _, c := range st.Criteria {
		if c.EventID == id {
			d.Criteria = append(d.Criteria, c)
		}
	}
	return d, nil
}

// Ranking scores every group of an event.
func (s *Service) Ranking(eventID string) (types.Ranking, error) {
	detail, err := s.EventDetail(eventID)
	if err != nil {
		return types.Ranking{}, err
	}
	evals := s.store.Evaluations()

	ranked := scoring.Rank(detail.Groups, evals, eventID)
	out := types.Ranking{
		Event:   detail.EventStatus,
		Entries: make([]types.RankEntry, 0, len(ranked)),
	}
	for i, r := range ranked {
		groupEvals := scoring.ForGroup(evals, r.Group.ID, eventID)
		entry := types.RankEntry{
			Rank:            i + 1,
			Group:           r.Group,
			Score:           r.Score,
			EvaluationCount: len(groupEvals),
			Criteria:        make([]types.CriterionScore, 0, len(detail.Criteria)),
			Members:         make([]types.MemberScore, 0, len(r.Group.Members)),
			Comments:        scoring.Comments(groupEvals),
		}
		for _, c := range detail.Criteria {
			entry.Criteria = append(entry.Criteria, types.CriterionScore{
				CriterionID: c.ID,
				Name:        c.Name,
				Average:     scoring.CriterionAverage(c.ID, groupEvals),
			})
		}
		for _, m := range r.Group.Members {
			entry.Members = append(entry.Members, types.MemberScore{
				MemberID: m.ID,
				Name:     m.Name,
				Average:  s.aggregator.MemberScore(m.ID, groupEvals),
			})
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}
