package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/avalia/internal/domain/model"
)

const dateLayout = "2006-01-02"

// EventInput creates an event. ResponseDeadline defaults to Date.
type EventInput struct {
	Name             string
	Date             string
	ResponseDeadline string
	Icon             string
	Description      string
}

// EventPatch updates the non-nil fields of an event. An empty
// ResponseDeadline resets it to the event date.
type EventPatch struct {
	Name             *string
	Date             *string
	ResponseDeadline *string
	Icon             *string
	Description      *string
}

// GroupPatch updates the non-nil fields of a group.
type GroupPatch struct {
	Name *string
	Icon *string
}

// MemberPatch updates the non-nil fields of a member.
type MemberPatch struct {
	Name *string
	Icon *string
}

// mutateStructure applies fn to a copy of the structure, persists it and
// schedules a push. fn returning an error leaves everything untouched.
func (s *Service) mutateStructure(ctx context.Context, fn func(st *model.Structure) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkStarted(); err != nil {
		return err
	}

	st := s.store.Structure()
	if err := fn(&st); err != nil {
		return err
	}
	if err := s.store.SetStructure(ctx, st); err != nil {
		return err
	}
	s.engine.StructureChanged(ctx)
	return nil
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return v, nil
}

func validDate(field, v string) error {
	if _, err := time.Parse(dateLayout, v); err != nil {
		return fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrValidation, field)
	}
	return nil
}

// clampDeadline returns deadline, or date when deadline is empty or earlier.
func clampDeadline(date, deadline string) string {
	if deadline == "" || deadline < date {
		return date
	}
	return deadline
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func findEvent(st *model.Structure, id string) (int, error) {
	i := slices.IndexFunc(st.Events, func(e model.Event) bool { return e.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return i, nil
}

func findGroup(st *model.Structure, id string) (int, error) {
	i := slices.IndexFunc(st.Groups, func(g model.Group) bool { return g.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	return i, nil
}

// CreateEvent adds an event together with the default criteria.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return model.Event{}, err
	}
	if err := validDate("date", in.Date); err != nil {
		return model.Event{}, err
	}
	if in.ResponseDeadline != "" {
		if err := validDate("responseDeadline", in.ResponseDeadline); err != nil {
			return model.Event{}, err
		}
	}

	ev := model.Event{
		ID:               model.NewID(model.PrefixEvent),
		Name:             name,
		Date:             in.Date,
		ResponseDeadline: clampDeadline(in.Date, in.ResponseDeadline),
		Icon:             orDefault(in.Icon, model.DefaultEventIcon),
		Description:      strings.TrimSpace(in.Description),
	}
	err = s.mutateStructure(ctx, func(st *model.Structure) error {
		st.Events = append(st.Events, ev)
		st.Criteria = append(st.Criteria, model.DefaultCriteria(ev.ID)...)
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// UpdateEvent applies patch to an event.
func (s *Service) UpdateEvent(ctx context.Context, id string, patch EventPatch) (model.Event, error) {
	var out model.Event
	err := s.mutateStructure(ctx, func(st *model.Structure) error {
		i, err := findEvent(st, id)
		if err != nil {
			return err
		}
		ev := st.Events[i]

		if patch.Name != nil {
			if ev.Name, err = required("name", *patch.Name); err != nil {
				return err
			}
		}
		if patch.Icon != nil {
			ev.Icon = orDefault(*patch.Icon, model.DefaultEventIcon)
		}
		if patch.Description != nil {
			ev.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Date != nil {
			if err := validDate("date", *patch.Date); err != nil {
				return err
			}
			ev.Date = *patch.Date
		}
		if patch.ResponseDeadline != nil {
			if *patch.ResponseDeadline != "" {
				if err := validDate("responseDeadline", *patch.ResponseDeadline); err != nil {
					return err
				}
			}
			ev.ResponseDeadline = *patch.ResponseDeadline
		}
		ev.ResponseDeadline = clampDeadline(ev.Date, ev.ResponseDeadline)

		st.Events[i] = ev
		out = ev
		return nil
	})
	return out, err
}

// DeleteEvent removes an event with its groups and criteria. Its
// evaluations are left in place and become unreachable.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.mutateStructure(ctx, func(st *model.Structure) error {
		i, err := findEvent(st, id)
		if err != nil {
			return err
		}
		st.Events = slices.Delete(st.Events, i, i+1)
		st.Groups = slices.DeleteFunc(st.Groups, func(g model.Group) bool { return g.EventID == id })
		st.Criteria = slices.DeleteFunc(st.Criteria, func(c model.Criterion) bool { return c.EventID == id })
		return nil
	})
}

// AddGroup adds a group to an event.
func (s *Service) AddGroup(ctx context.Context, eventID, name, icon string) (model.Group, error) {
	name, err := required("name", name)
	if err != nil {
		return model.Group{}, err
	}
	g := model.Group{
		ID:      model.NewID(model.PrefixGroup),
		EventID: eventID,
		Name:    name,
		Icon:    orDefault(icon, model.DefaultGroupIcon),
		Members: []model.Member{},
	}
	err = s.mutateStructure(ctx, func(st *model.Structure) error {
		if _, err := findEvent(st, eventID); err != nil {
			return err
		}
		st.Groups = append(st.Groups, g)
		return nil
	})
	if err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// UpdateGroup applies patch to a group.
func (s *Service) UpdateGroup(ctx context.Context, id string, patch GroupPatch) (model.Group, error) {
	var out model.Group
	err := s.mutateStructure(ctx, func(st *model.Structure) error {
		i, err := findGroup(st, id)
		if err != nil {
			return err
		}
		g := st.Groups[i]
		if patch.Name != nil {
			if g.Name, err = required("name", *patch.Name); err != nil {
				return err
			}
		}
		if patch.Icon != nil {
			g.Icon = orDefault(*patch.Icon, model.DefaultGroupIcon)
		}
		st.Groups[i] = g
		out = g
		return nil
	})
	return out, err
}

// DeleteGroup removes a group.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	return s.mutateStructure(ctx, func(st *model.Structure) error {
		i, err := findGroup(st, id)
		if err != nil {
			return err
		}
		st.Groups = slices.Delete(st.Groups, i, i+1)
		return nil
	})
}

// AddMember appends a member to a group.
func (s *Service) AddMember(ctx context.Context, groupID, name, icon string) (model.Member, error) {
	name, err := required("name", name)
	if err != nil {
		return model.Member{}, err
	}
	m := model.Member{
		ID:   model.NewID(model.PrefixMember),
		Name: name,
		Icon: orDefault(icon, model.DefaultMemberIcon),
	}
	err = s.mutateStructure(ctx, func(st *model.Structure) error {
		i, err := findGroup(st, groupID)
		if err != nil {
			return err
		}
		st.Groups[i].Members = append(st.Groups[i].Members, m)
		return nil
	})
	if err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// UpdateMember applies patch to a member of a group.
func (s *Service) UpdateMember(ctx context.Context, groupID, memberID string, patch MemberPatch) (model.Member, error) {
	var out model.Member
	err := s.mutateStructure(ctx, func(st *model.Structure) error {
		gi, err := findGroup(st, groupID)
		if err != nil {
			return err
		}
		members := st.Groups[gi].Members
		mi := slices.IndexFunc(members, func(m model.Member) bool { return m.ID == memberID })
		if mi < 0 {
			return fmt.Errorf("member %q: %w", memberID, ErrNotFound)
		}
		m := members[mi]
		if patch.Name != nil {
			if m.Name, err = required("name", *patch.Name); err != nil {
				return err
			}
		}
		if patch.Icon != nil {
			m.Icon = orDefault(*patch.Icon, model.DefaultMemberIcon)
		}
		members[mi] = m
		out = m
		return nil
	})
	return out, err
}

// RemoveMember removes a member from a group.
func (s *Service) RemoveMember(ctx context.Context, groupID, memberID string) error {
	return s.mutateStructure(ctx, func(st *model.Structure) error {
		gi, err := findGroup(st, groupID)
		if err != nil {
			return err
		}
		before := len(st.Groups[gi].Members)
		st.Groups[gi].Members = slices.DeleteFunc(st.Groups[gi].Members, func(m model.Member) bool { return m.ID == memberID })
		if len(st.Groups[gi].Members) == before {
			return fmt.Errorf("member %q: %w", memberID, ErrNotFound)
		}
		return nil
	})
}

// AddCriterion adds a criterion to an event.
func (s *Service) AddCriterion(ctx context.Context, eventID, name, description string) (model.Criterion, error) {
	name, err := required("name", name)
	if err != nil {
		return model.Criterion{}, err
	}
	c := model.Criterion{
		ID:          model.NewID(model.PrefixCriterion),
		EventID:     eventID,
		Name:        name,
		Description: orDefault(description, model.DefaultCriterionDescription),
		Weight:      model.DefaultCriterionWeight,
	}
	err = s.mutateStructure(ctx, func(st *model.Structure) error {
		if _, err := findEvent(st, eventID); err != nil {
			return err
		}
		st.Criteria = append(st.Criteria, c)
		return nil
	})
	if err != nil {
		return model.Criterion{}, err
	}
	return c, nil
}

// DeleteCriterion removes a criterion. Scores already given for it stay on
// the evaluations.
func (s *Service) DeleteCriterion(ctx context.Context, id string) error {
	return s.mutateStructure(ctx, func(st *model.Structure) error {
		i := slices.IndexFunc(st.Criteria, func(c model.Criterion) bool { return c.ID == id })
		if i < 0 {
			return fmt.Errorf("criterion %q: %w", id, ErrNotFound)
		}
		st.Criteria = slices.Delete(st.Criteria, i, i+1)
		return nil
	})
}

// Reset clears events, groups, criteria and evaluations locally. The empty
// structure is pushed; remote evaluation records are left alone.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkStarted(); err != nil {
		return err
	}

	if err := s.store.SetEvaluations(ctx, nil); err != nil {
		return err
	}
	if err := s.store.SetStructure(ctx, model.Structure{}); err != nil {
		return err
	}
	s.logger.Warn(ctx, "local data reset")
	s.engine.StructureChanged(ctx)
	return nil
}
