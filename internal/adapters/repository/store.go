// Package repository is the local store: the synchronous, durable cache of
// events, groups, criteria, evaluations and UI preferences.
//
// Values are read once when the store is opened and every setter writes
// through to the KV before returning.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

// Persisted keys.
const (
	KeyEvents            = "v5_api_events"
	KeyGroups            = "v5_api_groups"
	KeyCriteria          = "v5_api_criteria"
	KeyEvaluations       = "v5_api_evaluations"
	KeyLastEvaluatorName = "last_evaluator_name"
	KeyTheme             = "theme"
	KeyAdminPasswordHash = "admin_password_hash"
)

// Store holds the in-memory view of the KV.
type Store struct {
	kv     KV
	logger logger.Logger

	mu            sync.RWMutex
	events        []model.Event
	groups        []model.Group
	criteria      []model.Criterion
	evaluations   []model.Evaluation
	lastEvaluator string
	theme         model.Theme
	passwordHash  string

	hadStructure bool
}

// Open loads every key from kv. Missing keys start empty.
func Open(ctx context.Context, kv KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:     kv,
		logger: logger.Get().Named("repository"),
		theme:  model.ThemeLight,
	}
	for _, opt := range opts {
		opt(s)
	}

	loads := []struct {
		key string
		dst any
	}{
		{KeyEvents, &s.events},
		{KeyGroups, &s.groups},
		{KeyCriteria, &s.criteria},
		{KeyEvaluations, &s.evaluations},
		{KeyLastEvaluatorName, &s.lastEvaluator},
		{KeyTheme, &s.theme},
		{KeyAdminPasswordHash, &s.passwordHash},
	}
	for _, l := range loads {
		if err := s.load(ctx, l.key, l.dst); err != nil {
			return nil, err
		}
	}
	s.hadStructure = !s.structureLocked().IsEmpty()
	s.recordSizes()

	s.logger.Info(ctx, "local store loaded",
		logger.Int("events", len(s.events)),
		logger.Int("groups", len(s.groups)),
		logger.Int("criteria", len(s.criteria)),
		logger.Int("evaluations", len(s.evaluations)),
	)
	return s, nil
}

func (s *Store) load(ctx context.Context, key string, dst any) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDecode, key, err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrPersist, key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w %s: %w", ErrPersist, key, err)
	}
	return nil
}

// HadStructure reports whether events, groups or criteria were present when
// the store was opened.
func (s *Store) HadStructure() bool {
	return s.hadStructure
}

// Events returns a copy of the events collection.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Groups returns a copy of the groups collection.
func (s *Store) Groups() []model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGroups(s.groups)
}

// Criteria returns a copy of the criteria collection.
func (s *Store) Criteria() []model.Criterion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.criteria)
}

// Evaluations returns a copy of the evaluations collection.
func (s *Store) Evaluations() []model.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvaluations(s.evaluations)
}

// Structure returns events, groups and criteria together.
func (s *Store) Structure() model.Structure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structureLocked()
}

func (s *Store) structureLocked() model.Structure {
	return model.Structure{
		Events:   slices.Clone(s.events),
		Groups:   cloneGroups(s.groups),
		Criteria: slices.Clone(s.criteria),
	}
}

// SetEvents replaces the events collection.
func (s *Store) SetEvents(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyEvents, nonNil(events)); err != nil {
		return err
	}
	s.events = slices.Clone(events)
	metrics.UpdateCollectionSize("events", len(s.events))
	return nil
}

// SetGroups replaces the groups collection.
func (s *Store) SetGroups(ctx context.Context, groups []model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyGroups, nonNil(groups)); err != nil {
		return err
	}
	s.groups = cloneGroups(groups)
	metrics.UpdateCollectionSize("groups", len(s.groups))
	return nil
}

// SetCriteria replaces the criteria collection.
func (s *Store) SetCriteria(ctx context.Context, criteria []model.Criterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyCriteria, nonNil(criteria)); err != nil {
		return err
	}
	s.criteria = slices.Clone(criteria)
	metrics.UpdateCollectionSize("criteria", len(s.criteria))
	return nil
}

// SetStructure replaces events, groups and criteria.
func (s *Store) SetStructure(ctx context.Context, st model.Structure) error {
	if err := s.SetEvents(ctx, st.Events); err != nil {
		return err
	}
	if err := s.SetGroups(ctx, st.Groups); err != nil {
		return err
	}
	return s.SetCriteria(ctx, st.Criteria)
}

// SetEvaluations replaces the evaluations collection.
func (s *Store) SetEvaluations(ctx context.Context, evals []model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyEvaluations, nonNil(evals)); err != nil {
		return err
	}
	s.evaluations = cloneEvaluations(evals)
	metrics.UpdateCollectionSize("evaluations", len(s.evaluations))
	return nil
}

// LastEvaluatorName returns the name used on the previous submission.
func (s *Store) LastEvaluatorName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEvaluator
}

// SetLastEvaluatorName stores the name used on a submission.
func (s *Store) SetLastEvaluatorName(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyLastEvaluatorName, name); err != nil {
		return err
	}
	s.lastEvaluator = name
	return nil
}

// Theme returns the persisted theme flag.
func (s *Store) Theme() model.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme stores the theme flag.
func (s *Store) SetTheme(ctx context.Context, theme model.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyTheme, theme); err != nil {
		return err
	}
	s.theme = theme
	return nil
}

// AdminPasswordHash returns the stored hash, empty when none was set.
func (s *Store) AdminPasswordHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passwordHash
}

// SetAdminPasswordHash stores the admin password hash.
func (s *Store) SetAdminPasswordHash(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(ctx, KeyAdminPasswordHash, hash); err != nil {
		return err
	}
	s.passwordHash = hash
	return nil
}

// Close closes the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) recordSizes() {
	metrics.UpdateCollectionSize("events", len(s.events))
	metrics.UpdateCollectionSize("groups", len(s.groups))
	metrics.UpdateCollectionSize("criteria", len(s.criteria))
	metrics.UpdateCollectionSize("evaluations", len(s.evaluations))
}

func cloneGroups(groups []model.Group) []model.Group {
	if groups == nil {
		return nil
	}
	out := make([]model.Group, len(groups))
	for i, g := range groups {
		g.Members = slices.Clone(g.Members)
		out[i] = g
	}
	return out
}

func cloneEvaluations(evals []model.Evaluation) []model.Evaluation {
	if evals == nil {
		return nil
	}
	out := make([]model.Evaluation, len(evals))
	for i, e := range evals {
		e.Scores = maps.Clone(e.Scores)
		e.IndividualScores = maps.Clone(e.IndividualScores)
		if e.GroupComment != nil {
			c := *e.GroupComment
			e.GroupComment = &c
		}
		out[i] = e
	}
	return out
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
