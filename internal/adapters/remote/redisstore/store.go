// Package redisstore is the flat remote backend on Redis. Evaluations live
// in one hash keyed by eventId_groupId_evaluationId.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/domain/model"
)

// Store implements remote.Store on Redis.
type Store struct {
	client redis.UniversalClient
	ns     string
	clock  remote.Clock
}

var _ remote.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the write stamp source.
func WithClock(c remote.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// New wraps an existing client. The connection is not checked here; an
// unreachable server surfaces on the first fetch or push.
func New(client redis.UniversalClient, namespace string, opts ...Option) *Store {
	s := &Store{client: client, ns: namespace, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(parts string) string { return s.ns + ":" + parts }

func (s *Store) structureKey() string   { return s.key(remote.StructureKey) }
func (s *Store) adminKey() string       { return s.key(remote.AdminKey) }
func (s *Store) evaluationsKey() string { return s.key("evaluations") }

func (s *Store) FetchStructure(ctx context.Context) (*model.Structure, error) {
	raw, err := s.client.Get(ctx, s.structureKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get structure: %w", err)
	}
	return remote.DecodeStructure(raw)
}

func (s *Store) FetchEvaluations(ctx context.Context) (model.EvaluationTree, error) {
	fields, err := s.client.HGetAll(ctx, s.evaluationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get evaluations: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	tree := make(model.EvaluationTree)
	for field, raw := range fields {
		e, err := remote.DecodeEvaluation([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		tree.Add(e)
	}
	return tree, nil
}

func (s *Store) PushStructure(ctx context.Context, st model.Structure) error {
	raw, err := json.Marshal(remote.StampStructure(st, s.clock()))
	if err != nil {
		return fmt.Errorf("encode structure: %w", err)
	}
	if err := s.client.Set(ctx, s.structureKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("set structure: %w", err)
	}
	return nil
}

func (s *Store) PushEvaluation(ctx context.Context, e model.Evaluation) error {
	raw, err := json.Marshal(remote.StampEvaluation(e, s.clock()))
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	if err := s.client.HSet(ctx, s.evaluationsKey(), model.FlatKey(e), raw).Err(); err != nil {
		return fmt.Errorf("set evaluation %s: %w", model.FlatKey(e), err)
	}
	return nil
}

func (s *Store) FetchAdminPassword(ctx context.Context) (string, bool, error) {
	raw, err := s.client.Get(ctx, s.adminKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get admin: %w", err)
	}
	return remote.DecodeAdmin(raw)
}

func (s *Store) SaveAdminPassword(ctx context.Context, password string) error {
	raw, err := json.Marshal(remote.AdminDocument{Password: password, UpdatedAt: s.clock().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode admin: %w", err)
	}
	if err := s.client.Set(ctx, s.adminKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

func (s *Store) Configured() bool { return true }
func (s *Store) Name() string     { return "redis" }

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
