// Package s3store is the hierarchical remote backend on S3-compatible object
// storage. Evaluations are stored one object per evaluation under
// evaluations/<eventId>/<groupId>/<evaluationId>.json.
package s3store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/domain/model"
)

const (
	objectSuffix      = ".json"
	evaluationsPrefix = "evaluations/"
)

// Config holds the connection parameters. All of them are required.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// Store implements remote.Store on an object bucket.
type Store struct {
	bucket bucket
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

// Open builds a minio client for cfg.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, remote.ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return newStore(&minioBucket{client: client, name: cfg.Bucket}, opts...), nil
}

func newStore(b bucket, opts ...Option) *Store {
	s := &Store{bucket: b, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ObjectKey returns the object holding e.
func ObjectKey(e model.Evaluation) string {
	return model.PathKey(e) + objectSuffix
}

// ParseObjectKey splits an evaluation object key into its path segments.
func ParseObjectKey(key string) (eventID, groupID, evaluationID string, ok bool) {
	rest, found := strings.CutPrefix(key, evaluationsPrefix)
	if !found {
		return "", "", "", false
	}
	rest, found = strings.CutSuffix(rest, objectSuffix)
	if !found {
		return "", "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.bucket.put(ctx, key, body)
}

func (s *Store) FetchStructure(ctx context.Context) (*model.Structure, error) {
	body, ok, err := s.bucket.get(ctx, remote.StructureKey+objectSuffix)
	if err != nil || !ok {
		return nil, err
	}
	return remote.DecodeStructure(body)
}

// FetchEvaluations places each evaluation by its object path.
func (s *Store) FetchEvaluations(ctx context.Context) (model.EvaluationTree, error) {
	keys, err := s.bucket.list(ctx, evaluationsPrefix)
	if err != nil {
		return nil, err
	}
	tree := make(model.EvaluationTree)
	for _, key := range keys {
		eventID, groupID, id, ok := ParseObjectKey(key)
		if !ok {
			continue
		}
		body, found, err := s.bucket.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		e, err := remote.DecodeEvaluation(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		e.EventID, e.GroupID, e.ID = eventID, groupID, id
		tree.Add(e)
	}
	if len(tree) == 0 {
		return nil, nil
	}
	return tree, nil
}

func (s *Store) PushStructure(ctx context.Context, st model.Structure) error {
	return s.putJSON(ctx, remote.StructureKey+objectSuffix, remote.StampStructure(st, s.clock()))
}

func (s *Store) PushEvaluation(ctx context.Context, e model.Evaluation) error {
	if e.EventID == "" || e.GroupID == "" || e.ID == "" {
		return fmt.Errorf("%w: evaluation path needs event, group and id", remote.ErrInvalidDocument)
	}
	return s.putJSON(ctx, ObjectKey(e), remote.StampEvaluation(e, s.clock()))
}

func (s *Store) FetchAdminPassword(ctx context.Context) (string, bool, error) {
	body, ok, err := s.bucket.get(ctx, remote.AdminKey+objectSuffix)
	if err != nil || !ok {
		return "", false, err
	}
	return remote.DecodeAdmin(body)
}

func (s *Store) SaveAdminPassword(ctx context.Context, password string) error {
	return s.putJSON(ctx, remote.AdminKey+objectSuffix, remote.AdminDocument{Password: password, UpdatedAt: s.clock().UnixMilli()})
}

func (s *Store) Configured() bool { return true }
func (s *Store) Name() string     { return "s3" }
