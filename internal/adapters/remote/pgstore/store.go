// Package pgstore is the flat remote backend on PostgreSQL: one document
// table keyed by (collection, id) with JSONB bodies.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/domain/model"
)

const (
	collectionApp         = "app"
	collectionEvaluations = "evaluations"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

// Store implements remote.Store on a PostgreSQL table.
type Store struct {
	db    *sqlx.DB
	table string
	clock remote.Clock

	qGet    string
	qList   string
	qUpsert string
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

type document struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// New wraps an existing connection.
func New(db *sqlx.DB, table string, opts ...Option) (*Store, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	t := pq.QuoteIdentifier(table)
	s := &Store{
		db:      db,
		table:   t,
		clock:   time.Now,
		qGet:    `SELECT body FROM ` + t + ` WHERE collection = $1 AND id = $2`,
		qList:   `SELECT id, body FROM ` + t + ` WHERE collection = $1`,
		qUpsert: `INSERT INTO ` + t + ` (collection, id, body, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureSchema creates the document table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection, id)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, collection, id string) ([]byte, bool, error) {
	var body []byte
	err := s.db.GetContext(ctx, &body, s.qGet, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return body, true, nil
}

func (s *Store) put(ctx context.Context, collection, id string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, s.qUpsert, collection, id, body, s.clock().UTC()); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) FetchStructure(ctx context.Context) (*model.Structure, error) {
	body, ok, err := s.get(ctx, collectionApp, "structure")
	if err != nil || !ok {
		return nil, err
	}
	return remote.DecodeStructure(body)
}

func (s *Store) FetchEvaluations(ctx context.Context) (model.EvaluationTree, error) {
	var docs []document
	if err := s.db.SelectContext(ctx, &docs, s.qList, collectionEvaluations); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	tree := make(model.EvaluationTree)
	for _, d := range docs {
		e, err := remote.DecodeEvaluation(d.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
		tree.Add(e)
	}
	return tree, nil
}

func (s *Store) PushStructure(ctx context.Context, st model.Structure) error {
	return s.put(ctx, collectionApp, "structure", remote.StampStructure(st, s.clock()))
}

func (s *Store) PushEvaluation(ctx context.Context, e model.Evaluation) error {
	return s.put(ctx, collectionEvaluations, model.FlatKey(e), remote.StampEvaluation(e, s.clock()))
}

func (s *Store) FetchAdminPassword(ctx context.Context) (string, bool, error) {
	body, ok, err := s.get(ctx, collectionApp, "admin")
	if err != nil || !ok {
		return "", false, err
	}
	return remote.DecodeAdmin(body)
}

func (s *Store) SaveAdminPassword(ctx context.Context, password string) error {
	return s.put(ctx, collectionApp, "admin", remote.AdminDocument{Password: password, UpdatedAt: s.clock().UnixMilli()})
}

func (s *Store) Configured() bool { return true }
func (s *Store) Name() string     { return "postgres:" + strings.Trim(s.table, `"`) }

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
