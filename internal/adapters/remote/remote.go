// Package remote defines the contract for the optional remote store that
// local state is reconciled against.
//
// Backends live in subpackages: redisstore and pgstore keep evaluations in a
// flat collection keyed by model.FlatKey, s3store keeps them under
// hierarchical paths built by model.PathKey.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/avalia/internal/domain/model"
)

// Well-known locations shared by every backend.
const (
	StructureKey = "app/structure"
	AdminKey     = "app/admin"
)

// Store is the capability set the reconciliation engine consumes.
// Fetches report absence with a nil result (or ok=false), never an error.
type Store interface {
	FetchStructure(ctx context.Context) (*model.Structure, error)
	FetchEvaluations(ctx context.Context) (model.EvaluationTree, error)
	PushStructure(ctx context.Context, s model.Structure) error
	PushEvaluation(ctx context.Context, e model.Evaluation) error
	FetchAdminPassword(ctx context.Context) (password string, ok bool, err error)
	SaveAdminPassword(ctx context.Context, password string) error

	// Configured is false for the no-op store.
	Configured() bool
	// Name identifies the backend in logs and status output.
	Name() string
}

// AdminDocument is the stored shape of the admin password.
type AdminDocument struct {
	Password  string `json:"password"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Clock supplies write stamps. Backends default to time.Now.
type Clock func() time.Time

// StampStructure wraps s with the write time.
func StampStructure(s model.Structure, now time.Time) model.StructureDocument {
	return model.StructureDocument{Structure: s, UpdatedAt: now.UnixMilli()}
}

// StampEvaluation wraps e with the sync time.
func StampEvaluation(e model.Evaluation, now time.Time) model.EvaluationRecord {
	return model.EvaluationRecord{Evaluation: e, SyncedAt: now.UnixMilli()}
}

// DecodeStructure parses a stored structure document.
func DecodeStructure(raw []byte) (*model.Structure, error) {
	var doc model.StructureDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: structure: %w", ErrDecode, err)
	}
	return &doc.Structure, nil
}

// DecodeEvaluation parses a stored evaluation record.
func DecodeEvaluation(raw []byte) (model.Evaluation, error) {
	var rec model.EvaluationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Evaluation{}, fmt.Errorf("%w: evaluation: %w", ErrDecode, err)
	}
	return rec.Evaluation, nil
}

// DecodeAdmin parses a stored admin document.
func DecodeAdmin(raw []byte) (string, bool, error) {
	var doc AdminDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", false, fmt.Errorf("%w: admin: %w", ErrDecode, err)
	}
	if doc.Password == "" {
		return "", false, nil
	}
	return doc.Password, true, nil
}

// Disabled is the store used when no backend is configured. Every operation
// succeeds without doing anything.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) FetchStructure(context.Context) (*model.Structure, error)        { return nil, nil }
func (Disabled) FetchEvaluations(context.Context) (model.EvaluationTree, error) { return nil, nil }
func (Disabled) PushStructure(context.Context, model.Structure) error           { return nil }
func (Disabled) PushEvaluation(context.Context, model.Evaluation) error         { return nil }
func (Disabled) FetchAdminPassword(context.Context) (string, bool, error)       { return "", false, nil }
func (Disabled) SaveAdminPassword(context.Context, string) error                { return nil }
func (Disabled) Configured() bool                                               { return false }
func (Disabled) Name() string                                                   { return "disabled" }
