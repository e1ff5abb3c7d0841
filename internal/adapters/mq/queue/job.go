package queue

import (
	"time"

	"github.com/okian/avalia/internal/domain/model"
)

// Kind identifies what a push job writes to the remote store.
type Kind string

// Job kinds.
const (
	KindStructure     Kind = "structure"
	KindEvaluation    Kind = "evaluation"
	KindAdminPassword Kind = "admin_password"
)

// Job is one fire-and-forget push. It carries the snapshot captured when
// the local mutation happened; workers never re-read local state.
type Job struct {
	Kind       Kind
	Structure  model.Structure
	Evaluation model.Evaluation
	Password   string
	EnqueuedAt time.Time
}

// StructureJob builds a structure push.
func StructureJob(s model.Structure) Job {
	return Job{Kind: KindStructure, Structure: s, EnqueuedAt: time.Now()}
}

// EvaluationJob builds a single-evaluation push.
func EvaluationJob(e model.Evaluation) Job {
	return Job{Kind: KindEvaluation, Evaluation: e, EnqueuedAt: time.Now()}
}

// AdminPasswordJob builds an admin password push.
func AdminPasswordJob(password string) Job {
	return Job{Kind: KindAdminPassword, Password: password, EnqueuedAt: time.Now()}
}

// Subject names the record a job writes, for logs.
func (j Job) Subject() string {
	switch j.Kind {
	case KindEvaluation:
		return model.FlatKey(j.Evaluation)
	case KindStructure:
		return "structure"
	default:
		return string(j.Kind)
	}
}
