// Package reconcile keeps the local store and the remote store in step: a
// one-time bootstrap pulls remote state in, and every local mutation is
// pushed back asynchronously.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/okian/avalia/internal/adapters/mq/queue"
	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/adapters/repository"
	"github.com/okian/avalia/internal/domain/dedupe"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/internal/domain/notice"
	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

// State is the engine lifecycle position.
type State int32

// Engine states. Ready is terminal.
const (
	Uninitialized State = iota
	Bootstrapping
	Ready
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

const (
	defaultTimeout = 10 * time.Second
	structureLatch = "structure"
)

// ErrAlreadyBootstrapped is returned when Bootstrap runs twice.
var ErrAlreadyBootstrapped = errors.New("reconcile: bootstrap already ran")

// Enqueuer accepts push jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, j queue.Job) error
	Len() int
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, notice.Notice) {}

// Engine reconciles the local cache with the remote store.
type Engine struct {
	local    *repository.Store
	remote   remote.Store
	queue    Enqueuer
	notifier notice.Notifier
	latch    dedupe.Deduper
	timeout  time.Duration
	hash     func(string) (string, error)
	logger   logger.Logger

	state          atomic.Int32
	pushedNonEmpty atomic.Bool
	failed         atomic.Int64
	succeeded      atomic.Int64
}

// New creates an Engine. The remote may be remote.Disabled for local-only runs.
func New(local *repository.Store, rs remote.Store, q Enqueuer, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		remote:   rs,
		queue:    q,
		notifier: discardNotifier{},
		latch:    dedupe.NewInMemoryDeduper(),
		timeout:  defaultTimeout,
		hash:     bcryptHash,
		logger:   logger.Get().Named("reconcile"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.remote == nil {
		e.remote = remote.Disabled{}
	}
	// Data already cached locally counts as a prior non-empty sync, so an
	// intentional reset after restart still propagates.
	e.pushedNonEmpty.Store(local.HadStructure())
	metrics.UpdateSyncState(int(Uninitialized))
	return e
}

func bcryptHash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	metrics.UpdateSyncState(int(s))
}

// Bootstrap pulls the remote snapshot into the local store once. Remote
// failures degrade to local-only data and never fail the call; only a local
// persistence error is returned. The engine is Ready afterwards either way.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(Uninitialized), int32(Bootstrapping)) {
		return ErrAlreadyBootstrapped
	}
	metrics.UpdateSyncState(int(Bootstrapping))

	if !e.remote.Configured() {
		e.logger.Info(ctx, "remote store not configured, running local-only")
		metrics.RecordBootstrap("skipped", 0)
		e.setState(Ready)
		return nil
	}

	start := time.Now()
	snap, err := e.fetch(ctx)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordBootstrap("failure", elapsed)
		e.logger.Warn(ctx, "bootstrap fetch failed, keeping local data",
			logger.String("backend", e.remote.Name()),
			logger.Error(err),
		)
		e.notifier.Notify(ctx, notice.Notice{
			Kind:    notice.BootstrapFailed,
			Level:   notice.LevelWarning,
			Message: "Could not load data from the remote store. Showing locally saved data.",
		})
		e.setState(Ready)
		e.pushInitialStructure(ctx)
		return nil
	}

	mergeErr := e.merge(ctx, snap)
	if mergeErr != nil {
		metrics.RecordBootstrap("failure", elapsed)
	} else {
		metrics.RecordBootstrap("success", elapsed)
		e.logger.Info(ctx, "bootstrap complete",
			logger.String("backend", e.remote.Name()),
			logger.Bool("structure", snap.structure != nil),
			logger.Int("evaluations", len(snap.evaluations.Flatten())),
			logger.Bool("admin_password", snap.hasPassword),
		)
	}
	e.setState(Ready)
	e.pushInitialStructure(ctx)
	return mergeErr
}

type snapshot struct {
	structure   *model.Structure
	evaluations model.EvaluationTree
	password    string
	hasPassword bool
}

// fetch runs the three reads concurrently; any failure aborts the merge.
func (e *Engine) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, cancel := context.WithTimeout(gctx, e.timeout)
		defer cancel()
		st, err := e.remote.FetchStructure(c)
		if err != nil {
			return fmt.Errorf("fetch structure: %w", err)
		}
		snap.structure = st
		return nil
	})
	g.Go(func() error {
		c, cancel := context.WithTimeout(gctx, e.timeout)
		defer cancel()
		tree, err := e.remote.FetchEvaluations(c)
		if err != nil {
			return fmt.Errorf("fetch evaluations: %w", err)
		}
		snap.evaluations = tree
		return nil
	})
	g.Go(func() error {
		c, cancel := context.WithTimeout(gctx, e.timeout)
		defer cancel()
		pw, ok, err := e.remote.FetchAdminPassword(c)
		if err != nil {
			return fmt.Errorf("fetch admin password: %w", err)
		}
		snap.password, snap.hasPassword = pw, ok
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (e *Engine) merge(ctx context.Context, snap snapshot) error {
	if snap.structure != nil {
		if err := e.local.SetStructure(ctx, *snap.structure); err != nil {
			return fmt.Errorf("merge structure: %w", err)
		}
		if !snap.structure.IsEmpty() {
			e.pushedNonEmpty.Store(true)
		}
	}
	if snap.evaluations != nil {
		merged := model.MergeByID(e.local.Evaluations(), snap.evaluations.Flatten())
		if err := e.local.SetEvaluations(ctx, merged); err != nil {
			return fmt.Errorf("merge evaluations: %w", err)
		}
	}
	if snap.hasPassword {
		h, err := e.hash(snap.password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if err := e.local.SetAdminPasswordHash(ctx, h); err != nil {
			return fmt.Errorf("merge admin password: %w", err)
		}
	}
	return nil
}

func (e *Engine) pushInitialStructure(ctx context.Context) {
	if e.remote.Configured() {
		e.StructureChanged(ctx)
	}
}

// StructureChanged schedules a push of the current structure snapshot.
// An empty structure is not pushed until a non-empty one has been.
func (e *Engine) StructureChanged(ctx context.Context) {
	if e.State() != Ready || !e.remote.Configured() {
		return
	}
	st := e.local.Structure()
	if st.IsEmpty() && !e.pushedNonEmpty.Load() {
		e.logger.Debug(ctx, "empty structure push suppressed")
		return
	}
	if !st.IsEmpty() {
		e.pushedNonEmpty.Store(true)
	}
	e.enqueue(ctx, queue.StructureJob(st))
}

// EvaluationSaved schedules a push of one evaluation.
func (e *Engine) EvaluationSaved(ctx context.Context, ev model.Evaluation) {
	if e.State() != Ready || !e.remote.Configured() {
		return
	}
	e.enqueue(ctx, queue.EvaluationJob(ev))
}

// AdminPasswordChanged schedules a push of the plain admin password.
func (e *Engine) AdminPasswordChanged(ctx context.Context, password string) {
	if e.State() != Ready || !e.remote.Configured() {
		return
	}
	e.enqueue(ctx, queue.AdminPasswordJob(password))
}

func (e *Engine) enqueue(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is a value snapshot
	if err := e.queue.Enqueue(ctx, j); err != nil {
		e.Report(ctx, j, fmt.Errorf("enqueue: %w", err))
	}
}

// Report receives the outcome of a push job.
func (e *Engine) Report(ctx context.Context, j queue.Job, err error) { //nolint:gocritic // hugeParam: Job is a value snapshot
	if err == nil {
		e.succeeded.Add(1)
		if j.Kind == queue.KindStructure {
			e.latch.Unrecord(ctx, structureLatch)
		}
		return
	}

	e.failed.Add(1)
	switch j.Kind {
	case queue.KindStructure:
		e.logger.Error(ctx, "structure push failed", logger.Error(err))
		if !e.latch.SeenAndRecord(ctx, structureLatch) {
			e.notifier.Notify(ctx, notice.Notice{
				Kind:    notice.StructurePushFailed,
				Message: "Could not save event setup to the remote store. Changes are kept locally.",
				Subject: j.Subject(),
			})
		}
	case queue.KindEvaluation:
		e.logger.Error(ctx, "evaluation push failed",
			logger.String("evaluation", j.Subject()),
			logger.Error(err),
		)
		e.notifier.Notify(ctx, notice.Notice{
			Kind:    notice.EvaluationPushFailed,
			Message: "Could not save an evaluation to the remote store. It is kept locally.",
			Subject: j.Subject(),
		})
	default:
		e.logger.Error(ctx, "push failed",
			logger.String("kind", string(j.Kind)),
			logger.Error(err),
		)
	}
}

// Status summarises the engine for clients.
func (e *Engine) Status() types.SyncStatus {
	return types.SyncStatus{
		State:           e.State().String(),
		Configured:      e.remote.Configured(),
		Backend:         e.remote.Name(),
		StructureLatch:  e.latch.State(structureLatch).String(),
		PendingPushes:   e.queue.Len(),
		FailedPushes:    e.failed.Load(),
		SucceededPushes: e.succeeded.Load(),
	}
}
