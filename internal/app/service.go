// Package service is the single logical actor that owns every mutation of
// the local store and hands sync work to the reconciliation engine.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	eventqueue "github.com/okian/avalia/internal/adapters/mq/queue"
	workerpool "github.com/okian/avalia/internal/adapters/mq/worker"
	"github.com/okian/avalia/internal/adapters/remote"
	"github.com/okian/avalia/internal/adapters/repository"
	"github.com/okian/avalia/internal/app/reconcile"
	"github.com/okian/avalia/internal/domain/dedupe"
	"github.com/okian/avalia/internal/domain/notice"
	"github.com/okian/avalia/internal/domain/scoring"
	"github.com/okian/avalia/internal/domain/types"
	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

// Service implements the operations behind the HTTP API.
type Service struct {
	// mu serializes every mutation of the local store.
	mu sync.Mutex

	store      *repository.Store
	remote     remote.Store
	queue      *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	engine     *reconcile.Engine
	notices    *notice.Feed
	aggregator *scoring.Aggregator

	// Configuration
	workerCount          int
	queueSize            int
	remoteTimeout        time.Duration
	defaultAdminPassword string
	legacyMemberAverage  bool
	noticeCapacity       int
	passwordCost         int
	clock                func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of push workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the push queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRemoteTimeout bounds every remote call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.remoteTimeout = d
		}
	}
}

// WithDefaultAdminPassword sets the password used until one is changed or
// fetched from the remote store.
func WithDefaultAdminPassword(pw string) Option {
	return func(s *Service) {
		if pw != "" {
			s.defaultAdminPassword = pw
		}
	}
}

// WithLegacyMemberAverage reports 0 for members nobody scored.
func WithLegacyMemberAverage(enabled bool) Option {
	return func(s *Service) {
		s.legacyMemberAverage = enabled
	}
}

// WithNoticeCapacity sets how many notices are retained.
func WithNoticeCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.noticeCapacity = n
		}
	}
}

// WithPasswordCost sets the bcrypt cost for the admin password hash.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.passwordCost = cost
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires a Service over an opened local store and a remote store. Pass
// remote.Disabled{} to run local-only.
func New(store *repository.Store, rs remote.Store, opts ...Option) *Service {
	s := &Service{
		store:                store,
		remote:               rs,
		workerCount:          4,
		queueSize:            1024,
		remoteTimeout:        10 * time.Second,
		defaultAdminPassword: "admin",
		noticeCapacity:       50,
		passwordCost:         bcrypt.DefaultCost,
		clock:                time.Now,
		logger:               logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.remote == nil {
		s.remote = remote.Disabled{}
	}

	s.aggregator = scoring.NewAggregator(scoring.WithZeroForMissingMember(s.legacyMemberAverage))
	s.notices = notice.NewFeed(s.noticeCapacity)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.engine = reconcile.New(store, s.remote, s.queue,
		reconcile.WithNotifier(s.notices),
		reconcile.WithLatch(dedupe.NewInMemoryDeduper()),
		reconcile.WithTimeout(s.remoteTimeout),
		reconcile.WithPasswordHasher(s.hashPassword),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.remote, s.engine,
		workerpool.WithTimeout(s.remoteTimeout),
	)
	return s
}

// Start bootstraps from the remote store and starts the push workers.
// Write operations are accepted once Start returns.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting service...",
		logger.String("backend", s.remote.Name()),
		logger.Bool("configured", s.remote.Configured()),
	)

	// Workers outlive the start request; Stop drains them.
	s.workerPool.Start(context.WithoutCancel(ctx))

	if err := s.engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if s.store.AdminPasswordHash() == "" {
		h, err := s.hashPassword(s.defaultAdminPassword)
		if err != nil {
			return fmt.Errorf("hash default admin password: %w", err)
		}
		if err := s.store.SetAdminPasswordHash(ctx, h); err != nil {
			return err
		}
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("state", s.engine.State().String()),
	)
	return nil
}

// Stop drains pending pushes, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping service...", logger.Int("pending", s.queue.Len()))
	err := s.workerPool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "service stopped")
	return err
}

// checkStarted must be called with s.mu held. Writes before bootstrap would
// be overwritten by the remote merge and never pushed.
func (s *Service) checkStarted() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), s.passwordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Service) now() time.Time {
	return s.clock()
}

// SyncStatus reports the reconciliation engine.
func (s *Service) SyncStatus() types.SyncStatus {
	return s.engine.Status()
}

// Notices returns sync notices newer than afterID, newest first.
func (s *Service) Notices(afterID int64, limit int) []notice.Notice {
	return s.notices.Recent(afterID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	queueLen := s.queue.Len()
	metrics.UpdateQueueSize(queueLen)

	return map[string]interface{}{
		"started":     started,
		"workerCount": s.workerPool.Size(),
		"queueSize":   s.queueSize,
		"queueLength": queueLen,
		"events":      len(s.store.Events()),
		"groups":      len(s.store.Groups()),
		"criteria":    len(s.store.Criteria()),
		"evaluations": len(s.store.Evaluations()),
		"notices":     s.notices.Count(),
		"sync":        s.engine.Status(),
	}
}
