// Package worker drains the push queue and writes each job to the remote store.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/avalia/internal/adapters/mq/queue"
	"github.com/okian/avalia/internal/domain/model"
	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

const (
	defaultTimeout      = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Pusher writes snapshots to the remote store.
type Pusher interface {
	PushStructure(ctx context.Context, s model.Structure) error
	PushEvaluation(ctx context.Context, e model.Evaluation) error
	SaveAdminPassword(ctx context.Context, password string) error
}

// Reporter receives the outcome of every job. err is nil on success.
type Reporter interface {
	Report(ctx context.Context, j queue.Job, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// Push runs a single job against p, bounded by timeout.
func Push(ctx context.Context, p Pusher, j queue.Job, timeout time.Duration) error { //nolint:gocritic // hugeParam: Job is a value snapshot
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	switch j.Kind {
	case queue.KindStructure:
		err = p.PushStructure(ctx, j.Structure)
	case queue.KindEvaluation:
		err = p.PushEvaluation(ctx, j.Evaluation)
	case queue.KindAdminPassword:
		err = p.SaveAdminPassword(ctx, j.Password)
	default:
		err = fmt.Errorf("unknown job kind %q", j.Kind)
	}
	metrics.RecordPushLatency(string(j.Kind), float64(time.Since(start).Milliseconds()))

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.RecordPush(string(j.Kind), result)
	return err
}

// InMemoryWorker pushes jobs read from a Queue.
type InMemoryWorker struct {
	queue    Queue
	pusher   Pusher
	reporter Reporter
	name     string
	timeout  time.Duration

	shutdown chan struct{}
	once     sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Pusher, r Reporter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		pusher:   p,
		reporter: r,
		name:     "worker",
		timeout:  defaultTimeout,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when the queue closes, ctx is
// cancelled or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the worker without draining.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is a value snapshot
	err := Push(ctx, w.pusher, j, w.timeout)
	if err != nil {
		metrics.RecordWorkerError(string(j.Kind))
		w.logger.Debug(ctx, "push failed",
			logger.String("kind", string(j.Kind)),
			logger.String("subject", j.Subject()),
			logger.Error(err),
		)
	}
	if w.reporter != nil {
		w.reporter.Report(ctx, j, err)
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, p Pusher, r Reporter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, p, r, workerOpts...)
	}
	metrics.UpdateWorkerCount(0)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and waits for workers to drain pending jobs,
// bounded by ctx and poolShutdownTimeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			if stopErr := w.Shutdown(ctx); stopErr != nil && err == nil {
				err = stopErr
			}
		}
	}
	metrics.UpdateWorkerCount(0)
	return err
}
