// Package notice carries user-facing sync notices from the reconciliation
// engine to whoever presents them.
package notice

import (
	"context"
	"sync"
	"time"

	"github.com/okian/avalia/pkg/logger"
	"github.com/okian/avalia/pkg/metrics"
)

// Kind classifies a notice.
type Kind string

// Notice kinds.
const (
	BootstrapFailed      Kind = "bootstrap_failed"
	StructurePushFailed  Kind = "structure_push_failed"
	EvaluationPushFailed Kind = "evaluation_push_failed"
)

// Level is the presentation severity.
type Level string

// Levels.
const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for the user.
type Notice struct {
	ID      int64     `json:"id"`
	Kind    Kind      `json:"kind"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Subject string    `json:"subject,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier surfaces notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Feed keeps the most recent notices in a ring so clients can poll them.
type Feed struct {
	mu       sync.RWMutex
	ring     []Notice
	next     int
	full     bool
	seq      int64
	logger   logger.Logger
	clock    func() time.Time
	capacity int
}

// NewFeed creates a Feed holding up to capacity notices.
func NewFeed(capacity int) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{
		ring:     make([]Notice, capacity),
		capacity: capacity,
		logger:   logger.Get().Named("notice"),
		clock:    time.Now,
	}
}

// Notify records n, assigning its id and time when unset.
func (f *Feed) Notify(ctx context.Context, n Notice) {
	if n.At.IsZero() {
		n.At = f.clock()
	}
	if n.Level == "" {
		n.Level = LevelError
	}

	// Ids are assigned under the lock so the ring stays ordered by id.
	f.mu.Lock()
	f.seq++
	n.ID = f.seq
	f.ring[f.next] = n
	f.next = (f.next + 1) % f.capacity
	if f.next == 0 {
		f.full = true
	}
	f.mu.Unlock()

	metrics.RecordNotice(string(n.Kind))
	f.logger.Warn(ctx, n.Message,
		logger.String("kind", string(n.Kind)),
		logger.String("subject", n.Subject),
	)
}

// Recent returns notices newer than afterID, newest first, at most limit.
// A limit of 0 or less returns all retained notices.
func (f *Feed) Recent(afterID int64, limit int) []Notice {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := f.next
	if f.full {
		count = f.capacity
	}
	out := make([]Notice, 0, count)
	for i := 1; i <= count; i++ {
		n := f.ring[(f.next-i+f.capacity)%f.capacity]
		if n.ID <= afterID {
			break
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Count returns how many notices were ever recorded.
func (f *Feed) Count() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seq
}
