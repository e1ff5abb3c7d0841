package reconcile

import (
	"time"

	"github.com/okian/avalia/internal/domain/dedupe"
	"github.com/okian/avalia/internal/domain/notice"
	"github.com/okian/avalia/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNotifier sets where user-facing notices go.
func WithNotifier(n notice.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithLatch sets the failure latch used for structure pushes.
func WithLatch(d dedupe.Deduper) Option {
	return func(e *Engine) {
		if d != nil {
			e.latch = d
		}
	}
}

// WithTimeout bounds each bootstrap fetch.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPasswordHasher replaces bcrypt for hashing a fetched admin password.
func WithPasswordHasher(h func(string) (string, error)) Option {
	return func(e *Engine) {
		if h != nil {
			e.hash = h
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
