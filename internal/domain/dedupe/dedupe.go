// Package dedupe suppresses repeated failure notices within a failure streak.
//
// Each key is a two-state latch: Clear until the first failure of a streak
// records it as Shown, and back to Clear on the next success.
package dedupe

import (
	"context"
	"sync"
)

// State of a single latch.
type State int

// Latch states.
const (
	Clear State = iota
	Shown
)

func (s State) String() string {
	if s == Shown {
		return "shown"
	}
	return "clear"
}

// Deduper tracks which failure streaks have already been reported.
type Deduper interface {
	// SeenAndRecord moves key to Shown and reports whether it already was.
	// A false result means the caller should surface the failure.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord moves key back to Clear, ending the streak.
	Unrecord(ctx context.Context, key string)

	// State returns the current state of key.
	State(key string) State

	// Size returns the number of keys currently Shown.
	Size() int64
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	shown   map[string]struct{}
	maxKeys int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxKeys: defaultMaxKeys,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.shown = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.shown[key]; ok {
		return true
	}
	// Past the bound every failure is reported, never silently swallowed.
	if d.maxKeys > 0 && len(d.shown) >= d.maxKeys {
		return false
	}
	d.shown[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shown, key)
}

func (d *inMemoryDeduper) State(key string) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.shown[key]; ok {
		return Shown
	}
	return Clear
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.shown))
}
