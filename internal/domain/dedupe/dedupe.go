// Package dedupe tracks identities seen while ingesting a dataset so that
// repeated (player, season) keys can be reported.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records seen ids.
type Tracker interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Duplicates returns every id recorded more than once, in the order
	// their first repeat was observed.
	Duplicates() []string

	// Size returns the number of distinct ids recorded.
	Size() int64
}

type inMemoryTracker struct {
	mu         sync.RWMutex
	seen       map[string]int
	duplicates []string
	size       atomic.Int64
	sizeHint   int
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{}
	for _, opt := range opts {
		opt(t)
	}
	t.seen = make(map[string]int, t.sizeHint)
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.seen[id]
	t.seen[id] = n + 1
	switch n {
	case 0:
		t.size.Add(1)
		return false
	case 1:
		t.duplicates = append(t.duplicates, id)
	}
	return true
}

func (t *inMemoryTracker) Duplicates() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.duplicates))
	copy(out, t.duplicates)
	return out
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
