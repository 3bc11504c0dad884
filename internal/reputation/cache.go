package reputation

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/phishshield/internal/core"
)

// DefaultCacheTTL bounds how long a reputation lookup is reused.
const DefaultCacheTTL = time.Hour

// Clock abstracts wall time so TTL behavior is testable without real time
// passing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Entry is one cached reputation result. Entries are immutable values; a
// refresh stores a new entry instead of mutating the old one, so concurrent
// readers never observe a partial write.
type Entry struct {
	Value    core.SignalResult
	StoredAt time.Time
}

// IsExpired reports whether the entry is older than the TTL at the given
// instant.
func (e Entry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) >= ttl
}

// Cache is a read-through TTL cache in front of reputation checks. Keys are
// composite ("<check-kind>:<domain>") so expiry of one check kind never
// invalidates its siblings for the same domain.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute func() core.SignalResult) core.SignalResult
}

// MemoryCache is the in-process Cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	clock   Clock
}

// NewMemoryCache creates an in-memory reputation cache.
func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		clock:   clock,
	}
}

// GetOrCompute returns the cached value when present and younger than the
// TTL; otherwise it computes, stores and returns. Entries are never
// proactively invalidated.
func (c *MemoryCache) GetOrCompute(_ context.Context, key string, compute func() core.SignalResult) core.SignalResult {
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && !entry.IsExpired(now, c.ttl) {
		return entry.Value
	}

	value := compute()

	c.mu.Lock()
	c.entries[key] = Entry{Value: value, StoredAt: now}
	c.mu.Unlock()

	return value
}
