package webhook

import (
	"context"
	"sync"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Deduper remembers delivery hashes for a TTL window
type Deduper interface {
	// Seen records key and reports whether it was already recorded within the window
	Seen(ctx context.Context, key string) (bool, error)
}

// MemoryDeduper keeps hash -> first-seen time in a map. Expired entries are
// swept only when the map grows past sweepAt.
type MemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	sweepAt int
}

var _ Deduper = (*MemoryDeduper)(nil)

func NewMemoryDeduper(ttl time.Duration, sweepAt int) *MemoryDeduper {
	return &MemoryDeduper{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		sweepAt: sweepAt,
	}
}

func (d *MemoryDeduper) Seen(_ context.Context, key string) (bool, error) {
	now := NowTimeFunc()

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.entries[key]; ok && now.Sub(at) < d.ttl {
		return true, nil
	}
	d.entries[key] = now
	if len(d.entries) > d.sweepAt {
		d.sweepLocked(now)
	}
	return false, nil
}

// Len returns the number of tracked hashes, expired ones included
func (d *MemoryDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *MemoryDeduper) sweepLocked(now time.Time) {
	for key, at := range d.entries {
		if now.Sub(at) >= d.ttl {
			delete(d.entries, key)
		}
	}
}
