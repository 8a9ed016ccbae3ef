package turnqueue

import (
	"context"
	"sync"
	"time"
)

// DedupCache drops duplicate inbound requests (e.g. redelivered Telegram
// webhook updates) within a time window.
type DedupCache struct {
	entries map[string]time.Time
	ttl     time.Duration
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDedupCache creates a dedup cache with the given TTL
func NewDedupCache(ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	dc := &DedupCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		ctx:     ctx,
		cancel:  cancel,
	}

	go dc.cleanup()

	return dc
}

// Seen records the id and reports whether it was already present within
// the TTL window.
func (dc *DedupCache) Seen(id string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if at, exists := dc.entries[id]; exists && time.Since(at) <= dc.ttl {
		return true
	}
	dc.entries[id] = time.Now()
	return false
}

// Size returns the number of tracked ids
func (dc *DedupCache) Size() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.entries)
}

// Stop terminates the cleanup goroutine
func (dc *DedupCache) Stop() {
	dc.cancel()
}

func (dc *DedupCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-dc.ctx.Done():
			return
		case <-ticker.C:
			dc.mu.Lock()
			now := time.Now()
			for id, at := range dc.entries {
				if now.Sub(at) > dc.ttl {
					delete(dc.entries, id)
				}
			}
			dc.mu.Unlock()
		}
	}
}
