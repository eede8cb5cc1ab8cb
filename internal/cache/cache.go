// Package cache holds C5's single shared DailyCache: written once at
// 06:00 by the data-collection fan-out, read concurrently by every
// downstream stage for the rest of the day (spec.md §5 "read-mostly").
package cache

import (
	"sync"
	"time"

	"github.com/hanbat-quant/sentinel/internal/contracts"
)

// DailyCache is the process-wide single value described in spec.md §3.
// Replace swaps the whole snapshot atomically under one mutex so readers
// never observe a half-written cache.
type DailyCache struct {
	mu   sync.RWMutex
	data contracts.Cache
	set  bool
}

func New() *DailyCache {
	return &DailyCache{}
}

// Replace installs a freshly collected snapshot, overwriting whatever was
// there before (spec.md §8: "second run's collected_at strictly greater;
// same key set; no stale keys").
func (c *DailyCache) Replace(snapshot contracts.Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = snapshot
	c.set = true
}

// Get returns a copy of the current snapshot and whether one has ever
// been written.
func (c *DailyCache) Get() (contracts.Cache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.set
}

// IsFresh implements spec.md §4.5: true iff collected_at exists and
// now - collected_at <= maxAge.
func (c *DailyCache) IsFresh(now time.Time, maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return false
	}
	return c.data.IsFresh(now, maxAge)
}
