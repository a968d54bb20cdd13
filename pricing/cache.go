package pricing

import (
	"sync"
	"time"

	"staylens/models"
)

// Cache maps date range keys to price fetch results. Entries move
// absent -> pending -> empty|stats; the two terminal states are never
// overwritten by a later pending write, so a stale in-flight fetch can
// never knock out a resolved result.
type Cache struct {
	mu      sync.RWMutex
	entries map[models.DateRangeKey]models.PriceEntry

	// onChange, when set, fires after every terminal write. Used by the
	// calendar layer to recompute color classification.
	onChange func()
}

func NewCache() *Cache {
	return &Cache{entries: make(map[models.DateRangeKey]models.PriceEntry)}
}

// OnChange registers a callback invoked after each terminal write.
func (c *Cache) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Get returns the entry for key; absent keys report StateAbsent.
func (c *Cache) Get(key models.DateRangeKey) models.PriceEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return e
	}
	return models.PriceEntry{State: models.StateAbsent}
}

// MarkPending records that a fetch for key has been queued. Terminal
// entries are left untouched.
func (c *Cache) MarkPending(key models.DateRangeKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.State.Terminal() {
		return false
	}
	c.entries[key] = models.PriceEntry{State: models.StatePending, UpdatedAt: time.Now()}
	return true
}

// SetStats writes a terminal stats result for key.
func (c *Cache) SetStats(key models.DateRangeKey, stats models.PriceStats, currency string) {
	c.setTerminal(key, models.PriceEntry{
		State:     models.StateStats,
		Stats:     &stats,
		Currency:  currency,
		UpdatedAt: time.Now(),
	})
}

// SetEmpty writes a terminal no-data result for key.
func (c *Cache) SetEmpty(key models.DateRangeKey) {
	c.setTerminal(key, models.PriceEntry{State: models.StateEmpty, UpdatedAt: time.Now()})
}

func (c *Cache) setTerminal(key models.DateRangeKey, e models.PriceEntry) {
	c.mu.Lock()
	if prev, ok := c.entries[key]; ok && prev.State.Terminal() {
		c.mu.Unlock()
		return
	}
	c.entries[key] = e
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Snapshot returns a copy of all entries.
func (c *Cache) Snapshot() map[models.DateRangeKey]models.PriceEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[models.DateRangeKey]models.PriceEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Reset drops every entry. Used on hard navigation.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[models.DateRangeKey]models.PriceEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
