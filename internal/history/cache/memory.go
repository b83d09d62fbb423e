package cache

import (
	"context"
	"sync"
	"time"

	"sustainly-backend/internal/history/domain"
)

// MemoryCache keeps entries in process. Entries older than the retention
// window are dropped lazily on access.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	retention time.Duration
	now       func() time.Time
}

func NewMemoryCache(retention time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]Entry),
		retention: retention,
		now:       time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (Entry, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if c.retention > 0 && !entry.Fresh(c.now(), c.retention) {
		c.mu.Lock()
		if cur, ok := c.entries[userID]; ok && cur.FetchedAt.Equal(entry.FetchedAt) {
			delete(c.entries, userID)
		}
		c.mu.Unlock()
		return Entry{}, false, nil
	}
	entry.Items = domain.CloneItems(entry.Items)
	return entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, userID string, entry Entry) error {
	entry.Items = domain.CloneItems(entry.Items)
	if entry.Items == nil {
		entry.Items = []domain.HistoryItem{}
	}
	c.mu.Lock()
	c.entries[userID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}
