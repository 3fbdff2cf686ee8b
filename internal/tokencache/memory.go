// memory.go implements the in-process token cache: a mutex-guarded map with a
// janitor goroutine that evicts expired entries.
package tokencache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is one cached token with its expiry deadline.
type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryCache is a TTL-bounded in-process cache. Concurrent population of the
// same key is tolerated: both writers fetched the same source-of-truth value,
// so last-writer-wins is correct.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewMemoryCache creates a memory cache whose entries live for ttl. The
// janitor wakes at the TTL interval; Get also checks expiry on read, so the
// janitor only bounds memory, never correctness.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go c.janitor()

	return c
}

// janitor periodically removes expired entries
func (c *MemoryCache) janitor() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Get returns the cached token for orgID if present and unexpired.
func (c *MemoryCache) Get(ctx context.Context, orgID string) (string, bool, error) {
	c.mu.RLock()
	entry, exists := c.entries[orgID]
	c.mu.RUnlock()

	if !exists {
		return "", false, nil
	}
	if c.now().After(entry.expiresAt) {
		// Expired but not yet collected by the janitor: treat as a miss and
		// evict eagerly.
		c.mu.Lock()
		if current, ok := c.entries[orgID]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, orgID)
		}
		c.mu.Unlock()
		return "", false, nil
	}

	return entry.token, true, nil
}

// Set stores the token for orgID with the configured TTL.
func (c *MemoryCache) Set(ctx context.Context, orgID, token string) error {
	c.mu.Lock()
	c.entries[orgID] = memoryEntry{
		token:     token,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes orgID's entry. Absent keys are a no-op.
func (c *MemoryCache) Delete(ctx context.Context, orgID string) error {
	c.mu.Lock()
	delete(c.entries, orgID)
	c.mu.Unlock()
	return nil
}

// Close stops the janitor goroutine. Safe to call more than once.
func (c *MemoryCache) Close() error {
	c.once.Do(func() {
		close(c.stopCh)
	})
	return nil
}

// Len returns the number of live entries (expired-but-uncollected included).
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
