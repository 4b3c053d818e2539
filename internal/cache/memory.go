package cache

import (
	"context"
	"sync"
	"time"

	"github.com/abimarket/auth-service/internal/domain"
)

type identityEntry struct {
	identity domain.Identity
	cachedAt time.Time
}

// MemoryIdentityCache is an in-process IdentityCache guarded by a mutex.
// Concurrent refreshes for the same identity race benignly; last writer
// wins because the cache is a read-through optimization, not a source of
// truth.
type MemoryIdentityCache struct {
	mu        sync.RWMutex
	entries   map[string]identityEntry
	freshness time.Duration
	nowFunc   func() time.Time // injectable clock for testing
}

// NewMemoryIdentityCache creates a cache whose entries stay trusted for the
// given freshness window.
func NewMemoryIdentityCache(freshness time.Duration) *MemoryIdentityCache {
	return &MemoryIdentityCache{
		entries:   make(map[string]identityEntry),
		freshness: freshness,
		nowFunc:   time.Now,
	}
}

// Get returns a copy of the cached snapshot when it is still fresh.
func (c *MemoryIdentityCache) Get(_ context.Context, id string) (*domain.Identity, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || c.nowFunc().Sub(entry.cachedAt) > c.freshness {
		return nil, false
	}

	snapshot := entry.identity
	return &snapshot, true
}

// Set stores a copy of the identity with a fresh timestamp.
func (c *MemoryIdentityCache) Set(_ context.Context, identity *domain.Identity) {
	if identity == nil || identity.ID == "" {
		return
	}
	c.mu.Lock()
	c.entries[identity.ID] = identityEntry{identity: *identity, cachedAt: c.nowFunc()}
	c.mu.Unlock()
}

// Invalidate drops the entry for id.
func (c *MemoryIdentityCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Sweep removes entries older than the freshness window.
func (c *MemoryIdentityCache) Sweep(_ context.Context) {
	now := c.nowFunc()
	c.mu.Lock()
	for id, entry := range c.entries {
		if now.Sub(entry.cachedAt) > c.freshness {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries, fresh or not. Used in tests.
func (c *MemoryIdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MemoryDenylist is an in-process TokenDenylist. It is lost on restart,
// which shortens the revocation guarantee for stateless tokens to the
// process lifetime; deployments needing durability use the Redis backend.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	nowFunc func() time.Time
}

// NewMemoryDenylist creates an empty in-process denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// Add marks jti as revoked until expiresAt.
func (d *MemoryDenylist) Add(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	d.mu.Lock()
	d.entries[jti] = expiresAt
	d.mu.Unlock()
	return nil
}

// Contains reports whether jti is denylisted and not yet past its expiry.
func (d *MemoryDenylist) Contains(_ context.Context, jti string) bool {
	d.mu.RLock()
	expiresAt, ok := d.entries[jti]
	d.mu.RUnlock()
	return ok && d.nowFunc().Before(expiresAt)
}

// Sweep removes entries whose expiry has passed.
func (d *MemoryDenylist) Sweep(_ context.Context) {
	now := d.nowFunc()
	d.mu.Lock()
	for jti, expiresAt := range d.entries {
		if !now.Before(expiresAt) {
			delete(d.entries, jti)
		}
	}
	d.mu.Unlock()
}

// Len returns the number of denylisted entries. Used in tests.
func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
