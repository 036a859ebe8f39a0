package store

import (
	"context"
	"sync"
	"time"

	"github.com/roostd-dev/roostd/internal/models"
)

// CachedStore decorates a UserStore with a short-lived by-id cache for the
// access gate's per-request existence check. It trades one store round-trip
// per protected request for bounded staleness: a deleted user may pass the
// gate for at most the cache TTL. Logout invalidates its own entry
// immediately. Lookups by email and writes always go to the backing store.
type CachedStore struct {
	UserStore

	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	user    models.User
	expires time.Time
}

// NewCachedStore wraps backing with a by-id cache holding entries for ttl.
func NewCachedStore(backing UserStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		UserStore: backing,
		entries:   make(map[string]cacheEntry),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (c *CachedStore) ByID(ctx context.Context, id string) (*models.User, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok && entry.expires.After(c.now()) {
		user := entry.user
		c.mu.Unlock()
		return &user, nil
	}
	c.mu.Unlock()

	user, err := c.UserStore.ByID(ctx, id)
	if err != nil {
		// Negative results are not cached: a just-registered user must be
		// visible to the gate immediately.
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = cacheEntry{user: *user, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return user, nil
}

func (c *CachedStore) BumpTokenVersion(ctx context.Context, id string) error {
	// The bump changes the stored version the gate compares against, so the
	// cached copy must go regardless of the outcome.
	c.Invalidate(id)
	return c.UserStore.BumpTokenVersion(ctx, id)
}

// Invalidate drops the cache entry for a user id.
func (c *CachedStore) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
