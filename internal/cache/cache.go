// Package cache provides the short-lived response cache in front of the
// GitHub fetch pipeline. Entries are whole-value snapshots keyed by a typed
// scope, fresh for a fixed window, then treated as absent.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultFreshness is the window inside which a stored entry still answers
// reads. Stale entries are never served partially or refreshed in place.
const DefaultFreshness = 5 * time.Minute

// Scope identifies what kind of value a key addresses.
type Scope string

const (
	ScopeUserActivities Scope = "user_activities"
	ScopeRepoActivities Scope = "repo_activities"
	ScopeTeamActivities Scope = "team_activities"
	ScopeOrgRepos       Scope = "org_repos"
	ScopeUserEvents     Scope = "user_events"
	ScopeUserOrgs       Scope = "user_orgs"
)

// Key addresses one cached value. Param carries the scope-specific
// discriminator: a login for user scopes, a repo name for repo scopes,
// empty for org-wide scopes.
type Key struct {
	Scope Scope
	Org   string
	Param string
}

// Validate rejects keys that would collide or address nothing.
func (k Key) Validate() error {
	if strings.TrimSpace(string(k.Scope)) == "" {
		return fmt.Errorf("cache key scope is required")
	}
	if strings.ContainsAny(k.Org, ":") || strings.ContainsAny(k.Param, ":") {
		return fmt.Errorf("cache key parts must not contain %q", ":")
	}
	return nil
}

// String renders the canonical storage key.
func (k Key) String() string {
	return string(k.Scope) + ":" + k.Org + ":" + k.Param
}

// Entry is one stored whole-value snapshot.
type Entry struct {
	Data     json.RawMessage
	StoredAt time.Time
}

// Store is the cache backend. Get returns ok=false for both absent and
// stale entries; callers cannot distinguish them and never should.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, data json.RawMessage) error
}

type memoryEntry struct {
	data     json.RawMessage
	storedAt time.Time
}

// MemoryCache is the in-process backend used when no Redis address is
// configured.
type MemoryCache struct {
	mu        sync.RWMutex
	freshness time.Duration
	entries   map[string]memoryEntry

	// now is injectable for tests.
	now func() time.Time
}

// NewMemoryCache creates a memory cache. freshness <= 0 selects the
// default window.
func NewMemoryCache(freshness time.Duration) *MemoryCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &MemoryCache{
		freshness: freshness,
		entries:   make(map[string]memoryEntry),
		now:       time.Now,
	}
}

// Get returns the entry for key if it is still inside the freshness window.
func (c *MemoryCache) Get(_ context.Context, key Key) (Entry, bool, error) {
	if err := key.Validate(); err != nil {
		return Entry{}, false, err
	}

	c.mu.RLock()
	entry, exists := c.entries[key.String()]
	c.mu.RUnlock()

	if !exists || c.now().Sub(entry.storedAt) > c.freshness {
		return Entry{}, false, nil
	}
	return Entry{Data: entry.data, StoredAt: entry.storedAt}, true, nil
}

// Set stores one whole value, replacing any previous entry and restarting
// its freshness window.
func (c *MemoryCache) Set(_ context.Context, key Key, data json.RawMessage) error {
	if err := key.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key.String()] = memoryEntry{data: data, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// GC deletes entries that fell out of the freshness window. Reads already
// ignore them; this just bounds memory.
func (c *MemoryCache) GC(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.freshness {
			delete(c.entries, key)
		}
	}
}

// ReadJSON reads and decodes a cached value into target.
func ReadJSON(ctx context.Context, store Store, key Key, target any) (bool, error) {
	entry, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("decode cached value for %q: %w", key.String(), err)
	}
	return true, nil
}

// WriteJSON encodes and stores one whole value.
func WriteJSON(ctx context.Context, store Store, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %q: %w", key.String(), err)
	}
	return store.Set(ctx, key, data)
}
