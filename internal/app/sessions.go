package app

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
)

// session binds one browser session to a GitHub token.
type session struct {
	Token     string
	Login     string
	ExpiresAt time.Time
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration

	// now is injectable for tests.
	now func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *sessionStore) create(token, login string) string {
	id := newRandomID()
	s.mu.Lock()
	s.sessions[id] = session{
		Token:     token,
		Login:     login,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()
	return id
}

func (s *sessionStore) lookup(id string) (session, bool) {
	s.mu.RLock()
	sess, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists || s.now().After(sess.ExpiresAt) {
		return session{}, false
	}
	return sess, true
}

func (s *sessionStore) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *sessionStore) gc(now time.Time) {
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
}

func newRandomID() string {
	buf := make([]byte, 16)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type progressEntry struct {
	progress activity.Progress
	updated  time.Time
}

// progressRegistry keeps the latest progress emission per fetch ID for the
// polling endpoint. Entries are transient and never persisted.
type progressRegistry struct {
	mu      sync.RWMutex
	entries map[string]progressEntry
	ttl     time.Duration

	now func() time.Time
}

func newProgressRegistry(ttl time.Duration) *progressRegistry {
	return &progressRegistry{
		entries: make(map[string]progressEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// record stores the newest emission for id, keeping the percentage
// monotone even if emissions arrive out of order.
func (r *progressRegistry) record(id string, progress activity.Progress) {
	if id == "" {
		return
	}
	r.mu.Lock()
	if existing, exists := r.entries[id]; exists && existing.progress.Percentage > progress.Percentage {
		progress.Percentage = existing.progress.Percentage
	}
	r.entries[id] = progressEntry{progress: progress, updated: r.now()}
	r.mu.Unlock()
}

func (r *progressRegistry) get(id string) (activity.Progress, bool) {
	r.mu.RLock()
	entry, exists := r.entries[id]
	r.mu.RUnlock()
	if !exists {
		return activity.Progress{}, false
	}
	return entry.progress, true
}

func (r *progressRegistry) gc(now time.Time) {
	r.mu.Lock()
	for id, entry := range r.entries {
		if now.Sub(entry.updated) > r.ttl {
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()
}
