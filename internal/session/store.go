// Package session implements the volatile per-session state store.
//
// Entries expire after an inactivity TTL; reading a session for restoration
// slides the expiry forward so an active user is never evicted mid-task.
// Every put is a full-state overwrite, so concurrent tabs of one session
// resolve to last-write-wins by arrival order.
package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

const keyPrefix = "session:"

// Store is a TTL keyed store for session states. Safe for concurrent use;
// sessions are logically partitioned by ID.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewStore creates a session store whose entries expire after ttl of
// inactivity. A background sweep reclaims expired entries; expired entries
// are never returned either way.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, ttl),
		ttl:   ttl,
	}
}

// Put overwrites the whole state for the session and resets its TTL. The
// state is deep-copied so the caller cannot mutate what was stored.
func (s *Store) Put(sessionID string, state *model.SessionState) {
	s.cache.Set(keyPrefix+sessionID, state.Clone(), s.ttl)
}

// Get returns the current state for the session, or ok=false when the
// session is absent or its TTL has elapsed. A hit slides the expiry
// forward. Callers must treat absence as "start a fresh scrape".
func (s *Store) Get(sessionID string) (*model.SessionState, bool) {
	v, ok := s.cache.Get(keyPrefix + sessionID)
	if !ok {
		return nil, false
	}
	state := v.(*model.SessionState)
	s.cache.Set(keyPrefix+sessionID, state, s.ttl)
	return state.Clone(), true
}

// Touch refreshes the TTL without reading the state. Returns false when the
// session is absent or expired.
func (s *Store) Touch(sessionID string) bool {
	v, ok := s.cache.Get(keyPrefix + sessionID)
	if !ok {
		return false
	}
	s.cache.Set(keyPrefix+sessionID, v, s.ttl)
	return true
}

// Clear removes the session entry, forcing the next access to start fresh.
func (s *Store) Clear(sessionID string) {
	s.cache.Delete(keyPrefix + sessionID)
}
