// Package session tracks short-lived conversational state per chat
// session: the last resolved intent and entity, so elliptical follow-ups
// ("주소는?") can inherit what the user was just talking about.
package session

import (
	"sync"
	"time"
)

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = 30 * time.Minute

// State is the carry-over context of one session.
type State struct {
	LastIntent     string
	LastAlias      string // normalized alias of the last resolved entity
	LastTag        string
	NavigationMode bool // set once a navigation answer is returned, stays set for the session
	UpdatedAt      time.Time
}

// Store keeps session states in memory with TTL expiry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]State
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a session store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]State),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live state for id. Expired state reads as absent.
func (s *Store) Get(id string) (State, bool) {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.now().Sub(st.UpdatedAt) > s.ttl {
		return State{}, false
	}
	return st, true
}

// Put replaces the state for id and refreshes its expiry.
func (s *Store) Put(id string, st State) {
	st.UpdatedAt = s.now()
	s.mu.Lock()
	s.sessions[id] = st
	s.mu.Unlock()
}

// Update applies fn to the current state of id (zero state when absent
// or expired) and stores the result.
func (s *Store) Update(id string, fn func(State) State) {
	cur, _ := s.Get(id)
	s.Put(id, fn(cur))
}

// Delete removes id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included
// until the cleanup job sweeps them.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweep removes every expired session and reports how many went.
func (s *Store) sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, st := range s.sessions {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
