package presence

import (
	"sync"
	"time"
)

// Store tracks which connections each user currently holds. Online status
// is derived from the live connection set rather than stored as a flag,
// so it cannot drift from reality after a partial failure.
type Store struct {
	mu       sync.RWMutex
	conns    map[string]map[string]struct{} // user id -> connection ids
	lastSeen map[string]time.Time
}

func NewStore() *Store {
	return &Store{
		conns:    make(map[string]map[string]struct{}),
		lastSeen: make(map[string]time.Time),
	}
}

// Add registers a connection for the user and reports whether it is the
// user's first live connection.
func (s *Store) Add(userID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		s.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1
}

// Remove drops a connection for the user and reports whether it was the
// user's last live connection. Removing an unknown connection is a no-op.
func (s *Store) Remove(userID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	s.lastSeen[userID] = time.Now()
	if len(set) == 0 {
		delete(s.conns, userID)
		return true
	}
	return false
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[userID]) > 0
}

// Connections returns the user's live connection ids.
func (s *Store) Connections(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.conns[userID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// LastSeen returns the instant the user's most recent connection closed.
// The zero time means the user has never disconnected.
func (s *Store) LastSeen(userID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen[userID]
}

// OnlineCount returns the number of users with at least one connection.
func (s *Store) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
