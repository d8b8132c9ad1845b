// Package scores keeps the best score of every player id and persists it as a JSON object.
package scores

import (
	"sync"
)

// Persistence loads and saves the whole score table
type Persistence interface {
	// Load returns the stored table; a missing store is an empty table
	Load() (map[string]int, error)

	// Save replaces the stored table
	Save(scores map[string]int) error
}

// Store is a lock-protected id -> best score table. Every mutation goes through Update.
type Store struct {
	mu          sync.RWMutex
	scores      map[string]int
	persistence Persistence
}

// NewStore creates an empty store backed by persistence. A nil persistence keeps scores in memory only.
func NewStore(persistence Persistence) *Store {
	return &Store{
		scores:      make(map[string]int),
		persistence: persistence,
	}
}

// Load replaces the in-memory table with the persisted one
func (s *Store) Load() error {
	if s.persistence == nil {
		return nil
	}
	loaded, err := s.persistence.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(map[string]int, len(loaded))
	for id, score := range loaded {
		s.scores[id] = score
	}
	return nil
}

// Update records score for id and reports whether it is a new personal best
func (s *Store) Update(id string, score int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if best, ok := s.scores[id]; ok && score <= best {
		return false
	}
	s.scores[id] = score
	return true
}

// Get returns the best score stored for id
func (s *Store) Get(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[id]
	return score, ok
}

// All returns a copy of the table
func (s *Store) All() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.scores))
	for id, score := range s.scores {
		out[id] = score
	}
	return out
}

// Len returns the number of ids with a stored score
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// Save writes the table through the persistence layer
func (s *Store) Save() error {
	if s.persistence == nil {
		return nil
	}
	return s.persistence.Save(s.All())
}
