// Package store is the in-memory registry of running matches. Sessions live
// for the duration of one game and are dropped on reset; nothing is durable.
package store

import (
	"sync"

	"github.com/google/uuid"

	"ibreakdevs/server/engine"
)

type Store struct {
	mu      sync.RWMutex
	matches map[string]*engine.Match
}

func New() *Store {
	return &Store{matches: make(map[string]*engine.Match)}
}

// NewID returns a fresh game id.
func (s *Store) NewID() string {
	return uuid.NewString()
}

func (s *Store) Put(id string, m *engine.Match) {
	s.mu.Lock()
	s.matches[id] = m
	s.mu.Unlock()
}

func (s *Store) Get(id string) (*engine.Match, bool) {
	s.mu.RLock()
	m, ok := s.matches[id]
	s.mu.RUnlock()
	return m, ok
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.matches, id)
	s.mu.Unlock()
}

// Len reports the number of live sessions, for the health endpoint.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
