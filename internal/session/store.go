// Package session provides the bounded per-session conversation history.
// Operations on the same session id are serialized; distinct sessions are
// fully parallel.
package session

import (
	"sort"
	"sync"
)

// Roles for a Turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTurns is the number of retained turn pairs per session. The
// stored history bound is twice this (user + assistant per pair).
const DefaultMaxTurns = 8

// Turn is one role-tagged message in a session's history. Immutable once
// appended; ordering is chronological.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type entry struct {
	mu    sync.Mutex
	turns []Turn
}

// Store maps session ids to bounded conversation histories. The zero value
// is not usable; create with New.
type Store struct {
	maxTurns int

	mu       sync.RWMutex
	sessions map[string]*entry
}

// New creates a Store keeping at most maxTurns turn pairs per session.
// If maxTurns <= 0, DefaultMaxTurns is used.
func New(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		maxTurns: maxTurns,
		sessions: make(map[string]*entry),
	}
}

// bound is the maximum stored turn count per session.
func (s *Store) bound() int {
	return 2 * s.maxTurns
}

// Ensure creates an empty history for id if absent. No-op otherwise.
func (s *Store) Ensure(id string) {
	s.session(id)
}

// session returns the entry for id, creating it if needed.
func (s *Store) session(id string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[id]; ok {
		return e
	}
	e = &entry{}
	s.sessions[id] = e
	return e
}

// Append adds a turn to the session, creating it if needed, and evicts the
// oldest turns once the bound is exceeded. Append and trim are atomic with
// respect to other operations on the same id.
func (s *Store) Append(id, role, content string) {
	e := s.session(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.turns = append(e.turns, Turn{Role: role, Content: content})
	if excess := len(e.turns) - s.bound(); excess > 0 {
		e.turns = append([]Turn(nil), e.turns[excess:]...)
	}
}

// History returns a snapshot copy of the session's turns in chronological
// order. A missing session yields an empty history.
func (s *Store) History(id string) []Turn {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// Len returns the number of stored turns for id.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.turns)
}

// Reset removes the session entirely. Resetting an unknown id is not an
// error; a later Ensure starts fresh.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// ListIDs returns all known session identifiers, sorted for stable output.
func (s *Store) ListIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
