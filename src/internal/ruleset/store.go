// FILE: peerxlat/src/internal/ruleset/store.go
package ruleset

import (
	"sync"
	"sync/atomic"
)

// Store holds the active ruleset. Readers take a snapshot with Load and scan
// it without holding any lock; writers replace the whole snapshot. The
// exclusive section covers only the handle swap, so candidates must be fully
// built before Commit is called.
type Store struct {
	mu         sync.RWMutex
	current    *Ruleset
	generation atomic.Uint64
}

// NewStore returns a store holding the empty ruleset.
func NewStore() *Store {
	return &Store{current: Empty()}
}

// Load returns the current ruleset. The result is never nil and never
// modified afterwards.
func (s *Store) Load() *Ruleset {
	s.mu.RLock()
	rs := s.current
	s.mu.RUnlock()
	return rs
}

// Commit replaces the active ruleset and returns the new generation.
// A nil ruleset commits the empty one.
func (s *Store) Commit(rs *Ruleset) uint64 {
	if rs == nil {
		rs = Empty()
	}

	s.mu.Lock()
	s.current = rs
	gen := s.generation.Add(1)
	s.mu.Unlock()

	return gen
}

// Clear commits the empty ruleset.
func (s *Store) Clear() uint64 {
	return s.Commit(Empty())
}

// Generation counts commits since the store was created.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}
