package catalog

import (
	"sync"
	"sync/atomic"
)

// Store holds the current snapshot. Publishing swaps the pointer, so readers
// keep whatever snapshot they obtained for the whole request.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	version uint64
}

// NewStore creates a store and publishes initial when it is not nil.
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	if initial != nil {
		s.Publish(initial)
	}
	return s
}

// Snapshot returns the current snapshot, or an empty one before the first
// publish.
func (s *Store) Snapshot() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Publish stamps snap with the next version and makes it current. The
// snapshot must not be shared before it is published.
func (s *Store) Publish(snap *Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	snap.version = s.version
	s.current.Store(snap)
	return s.version
}
