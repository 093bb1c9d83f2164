package cart

import (
	"sync"

	"cart-service/internal/models"
)

// Effect runs after a transition has been committed, in dispatch order and
// while the store is still locked. Effects must not block or call back into
// the store; slow work such as storage writes is handed off to a worker.
type Effect func(prev, next models.CartState, action Action)

// Store is the single writer for one cart. It applies actions through Reduce
// and keeps a revision number that moves on every content change, so callers
// holding results computed from an older cart can detect that they are stale.
type Store struct {
	mu       sync.Mutex
	state    models.CartState
	revision uint64
	effects  []Effect
}

// NewStore creates a store starting from the given state
func NewStore(initial models.CartState, effects ...Effect) *Store {
	return &Store{
		state:   copyState(initial),
		effects: effects,
	}
}

// State returns a snapshot of the current state
func (s *Store) State() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Snapshot returns the current state together with its revision
func (s *Store) Snapshot() (models.CartState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state), s.revision
}

// Revision returns the current content revision
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Dispatch applies an action and returns the resulting state
func (s *Store) Dispatch(action Action) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, next := s.apply(action)
	s.runEffects(prev, next, action)
	return copyState(next)
}

// DispatchAt applies the action only if the cart is still at the given
// revision. It reports false and leaves the cart untouched otherwise.
func (s *Store) DispatchAt(revision uint64, action Action) (models.CartState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revision != revision {
		return copyState(s.state), false
	}
	prev, next := s.apply(action)
	s.runEffects(prev, next, action)
	return copyState(next), true
}

func (s *Store) apply(action Action) (models.CartState, models.CartState) {
	prev := s.state
	s.state = Reduce(prev, action)
	if changesContent(action) {
		s.revision++
	}
	return prev, s.state
}

func (s *Store) runEffects(prev, next models.CartState, action Action) {
	for _, effect := range s.effects {
		effect(prev, next, action)
	}
}

// changesContent is false only for visibility toggles
func changesContent(action Action) bool {
	switch action.(type) {
	case OpenCart, CloseCart:
		return false
	}
	return true
}
