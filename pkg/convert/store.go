package convert

import (
	"sync"
)

// Listener receives a snapshot after every store update
type Listener func(State)

// Store is an observable holder for State.
// Updates are applied in call order; later writes overwrite earlier ones.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	order     []int
	nextID    int
}

// NewStore creates a store seeded with initial
func NewStore(initial State) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// Get returns a snapshot of the current state
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone()
}

// Update applies fn to the state and notifies listeners with the result
func (s *Store) Update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// Reset replaces the whole state
func (s *Store) Reset(state State) {
	s.Update(func(st *State) {
		*st = state
	})
}

// Subscribe registers l and returns a function that removes it
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// snapshotListeners copies the listener list (must be called with lock held)
func (s *Store) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	return listeners
}
