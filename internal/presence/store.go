package presence

import "time"

// Store keeps the presence state for every tracked entity. It is not
// goroutine safe; all access happens on the tick loop goroutine.
type Store struct {
	states map[Key]*State
}

func NewStore() *Store {
	return &Store{states: make(map[Key]*State)}
}

// Get returns the state for the key, creating a zero state on first use.
func (s *Store) Get(key Key) *State {
	st, ok := s.states[key]
	if !ok {
		st = &State{}
		s.states[key] = st
	}
	return st
}

// Lookup returns the state without creating it.
func (s *Store) Lookup(key Key) (*State, bool) {
	st, ok := s.states[key]
	return st, ok
}

// Sweep removes entities that never reached Present and went stale.
// Returns the removed keys.
func (s *Store) Sweep(rules Rules, now time.Time) []Key {
	var removed []Key
	for key, st := range s.states {
		if rules.Stale(st, now) {
			delete(s.states, key)
			removed = append(removed, key)
		}
	}
	return removed
}

func (s *Store) Len() int {
	return len(s.states)
}

// Range calls fn for every tracked entity. fn must not mutate the store.
func (s *Store) Range(fn func(key Key, st *State)) {
	for key, st := range s.states {
		fn(key, st)
	}
}
