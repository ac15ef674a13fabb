package replica

import "sync"

// Entity is anything addressable by a stable mapping key.
type Entity interface {
	Key() string
}

// Set is the client-local mirror of one entity type: an ordered mapping keyed
// by entity id plus transient loading/error state. Snapshot fetches and push
// events are merged into it; it never writes back to the server.
//
// Pushed creates are prepended so the newest entity lists first; snapshots
// keep server order. Updates for ids not present are dropped on purpose —
// the entity appears on the next snapshot fetch.
type Set[T Entity] struct {
	mu      sync.Mutex
	order   []string
	items   map[string]T
	loading bool
	err     string
}

// NewSet creates an empty set.
func NewSet[T Entity]() *Set[T] {
	return &Set[T]{items: make(map[string]T)}
}

// BeginFetch marks a snapshot fetch in flight and clears any previous error.
func (s *Set[T]) BeginFetch() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// ApplySnapshot replaces the whole mapping with the fetched list. Applying
// the same snapshot twice yields the same mapping.
func (s *Set[T]) ApplySnapshot(list []T) {
	s.mu.Lock()
	s.order = s.order[:0]
	s.items = make(map[string]T, len(list))
	for _, e := range list {
		k := e.Key()
		if _, dup := s.items[k]; dup {
			continue
		}
		s.order = append(s.order, k)
		s.items[k] = e
	}
	s.loading = false
	s.mu.Unlock()
}

// ApplyCreated inserts the entity at the front if absent. A duplicate created
// event for a present id is a no-op.
func (s *Set[T]) ApplyCreated(e T) {
	s.mu.Lock()
	k := e.Key()
	if _, ok := s.items[k]; !ok {
		s.order = append([]string{k}, s.order...)
		s.items[k] = e
	}
	s.mu.Unlock()
}

// ApplyUpdated replaces the entry if present. Updates never insert.
func (s *Set[T]) ApplyUpdated(e T) {
	s.mu.Lock()
	k := e.Key()
	if _, ok := s.items[k]; ok {
		s.items[k] = e
	}
	s.mu.Unlock()
}

// ApplyDeleted removes the entry if present; absent ids are a no-op.
func (s *Set[T]) ApplyDeleted(id string) {
	s.mu.Lock()
	if _, ok := s.items[id]; ok {
		delete(s.items, id)
		for i, k := range s.order {
			if k == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
}

// FailFetch records a fetch failure and clears the loading flag. The mapping
// keeps whatever it held before.
func (s *Set[T]) FailFetch(message string) {
	s.mu.Lock()
	s.err = message
	s.loading = false
	s.mu.Unlock()
}

// Items returns the entities in mapping order.
func (s *Set[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out
}

// Get returns the entity for the given id.
func (s *Set[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	return e, ok
}

// Len returns the number of entities held.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Loading reports whether a snapshot fetch is in flight.
func (s *Set[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last fetch error message, empty when none.
func (s *Set[T]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
