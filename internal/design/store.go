package design

import "sync"

// Store owns the single live Spec. Writes are last-writer-wins.
type Store struct {
	mu   sync.Mutex
	spec Spec
}

func NewStore(initial Spec) *Store {
	return &Store{spec: initial.Normalize()}
}

func (s *Store) Get() Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.spec
}

func (s *Store) Update(fn func(*Spec)) Spec {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fn != nil {
		fn(&s.spec)
	}
	s.spec = s.spec.Normalize()
	return s.spec
}

func (s *Store) Replace(spec Spec) Spec {
	return s.Update(func(cur *Spec) {
		*cur = spec
	})
}

func (s *Store) Apply(p Patch) Spec {
	return s.Update(func(cur *Spec) {
		*cur = cur.Apply(p)
	})
}
