package scenario

import (
	"sync"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
)

type subscription struct {
	fn     func(ScenarioInput)
	active bool
}

// Store is the single writer of the current scenario.
type Store struct {
	mu sync.Mutex

	cat      *catalog.Catalog
	state    ScenarioInput
	revision uint64

	subs        []*subscription
	pending     []ScenarioInput
	dispatching bool
}

func NewStore(cat *catalog.Catalog) *Store {
	return &Store{
		cat:   cat,
		state: FromDefaults(cat.Defaults),
	}
}

func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

func (s *Store) Get() ScenarioInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *Store) Snapshot() (ScenarioInput, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.revision
}

// Update commits p or returns a *ValidationError with nothing changed.
// Updates made from a subscriber are delivered after the running pass.
func (s *Store) Update(p Partial) (ScenarioInput, error) {
	s.mu.Lock()
	next, err := p.apply(s.cat, s.state)
	if err != nil {
		s.mu.Unlock()
		return ScenarioInput{}, err
	}
	s.state = next
	s.revision++
	s.pending = append(s.pending, next.Clone())
	if s.dispatching {
		s.mu.Unlock()
		return next.Clone(), nil
	}
	s.dispatching = true
	s.mu.Unlock()

	s.drain()
	return next.Clone(), nil
}

func (s *Store) drain() {
	finished := false
	defer func() {
		// A panicking subscriber must not wedge later updates.
		if !finished {
			s.mu.Lock()
			s.dispatching = false
			s.mu.Unlock()
		}
	}()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.dispatching = false
			finished = true
			s.mu.Unlock()
			return
		}
		snap := s.pending[0]
		s.pending = s.pending[1:]
		subs := append([]*subscription(nil), s.subs...)
		s.mu.Unlock()

		for _, sub := range subs {
			s.mu.Lock()
			active := sub.active
			s.mu.Unlock()
			if active {
				sub.fn(snap.Clone())
			}
		}
	}
}

func (s *Store) Subscribe(fn func(ScenarioInput)) func() {
	sub := &subscription{fn: fn, active: true}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !sub.active {
			return
		}
		sub.active = false
		for i, other := range s.subs {
			if other == sub {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
