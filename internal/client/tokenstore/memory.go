package tokenstore

import "sync"

// MemoryStore keeps the token in process memory. All controller
// instances sharing the store observe the same value, which models a
// shared browser storage origin.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	present bool
	subs    map[int]func()
	nextID  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[int]func())}
}

func (s *MemoryStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.present
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.present = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.present = false
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the store.
	for _, fn := range subs {
		fn()
	}
	return nil
}

func (s *MemoryStore) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
