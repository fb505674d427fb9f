package tokenstore

import (
	"os"
	"strings"
	"sync"
)

// FileStore persists the token to a file so a session survives client
// restarts. Clears are observed only through this process's store
// instance; there is no cross-process file watching.
type FileStore struct {
	path string

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, subs: make(map[int]func())}
}

func (s *FileStore) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *FileStore) Save(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

func (s *FileStore) Subscribe(fn func()) (cancel func()) {
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
