package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used when no database is configured
// and throughout the test suite.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // id -> user
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
	}
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found User
	ok := false
	for _, u := range s.users {
		if u.Name != name {
			continue
		}
		// Oldest record wins, matching the SQL lookup order.
		if !ok || u.CreatedAt.Before(found.CreatedAt) {
			found = u
			ok = true
		}
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) Create(_ context.Context, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) Close() {}

// Len reports the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
