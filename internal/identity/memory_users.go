package identity

import (
	"context"
	"sync"
)

// MemoryUserStore is the in-process user table.
type MemoryUserStore struct {
	mu         sync.RWMutex
	users      map[string]User
	emailIndex map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:      make(map[string]User),
		emailIndex: make(map[string]string),
	}
}

func (m *MemoryUserStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return User{}, ErrUserNotFound
}

func (m *MemoryUserStore) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return User{}, ErrUserNotFound
}

// CreateUser checks and claims the email under one lock so two concurrent
// sign-ups cannot both succeed.
func (m *MemoryUserStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emailIndex[user.Email]; exists {
		return ErrDuplicateEmail
	}
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}
