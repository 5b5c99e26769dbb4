package services

import (
	"context"
	"strings"
	"sync"

	"mapquester/models"
	"mapquester/utils/errors"
)

// UserRepository stores dev-backend accounts.
type UserRepository interface {
	// CreateUser fails with ErrConflict when the username or email is taken.
	CreateUser(ctx context.Context, u models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]models.User{}}
}

func (m *MemoryUserRepository) CreateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) || (u.Email != "" && strings.EqualFold(existing.Email, u.Email)) {
			return errors.ErrConflict
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryUserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return models.User{}, errors.NotFound("user " + username)
}

func (m *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, errors.NotFound("user " + id)
	}
	return u, nil
}
