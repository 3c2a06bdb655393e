package memory

import (
	"context"
	"sync"

	"github.com/V4T54L/service-portal/internal/domain"
)

// UserRepository keeps accounts keyed by phone.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Store(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Phone]; exists {
		return domain.ErrDuplicateEntry
	}
	r.users[u.Phone] = *u
	return nil
}
