package repository

import (
	"context"
	"sync"
	"time"

	"chat-platform/backend/internal/user/domain"
)

// MemoryRepository is an in-memory Repository implementation, used in tests
// and local development without a database.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User // by ID
}

// NewMemoryRepository returns a new in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*domain.User)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = updatedAt
	}
	return nil
}

func (r *MemoryRepository) SetEmailVerified(ctx context.Context, userID string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.EmailVerified = true
		u.UpdatedAt = updatedAt
	}
	return nil
}
