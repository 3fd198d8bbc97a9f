package repository

import (
	"context"
	"sync"

	"chat-platform/backend/internal/signup/domain"
)

// MemoryRepository is an in-memory Repository implementation, used in tests
// and local development without a database.
type MemoryRepository struct {
	mu      sync.Mutex
	signups map[string]*domain.PendingSignup // by ID
}

// NewMemoryRepository returns a new in-memory pending signup repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{signups: make(map[string]*domain.PendingSignup)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, p *domain.PendingSignup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.signups {
		if s.Email == p.Email && id != p.ID {
			delete(r.signups, id)
		}
	}
	cp := *p
	r.signups[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.PendingSignup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.signups[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingSignup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.signups {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.signups, id)
	return nil
}
