package repository

import (
	"context"
	"sync"
	"time"

	"chat-platform/backend/internal/otp/domain"
)

type ownerKey struct {
	ownerType domain.OwnerType
	ownerID   string
}

// MemoryRepository is an in-memory Repository implementation, used in tests
// and local development without a database.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[ownerKey]*domain.Otp
}

// NewMemoryRepository returns a new in-memory code repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[ownerKey]*domain.Otp)}
}

func (r *MemoryRepository) Replace(ctx context.Context, rec *domain.Otp, notBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := ownerKey{rec.OwnerType, rec.OwnerID}
	if existing, ok := r.m[k]; ok && existing.CreatedAt.After(notBefore) {
		return false, nil
	}
	cp := *rec
	r.m[k] = &cp
	return true, nil
}

func (r *MemoryRepository) Consume(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose, codeHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.m[ownerKey{ownerType, ownerID}]
	if !ok || rec.Consumed || rec.Purpose != purpose || rec.CodeHash != codeHash || !rec.ExpiresAt.After(now) {
		return false, nil
	}
	rec.Consumed = true
	return true, nil
}
