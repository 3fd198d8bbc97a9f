package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-platform/backend/internal/token/domain"
)

type deviceKey struct {
	userID     string
	deviceName string
}

// MemoryRepository is an in-memory Repository implementation, used in tests
// and local development without a database. A single mutex makes every
// operation atomic, mirroring the transactional guarantees of Postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	access  map[string]*domain.AccessToken  // by token hash
	refresh map[string]*domain.RefreshToken // by token hash
	byDev   map[deviceKey]string            // device -> current refresh hash
}

// NewMemoryRepository returns a new in-memory token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		access:  make(map[string]*domain.AccessToken),
		refresh: make(map[string]*domain.RefreshToken),
		byDev:   make(map[deviceKey]string),
	}
}

func (r *MemoryRepository) SavePair(ctx context.Context, refresh *domain.RefreshToken, access *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := deviceKey{refresh.UserID, refresh.DeviceName}
	if old, ok := r.byDev[k]; ok {
		delete(r.refresh, old)
	}
	rcp := *refresh
	r.refresh[refresh.TokenHash] = &rcp
	r.byDev[k] = refresh.TokenHash

	r.replaceAccessLocked(access)
	return nil
}

func (r *MemoryRepository) RotatePair(ctx context.Context, oldHash, deviceName string, next Rotation) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.refresh[oldHash]
	if !ok || old.DeviceName != deviceName || !old.ExpiresAt.After(next.Now) {
		return nil, nil
	}
	delete(r.refresh, oldHash)
	rotated := &domain.RefreshToken{
		TokenHash:  next.RefreshHash,
		UserID:     old.UserID,
		DeviceName: old.DeviceName,
		ExpiresAt:  next.RefreshExpiresAt,
		CreatedAt:  next.Now,
	}
	r.refresh[next.RefreshHash] = rotated
	r.byDev[deviceKey{old.UserID, old.DeviceName}] = next.RefreshHash

	r.replaceAccessLocked(&domain.AccessToken{
		TokenHash:  next.AccessHash,
		UserID:     old.UserID,
		DeviceName: old.DeviceName,
		ExpiresAt:  next.AccessExpiresAt,
		CreatedAt:  next.Now,
	})

	cp := *rotated
	return &cp, nil
}

// replaceAccessLocked swaps the device's access token. Caller holds the mutex.
func (r *MemoryRepository) replaceAccessLocked(t *domain.AccessToken) {
	for hash, at := range r.access {
		if at.UserID == t.UserID && at.DeviceName == t.DeviceName {
			delete(r.access, hash)
		}
	}
	cp := *t
	r.access[t.TokenHash] = &cp
}

func (r *MemoryRepository) FindAccessByHash(ctx context.Context, hash string, now time.Time) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.access[hash]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) RevokeDevice(ctx context.Context, userID, deviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, t := range r.access {
		if t.UserID == userID && t.DeviceName == deviceName {
			delete(r.access, hash)
		}
	}
	k := deviceKey{userID, deviceName}
	if hash, ok := r.byDev[k]; ok {
		delete(r.refresh, hash)
		delete(r.byDev, k)
	}
	return nil
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, t := range r.access {
		if t.UserID == userID {
			delete(r.access, hash)
		}
	}
	for hash, t := range r.refresh {
		if t.UserID == userID {
			delete(r.refresh, hash)
			delete(r.byDev, deviceKey{userID, t.DeviceName})
		}
	}
	return nil
}

func (r *MemoryRepository) ListDevices(ctx context.Context, userID string) ([]*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var devices []*domain.Device
	for _, t := range r.refresh {
		if t.UserID == userID {
			devices = append(devices, &domain.Device{
				DeviceName: t.DeviceName,
				CreatedAt:  t.CreatedAt,
				ExpiresAt:  t.ExpiresAt,
			})
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].CreatedAt.Before(devices[j].CreatedAt) })
	return devices, nil
}
