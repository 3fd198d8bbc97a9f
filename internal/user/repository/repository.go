// Package repository provides persistence for users.
package repository

import (
	"context"
	"time"

	"chat-platform/backend/internal/user/domain"
)

// Repository defines storage operations for users.
// Get methods return (nil, nil) when the row does not exist. Mutations take
// the caller's timestamp for updated_at, so callers keep a single time source.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
	SetEmailVerified(ctx context.Context, userID string, updatedAt time.Time) error
}
