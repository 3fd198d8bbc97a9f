// Package repository provides persistence for pending signups.
package repository

import (
	"context"

	"chat-platform/backend/internal/signup/domain"
)

// Repository defines storage operations for pending signups.
// Get methods return (nil, nil) when the row does not exist.
type Repository interface {
	// Upsert stores the signup, replacing any previous pending signup for the
	// same email. Re-registering before verification overwrites the payload.
	Upsert(ctx context.Context, p *domain.PendingSignup) error
	GetByID(ctx context.Context, id string) (*domain.PendingSignup, error)
	GetByEmail(ctx context.Context, email string) (*domain.PendingSignup, error)
	Delete(ctx context.Context, id string) error
}
