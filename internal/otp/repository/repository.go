// Package repository provides persistence for one-time codes.
package repository

import (
	"context"
	"time"

	"chat-platform/backend/internal/otp/domain"
)

// Repository defines storage operations for one-time codes. Both operations
// are atomic: concurrent callers observe exactly one winner.
type Repository interface {
	// Replace stores rec as the owner's single live code, overwriting any
	// previous one, unless the existing code was created after notBefore.
	// Returns false when the existing code is too fresh (cooldown active).
	Replace(ctx context.Context, rec *domain.Otp, notBefore time.Time) (bool, error)

	// Consume marks the owner's code consumed if it matches codeHash and
	// purpose, has not been consumed, and has not expired at now. Returns
	// true only for the single caller that flipped the consumed flag.
	Consume(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose, codeHash string, now time.Time) (bool, error)
}
