package repository

import (
	"context"

	"chat-platform/backend/internal/membership/domain"
)

// Repository defines persistence for group memberships.
type Repository interface {
	// Exists reports whether the user is a member of the group.
	Exists(ctx context.Context, groupID, userID string) (bool, error)
	Get(ctx context.Context, groupID, userID string) (*domain.Membership, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
	Delete(ctx context.Context, groupID, userID string) error
}
