// Package repository provides persistence for bearer tokens.
package repository

import (
	"context"
	"time"

	"chat-platform/backend/internal/token/domain"
)

// Rotation carries the replacement material for RotatePair: the new hashes
// and expiries, and the time the rotation happens at.
type Rotation struct {
	RefreshHash      string
	RefreshExpiresAt time.Time
	AccessHash       string
	AccessExpiresAt  time.Time
	Now              time.Time
}

// Repository defines storage operations for access and refresh tokens.
// SavePair and RotatePair each commit in a single transaction, so a session's
// refresh and access tokens never diverge. RotatePair is atomic: of any
// number of concurrent calls presenting the same old hash, exactly one
// succeeds.
type Repository interface {
	// SavePair stores the tokens of a fresh login. The refresh upsert
	// replaces any previous session on the (user, device) and the device's
	// old access token is discarded, all in one transaction.
	SavePair(ctx context.Context, refresh *domain.RefreshToken, access *domain.AccessToken) error

	// RotatePair swaps oldHash for next.RefreshHash if the old token belongs
	// to deviceName and has not expired at next.Now, and in the same
	// transaction replaces the device's access token with next.AccessHash.
	// Returns the updated refresh row, or nil when no live token matched
	// (wrong hash, wrong device, expired, or already rotated).
	RotatePair(ctx context.Context, oldHash, deviceName string, next Rotation) (*domain.RefreshToken, error)

	// FindAccessByHash returns the live access token with the given hash, or
	// nil if missing or expired at now.
	FindAccessByHash(ctx context.Context, hash string, now time.Time) (*domain.AccessToken, error)

	// RevokeDevice removes the access and refresh tokens for one device.
	RevokeDevice(ctx context.Context, userID, deviceName string) error

	// RevokeAllForUser removes every token the user holds, on all devices.
	RevokeAllForUser(ctx context.Context, userID string) error

	// ListDevices returns the user's live sessions, oldest first.
	ListDevices(ctx context.Context, userID string) ([]*domain.Device, error)
}
