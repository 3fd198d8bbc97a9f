// Package token mints, rotates, and authenticates opaque bearer tokens.
package token

import (
	"context"
	"errors"
	"io"
	"time"

	"chat-platform/backend/internal/platform/clock"
	"chat-platform/backend/internal/security"
	"chat-platform/backend/internal/token/domain"
	"chat-platform/backend/internal/token/repository"
)

var (
	// ErrUnauthenticated is returned when an access token is missing, unknown, or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown,
	// expired, already rotated, or presented from the wrong device.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// Pair is an access/refresh token pair handed to a client. Plaintext tokens
// appear only here; storage holds their hashes.
type Pair struct {
	IssuedAt         time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Issuer mints and rotates opaque bearer tokens. Single-use rotation and the
// one-session-per-device rule are enforced by the repository's atomic
// operations, not by locking here.
type Issuer struct {
	repo       repository.Repository
	clock      clock.Clock
	random     io.Reader
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer returns an Issuer with the given storage, clock, randomness
// source, and token lifetimes.
func NewIssuer(repo repository.Repository, clk clock.Clock, random io.Reader, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{repo: repo, clock: clk, random: random, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints a fresh token pair for the user on the named device. Any
// previous session on the same device name is replaced, so its old tokens
// stop working. Both tokens land in one transaction.
func (i *Issuer) Issue(ctx context.Context, userID, deviceName string) (*Pair, error) {
	now := i.clock.Now()

	accessPlain, err := security.NewOpaqueToken(i.random)
	if err != nil {
		return nil, err
	}
	refreshPlain, err := security.NewOpaqueToken(i.random)
	if err != nil {
		return nil, err
	}

	pair := &Pair{
		IssuedAt:         now,
		AccessToken:      accessPlain,
		AccessExpiresAt:  now.Add(i.accessTTL),
		RefreshToken:     refreshPlain,
		RefreshExpiresAt: now.Add(i.refreshTTL),
	}

	if err := i.repo.SavePair(ctx,
		&domain.RefreshToken{
			TokenHash:  security.HashToken(refreshPlain),
			UserID:     userID,
			DeviceName: deviceName,
			ExpiresAt:  pair.RefreshExpiresAt,
			CreatedAt:  now,
		},
		&domain.AccessToken{
			TokenHash:  security.HashToken(accessPlain),
			UserID:     userID,
			DeviceName: deviceName,
			ExpiresAt:  pair.AccessExpiresAt,
			CreatedAt:  now,
		}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Rotate exchanges a live refresh token for a fresh pair. The swap is a
// compare-and-swap on the stored hash, bound to the presented device name:
// presenting the same refresh token twice, concurrently, or from a different
// device succeeds at most once, and every other attempt returns
// ErrInvalidRefreshToken. The new refresh and access tokens commit together.
func (i *Issuer) Rotate(ctx context.Context, refreshPlaintext, deviceName string) (*Pair, string, error) {
	now := i.clock.Now()

	newRefresh, err := security.NewOpaqueToken(i.random)
	if err != nil {
		return nil, "", err
	}
	accessPlain, err := security.NewOpaqueToken(i.random)
	if err != nil {
		return nil, "", err
	}
	accessExpiry := now.Add(i.accessTTL)

	rotated, err := i.repo.RotatePair(ctx, security.HashToken(refreshPlaintext), deviceName, repository.Rotation{
		RefreshHash:      security.HashToken(newRefresh),
		RefreshExpiresAt: now.Add(i.refreshTTL),
		AccessHash:       security.HashToken(accessPlain),
		AccessExpiresAt:  accessExpiry,
		Now:              now,
	})
	if err != nil {
		return nil, "", err
	}
	if rotated == nil {
		return nil, "", ErrInvalidRefreshToken
	}

	return &Pair{
		IssuedAt:         now,
		AccessToken:      accessPlain,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: rotated.ExpiresAt,
	}, rotated.UserID, nil
}

// Authenticate resolves an access token to its owner. Returns
// ErrUnauthenticated for unknown or expired tokens.
func (i *Issuer) Authenticate(ctx context.Context, accessPlaintext string) (*domain.AccessToken, error) {
	if accessPlaintext == "" {
		return nil, ErrUnauthenticated
	}
	t, err := i.repo.FindAccessByHash(ctx, security.HashToken(accessPlaintext), i.clock.Now())
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrUnauthenticated
	}
	return t, nil
}

// RevokeDevice ends the session on one device. Revoking an unknown device is not an error.
func (i *Issuer) RevokeDevice(ctx context.Context, userID, deviceName string) error {
	return i.repo.RevokeDevice(ctx, userID, deviceName)
}

// RevokeAll ends every session the user has, on all devices.
func (i *Issuer) RevokeAll(ctx context.Context, userID string) error {
	return i.repo.RevokeAllForUser(ctx, userID)
}

// ListDevices returns the user's live sessions, oldest first.
func (i *Issuer) ListDevices(ctx context.Context, userID string) ([]*domain.Device, error) {
	return i.repo.ListDevices(ctx, userID)
}
