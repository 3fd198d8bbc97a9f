package otp

import (
	"context"
	"errors"
	"io"
	"time"

	"chat-platform/backend/internal/otp/domain"
	"chat-platform/backend/internal/otp/repository"
	"chat-platform/backend/internal/platform/clock"
)

const (
	// CodeTTL is how long an issued code stays valid.
	CodeTTL = 10 * time.Minute
	// ResendCooldown is the minimum gap between issuing codes to the same owner.
	ResendCooldown = 30 * time.Second
)

var (
	// ErrRateLimited is returned when a code was issued to the owner within the cooldown window.
	ErrRateLimited = errors.New("a code was sent recently, try again later")
	// ErrInvalidOrExpiredCode is returned when verification fails for any reason:
	// wrong code, wrong purpose, expired, already used, or never issued.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
)

// Manager issues and verifies single-use codes. Only the SHA-256 hash of a
// code is stored; the plaintext exists once, in the Issue return value.
type Manager struct {
	repo   repository.Repository
	clock  clock.Clock
	random io.Reader
}

// NewManager returns a Manager using the given storage, clock, and randomness source.
func NewManager(repo repository.Repository, clk clock.Clock, random io.Reader) *Manager {
	return &Manager{repo: repo, clock: clk, random: random}
}

// Issue generates a fresh code for the owner and purpose, replacing any
// previous live code. Returns ErrRateLimited if a code was issued to this
// owner within ResendCooldown. The returned plaintext must be handed to a
// delivery channel and never persisted.
func (m *Manager) Issue(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose string) (string, error) {
	code, err := GenerateCode(m.random)
	if err != nil {
		return "", err
	}
	now := m.clock.Now()
	rec := &domain.Otp{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		CodeHash:  HashCode(code),
		Purpose:   purpose,
		ExpiresAt: now.Add(CodeTTL),
		CreatedAt: now,
	}
	stored, err := m.repo.Replace(ctx, rec, now.Add(-ResendCooldown))
	if err != nil {
		return "", err
	}
	if !stored {
		return "", ErrRateLimited
	}
	return code, nil
}

// Verify consumes the owner's live code if it matches. A code verifies at
// most once; every failure, including a second attempt with the right code,
// returns ErrInvalidOrExpiredCode.
func (m *Manager) Verify(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose, code string) error {
	ok, err := m.repo.Consume(ctx, ownerType, ownerID, purpose, HashCode(code), m.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredCode
	}
	return nil
}
