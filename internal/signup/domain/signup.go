// Package domain defines the pending signup entity.
package domain

import "time"

// PendingSignup is a registration waiting for its email code to be verified.
// No user row exists until verification succeeds.
type PendingSignup struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	DeviceName   string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether the signup window has closed at the given time.
func (p *PendingSignup) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
