// Package domain defines the one-time code entity.
package domain

import "time"

// OwnerType distinguishes who a code belongs to: a full user or a
// registration that has not been verified yet.
type OwnerType string

const (
	OwnerUser          OwnerType = "user"
	OwnerPendingSignup OwnerType = "pending_signup"
)

// Purposes a code can be issued for. Verification requires the purpose to
// match the one the code was issued with.
const (
	PurposeRegistration      = "registration"
	PurposePasswordReset     = "password_reset"
	PurposeEmailVerification = "email_verification"
)

// Otp is a single live one-time code. Each owner has at most one; issuing a
// new code replaces the previous one.
type Otp struct {
	OwnerType OwnerType
	OwnerID   string
	CodeHash  string
	Purpose   string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}
