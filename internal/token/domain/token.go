// Package domain defines bearer token entities. Tokens are opaque; only
// SHA-256 hashes are ever persisted.
package domain

import "time"

// AccessToken is a short-lived bearer credential for API calls.
type AccessToken struct {
	TokenHash  string
	UserID     string
	DeviceName string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// RefreshToken is a long-lived single-use credential for minting new token
// pairs. Each (user, device name) has at most one.
type RefreshToken struct {
	TokenHash  string
	UserID     string
	DeviceName string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Device is a live session as seen from the device listing endpoint.
type Device struct {
	DeviceName string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
