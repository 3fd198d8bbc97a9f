package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// tokenBytes is the entropy of an opaque bearer token (256 bits).
const tokenBytes = 32

// ErrRandomSource is returned when the random source fails to produce bytes.
var ErrRandomSource = errors.New("random source failed")

// NewOpaqueToken generates an opaque bearer token plaintext from the given
// random source (crypto/rand.Reader in production). The plaintext is returned
// exactly once; only HashToken(plaintext) may be stored.
func NewOpaqueToken(random io.Reader) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", ErrRandomSource
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hash of a token plaintext, hex-encoded.
// This is the only form persisted; a stolen database row cannot be replayed
// as a bearer token.
func HashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual compares the hash of the presented plaintext with the stored
// hash in constant time.
func TokenHashEqual(plaintext, storedHash string) bool {
	presented := HashToken(plaintext)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(storedHash)) == 1
}
