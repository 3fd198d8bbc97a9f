// Package otp issues and verifies short-lived one-time codes.
package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

const codeDigits = 6

// GenerateCode returns a uniformly random 6-digit code string (e.g. "123456")
// read from the given randomness source. Bytes above the largest multiple of
// 10 are rejected to avoid modulo bias.
func GenerateCode(random io.Reader) (string, error) {
	s := make([]byte, codeDigits)
	buf := make([]byte, 1)
	for i := 0; i < codeDigits; {
		if _, err := io.ReadFull(random, buf); err != nil {
			return "", err
		}
		if buf[0] >= 250 {
			continue
		}
		s[i] = '0' + buf[0]%10
		i++
	}
	return string(s), nil
}

// HashCode returns a SHA-256 hash of the code string, hex-encoded.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual performs constant-time comparison of the provided code's hash with the stored hash.
func CodeEqual(providedCode, storedHash string) bool {
	providedHash := HashCode(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
