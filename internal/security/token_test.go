package security

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestNewOpaqueToken(t *testing.T) {
	tok, err := NewOpaqueToken(rand.Reader)
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	// 32 bytes base64url without padding is 43 characters.
	if len(tok) != 43 {
		t.Errorf("token length = %d, want 43", len(tok))
	}
	if strings.ContainsAny(tok, "+/=") {
		t.Errorf("token %q contains non-URL-safe characters", tok)
	}

	tok2, err := NewOpaqueToken(rand.Reader)
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	if tok == tok2 {
		t.Error("two tokens should not collide")
	}
}

func TestNewOpaqueToken_Deterministic(t *testing.T) {
	src := bytes.NewReader(make([]byte, 64)) // all zero bytes
	tok, err := NewOpaqueToken(src)
	if err != nil {
		t.Fatalf("NewOpaqueToken: %v", err)
	}
	want := strings.Repeat("A", 43)
	if tok != want {
		t.Errorf("token = %q, want %q", tok, want)
	}
}

func TestNewOpaqueToken_ShortRandomSource(t *testing.T) {
	src := bytes.NewReader([]byte{1, 2, 3})
	if _, err := NewOpaqueToken(src); err != ErrRandomSource {
		t.Errorf("want ErrRandomSource, got %v", err)
	}
}

func TestHashTokenAndEqual(t *testing.T) {
	h := HashToken("some-token")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h))
	}
	if h != HashToken("some-token") {
		t.Error("hash should be deterministic")
	}
	if !TokenHashEqual("some-token", h) {
		t.Error("TokenHashEqual should match the original plaintext")
	}
	if TokenHashEqual("other-token", h) {
		t.Error("TokenHashEqual should reject a different plaintext")
	}
}
