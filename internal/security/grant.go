package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidGrant is returned when a channel grant is malformed, expired, or
// signed with the wrong key.
var ErrInvalidGrant = errors.New("invalid channel grant")

// GrantClaims are the claims of a realtime channel grant: proof, handed to the
// realtime transport, that a specific user was admitted to a specific channel.
type GrantClaims struct {
	jwt.RegisteredClaims
	Channel string `json:"channel"`
}

// GrantSigner issues and verifies short-lived signed grants for realtime
// channel subscriptions using RS256 or ES256. Grants are deliberately
// short-lived: authorization is re-checked on every subscription attempt, so
// a grant only needs to survive the subscription handshake.
type GrantSigner struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	ttl        time.Duration
}

// NewGrantSigner returns a GrantSigner that signs with the given private key
// (RSA or ECDSA) and stamps the given issuer. ttl bounds grant lifetime.
func NewGrantSigner(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string, ttl time.Duration) *GrantSigner {
	return &GrantSigner{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		ttl:        ttl,
	}
}

// Sign issues a grant admitting userID to channel, valid from now for the
// signer's ttl.
func (g *GrantSigner) Sign(userID, channel string, now time.Time) (string, error) {
	var method jwt.SigningMethod
	switch g.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidGrant
	}
	claims := GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
		Channel: channel,
	}
	return jwt.NewWithClaims(method, claims).SignedString(g.privateKey)
}

// Verify parses and validates a grant (signature, expiry, issuer) and returns
// the admitted userID and channel. The realtime transport calls this before
// completing a subscription handshake.
func (g *GrantSigner) Verify(tokenString string) (userID, channel string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &GrantClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return g.publicKey, nil
		}
		return nil, ErrInvalidGrant
	})
	if err != nil {
		return "", "", ErrInvalidGrant
	}
	claims, ok := token.Claims.(*GrantClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidGrant
	}
	if claims.Issuer != g.issuer {
		return "", "", ErrInvalidGrant
	}
	return claims.Subject, claims.Channel, nil
}
