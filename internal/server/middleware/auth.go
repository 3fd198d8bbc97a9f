// Package middleware holds the HTTP middleware: Bearer authentication and
// request context plumbing.
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"chat-platform/backend/internal/token"
)

const bearerPrefix = "bearer "

const (
	localUserID     = "auth_user_id"
	localDeviceName = "auth_device_name"
)

// RequireAuth returns middleware that resolves the Bearer access token and
// stores the caller's identity in Locals and in the request context. Missing,
// unknown, and expired tokens all fail with 401 UNAUTHENTICATED.
func RequireAuth(tokens *token.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plaintext := extractBearer(c.Get(fiber.HeaderAuthorization))
		at, err := tokens.Authenticate(c.UserContext(), plaintext)
		if err != nil {
			if errors.Is(err, token.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error_code": "UNAUTHENTICATED",
					"message":    "missing or invalid access token",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error_code": "SERVER_ERROR",
				"message":    "internal server error",
			})
		}

		c.Locals(localUserID, at.UserID)
		c.Locals(localDeviceName, at.DeviceName)
		c.SetUserContext(WithIdentity(c.UserContext(), at.UserID, at.DeviceName))
		return c.Next()
	}
}

// ClientIP returns middleware that stashes the client IP in the request
// context so the audit logger can record it.
func ClientIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(WithClientIP(c.UserContext(), c.IP()))
		return c.Next()
	}
}

// UserID returns the authenticated user ID set by RequireAuth, or "".
func UserID(c *fiber.Ctx) string {
	v, _ := c.Locals(localUserID).(string)
	return v
}

// DeviceName returns the authenticated device name set by RequireAuth, or "".
func DeviceName(c *fiber.Ctx) string {
	v, _ := c.Locals(localDeviceName).(string)
	return v
}

// extractBearer returns the Bearer token from an Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
