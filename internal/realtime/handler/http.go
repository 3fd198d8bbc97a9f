// Package handler serves the realtime channel authorization hook. The
// external realtime transport calls it during a client's subscription
// handshake and forwards the signed grant it returns.
package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"chat-platform/backend/internal/channel"
	"chat-platform/backend/internal/platform/clock"
	"chat-platform/backend/internal/security"
	"chat-platform/backend/internal/server/middleware"
)

// Handler authorizes channel subscriptions and signs short-lived grants.
type Handler struct {
	authorizer *channel.Authorizer
	signer     *security.GrantSigner
	clock      clock.Clock
	validate   *validator.Validate
}

// NewHandler returns a Handler using the given authorizer and grant signer.
func NewHandler(authorizer *channel.Authorizer, signer *security.GrantSigner, clk clock.Clock) *Handler {
	return &Handler{authorizer: authorizer, signer: signer, clock: clk, validate: validator.New()}
}

// RegisterRoutes mounts the realtime auth endpoint on r, guarded by requireAuth.
func (h *Handler) RegisterRoutes(r fiber.Router, requireAuth fiber.Handler) {
	r.Post("/realtime/auth", requireAuth, h.Authorize)
}

type authorizeReq struct {
	ChannelName string `json:"channel_name" validate:"required"`
}

// Authorize checks the caller against the channel and returns a signed grant.
// Denials are uniform 403s regardless of whether the channel exists.
func (h *Handler) Authorize(c *fiber.Ctx) error {
	var req authorizeReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error_code": "INVALID_BODY",
			"message":    "request body could not be parsed",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error_code": "VALIDATION_FAILED",
			"message":    err.Error(),
		})
	}

	userID := middleware.UserID(c)
	if err := h.authorizer.Authorize(c.UserContext(), userID, req.ChannelName); err != nil {
		if errors.Is(err, channel.ErrUnauthorized) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error_code": "UNAUTHORIZED",
				"message":    "not authorized for this channel",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error_code": "SERVER_ERROR",
			"message":    "internal server error",
		})
	}

	grant, err := h.signer.Sign(userID, req.ChannelName, h.clock.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error_code": "SERVER_ERROR",
			"message":    "internal server error",
		})
	}
	return c.JSON(fiber.Map{"auth": grant})
}
