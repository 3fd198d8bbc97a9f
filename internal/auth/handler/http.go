// Package handler exposes the auth service over HTTP. It maps the service's
// sentinel errors onto status codes and a uniform error body.
package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"chat-platform/backend/internal/auth/service"
	"chat-platform/backend/internal/server/middleware"
)

// Handler serves the auth endpoints.
type Handler struct {
	svc      *service.AuthService
	validate *validator.Validate
}

// NewHandler returns a Handler for the given auth service.
func NewHandler(svc *service.AuthService) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RegisterRoutes mounts the auth endpoints on r. requireAuth guards the
// endpoints that need a Bearer access token.
func (h *Handler) RegisterRoutes(r fiber.Router, requireAuth fiber.Handler) {
	r.Post("/register", h.Register)
	r.Post("/register/verify", h.VerifyRegistration)
	r.Post("/register/resend", h.ResendRegistration)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)

	protected := r.Group("", requireAuth)
	protected.Post("/logout", h.Logout)
	protected.Post("/email/verification-notification", h.ResendEmailVerification)
	protected.Post("/email/verify", h.ConfirmEmail)
	protected.Get("/user/devices", h.ListDevices)
	protected.Delete("/user/devices/:device_name", h.DeleteDevice)
}

type registerReq struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	DeviceName           string `json:"device_name"`
}

// Register starts a registration: stores the pending signup and emails a code.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerReq
	if !h.parseBody(c, &req) {
		return nil
	}
	id, err := h.svc.Register(c.UserContext(), req.Name, req.Email, req.Password, req.DeviceName)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"verification_id": id})
}

type verifyRegistrationReq struct {
	VerificationID string `json:"verification_id" validate:"required"`
	Otp            string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyRegistration consumes the code, creates the user, and logs them in.
func (h *Handler) VerifyRegistration(c *fiber.Ctx) error {
	var req verifyRegistrationReq
	if !h.parseBody(c, &req) {
		return nil
	}
	res, err := h.svc.VerifyRegistration(c.UserContext(), req.VerificationID, req.Otp)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokenResponse(res))
}

type resendRegistrationReq struct {
	VerificationID string `json:"verification_id" validate:"required"`
}

// ResendRegistration re-sends the registration code.
func (h *Handler) ResendRegistration(c *fiber.Ctx) error {
	var req resendRegistrationReq
	if !h.parseBody(c, &req) {
		return nil
	}
	if err := h.svc.ResendRegistration(c.UserContext(), req.VerificationID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "verification code sent"})
}

type loginReq struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	DeviceName string `json:"device_name"`
}

// Login authenticates with email/password and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginReq
	if !h.parseBody(c, &req) {
		return nil
	}
	res, err := h.svc.Login(c.UserContext(), req.Email, req.Password, req.DeviceName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokenResponse(res))
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	DeviceName   string `json:"device_name"`
}

// Refresh rotates the refresh token and returns a fresh pair. The token only
// rotates for the device it was issued to.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshReq
	if !h.parseBody(c, &req) {
		return nil
	}
	res, err := h.svc.Refresh(c.UserContext(), req.RefreshToken, req.DeviceName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokenResponse(res))
}

type logoutReq struct {
	DeviceName string `json:"device_name"`
	Everywhere bool   `json:"everywhere"`
}

// Logout ends the caller's session. With no device_name in the body, the
// device of the presented access token is logged out.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req logoutReq
	// Empty body is fine: default is logging out the current device.
	_ = c.BodyParser(&req)

	device := req.DeviceName
	if device == "" {
		device = middleware.DeviceName(c)
	}
	if err := h.svc.Logout(c.UserContext(), middleware.UserID(c), device, req.Everywhere); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

type forgotPasswordReq struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword emails a password reset code.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordReq
	if !h.parseBody(c, &req) {
		return nil
	}
	if err := h.svc.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password reset code sent"})
}

type resetPasswordReq struct {
	Email                string `json:"email" validate:"required,email"`
	Otp                  string `json:"otp" validate:"required,len=6,numeric"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// ResetPassword consumes the reset code, replaces the password, and revokes
// every session of the user.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordReq
	if !h.parseBody(c, &req) {
		return nil
	}
	if err := h.svc.ResetPassword(c.UserContext(), req.Email, req.Otp, req.Password); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password has been reset"})
}

// ResendEmailVerification emails a verification code to the caller.
func (h *Handler) ResendEmailVerification(c *fiber.Ctx) error {
	if err := h.svc.ResendEmailVerification(c.UserContext(), middleware.UserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "verification code sent"})
}

type confirmEmailReq struct {
	Otp string `json:"otp" validate:"required,len=6,numeric"`
}

// ConfirmEmail consumes the verification code and marks the caller verified.
func (h *Handler) ConfirmEmail(c *fiber.Ctx) error {
	var req confirmEmailReq
	if !h.parseBody(c, &req) {
		return nil
	}
	if err := h.svc.ConfirmEmail(c.UserContext(), middleware.UserID(c), req.Otp); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "email verified"})
}

type deviceResp struct {
	DeviceName string `json:"device_name"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
}

// ListDevices lists the caller's live sessions.
func (h *Handler) ListDevices(c *fiber.Ctx) error {
	devices, err := h.svc.ListDevices(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]deviceResp, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResp{
			DeviceName: d.DeviceName,
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt:  d.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"devices": out})
}

// DeleteDevice revokes one of the caller's device sessions.
func (h *Handler) DeleteDevice(c *fiber.Ctx) error {
	device := c.Params("device_name")
	if device == "" {
		return errorBody(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", "device_name is required")
	}
	if err := h.svc.Logout(c.UserContext(), middleware.UserID(c), device, false); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "device session revoked"})
}

// parseBody parses and validates the request body. On failure it writes the
// error response and returns false; the handler must stop.
func (h *Handler) parseBody(c *fiber.Ctx, req any) bool {
	if err := c.BodyParser(req); err != nil {
		_ = errorBody(c, fiber.StatusBadRequest, "INVALID_BODY", "request body could not be parsed")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		_ = errorBody(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return false
	}
	return true
}

func tokenResponse(res *service.AuthResult) fiber.Map {
	return fiber.Map{
		"user_id":       res.UserID,
		"token_type":    "Bearer",
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"expires_in":    int64(res.AccessExpiresAt.Sub(res.IssuedAt).Seconds()),
		"expires_at":    res.AccessExpiresAt.UTC().Format(time.RFC3339),
	}
}

// writeError maps service sentinel errors to HTTP codes and the uniform
// error body. Unknown errors become a 500 without leaking details.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return errorBody(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return errorBody(c, fiber.StatusConflict, "EMAIL_TAKEN", "email is already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return errorBody(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return errorBody(c, fiber.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid or expired refresh token")
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		return errorBody(c, fiber.StatusUnprocessableEntity, "INVALID_OR_EXPIRED_OTP", "invalid or expired code")
	case errors.Is(err, service.ErrRateLimited):
		return errorBody(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "a code was sent recently, try again later")
	case errors.Is(err, service.ErrAlreadyVerified):
		return errorBody(c, fiber.StatusConflict, "ALREADY_VERIFIED", "email is already verified")
	case errors.Is(err, service.ErrNotFound):
		return errorBody(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	default:
		return errorBody(c, fiber.StatusInternalServerError, "SERVER_ERROR", "internal server error")
	}
}

func errorBody(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error_code": code,
		"message":    message,
	})
}
