// Package service implements registration, login, token refresh, and the
// password/email code flows. Handlers map its sentinel errors to HTTP codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-platform/backend/internal/audit"
	"chat-platform/backend/internal/notify"
	"chat-platform/backend/internal/otp"
	otpdomain "chat-platform/backend/internal/otp/domain"
	"chat-platform/backend/internal/platform/clock"
	"chat-platform/backend/internal/security"
	signupdomain "chat-platform/backend/internal/signup/domain"
	"chat-platform/backend/internal/token"
	tokendomain "chat-platform/backend/internal/token/domain"
	userdomain "chat-platform/backend/internal/user/domain"
)

// SignupTTL is how long a pending registration stays verifiable.
const SignupTTL = 24 * time.Hour

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
// Code and refresh-token failures reuse the sentinels of the packages that
// detect them, so errors.Is works across layers.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAlreadyVerified        = errors.New("email already verified")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")

	ErrInvalidOrExpiredCode = otp.ErrInvalidOrExpiredCode
	ErrRateLimited          = otp.ErrRateLimited
	ErrInvalidRefreshToken  = token.ErrInvalidRefreshToken
)

// AuthResult holds the outcome of verification, login, or refresh.
type AuthResult struct {
	UserID           string
	IssuedAt         time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
	SetEmailVerified(ctx context.Context, userID string, updatedAt time.Time) error
}

// SignupRepo is the minimal pending signup repository needed by the auth service.
type SignupRepo interface {
	Upsert(ctx context.Context, p *signupdomain.PendingSignup) error
	GetByID(ctx context.Context, id string) (*signupdomain.PendingSignup, error)
	GetByEmail(ctx context.Context, email string) (*signupdomain.PendingSignup, error)
	Delete(ctx context.Context, id string) error
}

// AuthService orchestrates users, pending signups, codes, and tokens.
type AuthService struct {
	users   UserRepo
	signups SignupRepo
	codes   *otp.Manager
	tokens  *token.Issuer
	sender  notify.Sender
	audit   audit.AuditLogger
	hasher  *security.Hasher
	clock   clock.Clock
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	users UserRepo,
	signups SignupRepo,
	codes *otp.Manager,
	tokens *token.Issuer,
	sender notify.Sender,
	auditLogger audit.AuditLogger,
	hasher *security.Hasher,
	clk clock.Clock,
) *AuthService {
	return &AuthService{
		users:   users,
		signups: signups,
		codes:   codes,
		tokens:  tokens,
		sender:  sender,
		audit:   auditLogger,
		hasher:  hasher,
		clock:   clk,
	}
}

// Register stores a pending signup and emails a registration code. No user
// row is created yet. Re-registering the same email before verification
// replaces the pending payload but keeps its ID, so the code cooldown holds.
// Returns the verification ID the client must present with the code.
func (s *AuthService) Register(ctx context.Context, name, email, password, deviceName string) (string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	deviceName = normalizeDeviceName(deviceName)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailAlreadyRegistered
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	id := uuid.New().String()
	if prev, err := s.signups.GetByEmail(ctx, email); err != nil {
		return "", err
	} else if prev != nil {
		id = prev.ID
	}

	signup := &signupdomain.PendingSignup{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		DeviceName:   deviceName,
		ExpiresAt:    now.Add(SignupTTL),
		CreatedAt:    now,
	}
	if err := s.signups.Upsert(ctx, signup); err != nil {
		return "", err
	}

	code, err := s.codes.Issue(ctx, otpdomain.OwnerPendingSignup, id, otpdomain.PurposeRegistration)
	if err != nil {
		return "", err
	}
	if err := s.sender.Send(ctx, notify.CodeDelivery{
		Email:    email,
		Name:     name,
		Code:     code,
		Purpose:  otpdomain.PurposeRegistration,
		IssuedAt: now,
	}); err != nil {
		return "", err
	}

	s.audit.LogEvent(ctx, "", "register_requested", "signup", "email="+email)
	return id, nil
}

// VerifyRegistration consumes the registration code, creates the user, and
// logs the new user in on the device they registered from.
func (s *AuthService) VerifyRegistration(ctx context.Context, verificationID, code string) (*AuthResult, error) {
	signup, err := s.signups.GetByID(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if signup == nil || signup.Expired(now) {
		return nil, ErrInvalidOrExpiredCode
	}

	if err := s.codes.Verify(ctx, otpdomain.OwnerPendingSignup, signup.ID, otpdomain.PurposeRegistration, code); err != nil {
		return nil, err
	}

	// The email may have been claimed by a user created between registration
	// and verification (e.g. seeding). The unique constraint is the backstop.
	if existing, err := s.users.GetByEmail(ctx, signup.Email); err != nil {
		return nil, err
	} else if existing != nil {
		_ = s.signups.Delete(ctx, signup.ID)
		return nil, ErrEmailAlreadyRegistered
	}

	user := &userdomain.User{
		ID:            uuid.New().String(),
		Name:          signup.Name,
		Email:         signup.Email,
		PasswordHash:  signup.PasswordHash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.signups.Delete(ctx, signup.ID); err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(ctx, user.ID, signup.DeviceName)
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, user.ID, "register_verified", "user", "email="+user.Email)
	return resultFromPair(user.ID, pair), nil
}

// ResendRegistration re-issues and re-sends the registration code. Returns
// ErrNotFound for unknown or expired verification IDs and ErrRateLimited
// inside the cooldown window.
func (s *AuthService) ResendRegistration(ctx context.Context, verificationID string) error {
	signup, err := s.signups.GetByID(ctx, verificationID)
	if err != nil {
		return err
	}
	if signup == nil || signup.Expired(s.clock.Now()) {
		return ErrNotFound
	}

	code, err := s.codes.Issue(ctx, otpdomain.OwnerPendingSignup, signup.ID, otpdomain.PurposeRegistration)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, notify.CodeDelivery{
		Email:    signup.Email,
		Name:     signup.Name,
		Code:     code,
		Purpose:  otpdomain.PurposeRegistration,
		IssuedAt: s.clock.Now(),
	})
}

// Login authenticates with email/password and mints a token pair for the
// device. Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, deviceName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.audit.LogEvent(ctx, "", "login_failure", "session", "email="+email)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.audit.LogEvent(ctx, user.ID, "login_failure", "session", "")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, user.ID, normalizeDeviceName(deviceName))
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, user.ID, "login", "session", "device="+normalizeDeviceName(deviceName))
	return resultFromPair(user.ID, pair), nil
}

// Refresh rotates the refresh token and returns a fresh pair. A replayed or
// expired token fails with ErrInvalidRefreshToken, as does a token presented
// with a device name other than the one it was issued to.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceName string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	pair, userID, err := s.tokens.Rotate(ctx, refreshToken, normalizeDeviceName(deviceName))
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, userID, "token_refreshed", "session", "")
	return resultFromPair(userID, pair), nil
}

// Logout ends the caller's session on one device, or on all devices when
// everywhere is true. Logging out an already-dead session is a no-op.
func (s *AuthService) Logout(ctx context.Context, userID, deviceName string, everywhere bool) error {
	if everywhere {
		if err := s.tokens.RevokeAll(ctx, userID); err != nil {
			return err
		}
		s.audit.LogEvent(ctx, userID, "logout_all", "session", "")
		return nil
	}
	if err := s.tokens.RevokeDevice(ctx, userID, deviceName); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, userID, "logout", "session", "device="+deviceName)
	return nil
}

// ForgotPassword emails a password reset code. Unknown emails return
// ErrNotFound, which the handler reports as 404.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	code, err := s.codes.Issue(ctx, otpdomain.OwnerUser, user.ID, otpdomain.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, notify.CodeDelivery{
		Email:    user.Email,
		Name:     user.Name,
		Code:     code,
		Purpose:  otpdomain.PurposePasswordReset,
		IssuedAt: s.clock.Now(),
	}); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, user.ID, "password_reset_requested", "user", "")
	return nil
}

// ResetPassword consumes the reset code, replaces the password, and revokes
// every session the user has.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidOrExpiredCode
	}

	if err := s.codes.Verify(ctx, otpdomain.OwnerUser, user.ID, otpdomain.PurposePasswordReset, code); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed, s.clock.Now()); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, user.ID, "password_reset", "user", "all sessions revoked")
	return nil
}

// ResendEmailVerification emails a verification code to an authenticated but
// unverified user. Verified users get ErrAlreadyVerified.
func (s *AuthService) ResendEmailVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	code, err := s.codes.Issue(ctx, otpdomain.OwnerUser, user.ID, otpdomain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, notify.CodeDelivery{
		Email:    user.Email,
		Name:     user.Name,
		Code:     code,
		Purpose:  otpdomain.PurposeEmailVerification,
		IssuedAt: s.clock.Now(),
	})
}

// ConfirmEmail consumes the verification code and marks the user verified.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	if err := s.codes.Verify(ctx, otpdomain.OwnerUser, user.ID, otpdomain.PurposeEmailVerification, code); err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, user.ID, s.clock.Now()); err != nil {
		return err
	}

	s.audit.LogEvent(ctx, user.ID, "email_verified", "user", "")
	return nil
}

func resultFromPair(userID string, pair *token.Pair) *AuthResult {
	return &AuthResult{
		UserID:           userID,
		IssuedAt:         pair.IssuedAt,
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// normalizeDeviceName defaults to "web" so every session has a device key.
func normalizeDeviceName(deviceName string) string {
	deviceName = strings.TrimSpace(deviceName)
	if deviceName == "" {
		return "web"
	}
	return deviceName
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}

// ListDevices returns the caller's live device sessions, oldest first.
func (s *AuthService) ListDevices(ctx context.Context, userID string) ([]tokendomain.Device, error) {
	devices, err := s.tokens.ListDevices(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]tokendomain.Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, *d)
	}
	return out, nil
}
