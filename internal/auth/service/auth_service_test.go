package service

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"chat-platform/backend/internal/notify"
	"chat-platform/backend/internal/otp"
	otprepo "chat-platform/backend/internal/otp/repository"
	"chat-platform/backend/internal/platform/clock"
	"chat-platform/backend/internal/security"
	signuprepo "chat-platform/backend/internal/signup/repository"
	"chat-platform/backend/internal/token"
	tokenrepo "chat-platform/backend/internal/token/repository"
	userdomain "chat-platform/backend/internal/user/domain"
	userrepo "chat-platform/backend/internal/user/repository"
)

// captureSender records deliveries so tests can read the plaintext code.
type captureSender struct {
	mu         sync.Mutex
	deliveries []notify.CodeDelivery
	sendErr    error
}

func (c *captureSender) Send(ctx context.Context, d notify.CodeDelivery) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, d)
	return nil
}

func (c *captureSender) last(t *testing.T) notify.CodeDelivery {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.deliveries) == 0 {
		t.Fatal("no code was delivered")
	}
	return c.deliveries[len(c.deliveries)-1]
}

// noopAudit discards audit events.
type noopAudit struct{}

func (noopAudit) LogEvent(ctx context.Context, actorID, action, target, detail string) {}

type testEnv struct {
	svc     *AuthService
	users   *userrepo.MemoryRepository
	signups *signuprepo.MemoryRepository
	sender  *captureSender
	clock   *clock.Fake
}

func newTestEnv() *testEnv {
	clk := clock.NewFake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	users := userrepo.NewMemoryRepository()
	signups := signuprepo.NewMemoryRepository()
	sender := &captureSender{}
	codes := otp.NewManager(otprepo.NewMemoryRepository(), clk, rand.Reader)
	tokens := token.NewIssuer(tokenrepo.NewMemoryRepository(), clk, rand.Reader, 15*time.Minute, 168*time.Hour)
	hasher := security.NewHasher(bcrypt.MinCost)

	return &testEnv{
		svc:     NewAuthService(users, signups, codes, tokens, sender, noopAudit{}, hasher, clk),
		users:   users,
		signups: signups,
		sender:  sender,
		clock:   clk,
	}
}

func (e *testEnv) register(t *testing.T, email string) (verificationID, code string) {
	t.Helper()
	id, err := e.svc.Register(context.Background(), "Ada", email, "correct horse", "phone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return id, e.sender.last(t).Code
}

func TestRegisterAndVerify(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")

	res, err := env.svc.VerifyRegistration(ctx, id, code)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}
	if res.UserID == "" || res.AccessToken == "" || res.RefreshToken == "" {
		t.Error("verification should log the new user in")
	}

	user, err := env.users.GetByEmail(ctx, "ada@example.com")
	if err != nil || user == nil {
		t.Fatalf("user not created: %v", err)
	}
	if !user.EmailVerified {
		t.Error("verified registration should mark the email verified")
	}
	if signup, _ := env.signups.GetByID(ctx, id); signup != nil {
		t.Error("pending signup should be deleted after verification")
	}

	// The login flow works with the registered password.
	if _, err := env.svc.Login(ctx, "ada@example.com", "correct horse", "laptop"); err != nil {
		t.Errorf("Login after registration: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	if _, err := env.svc.VerifyRegistration(ctx, id, code); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	if _, err := env.svc.Register(ctx, "Imposter", "ada@example.com", "some password", "phone"); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Errorf("want ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"bad email", "Ada", "not-an-email", "long enough pw"},
		{"empty email", "Ada", "", "long enough pw"},
		{"short password", "Ada", "ada@example.com", "short"},
		{"empty name", "", "ada@example.com", "long enough pw"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.svc.Register(ctx, tc.userName, tc.email, tc.password, "phone"); !errors.Is(err, ErrValidation) {
				t.Errorf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegister_ReRegisterKeepsCooldown(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, _ := env.register(t, "ada@example.com")

	// Re-registering immediately reuses the pending signup, so the code
	// cooldown still applies.
	if _, err := env.svc.Register(ctx, "Ada", "ada@example.com", "another password", "phone"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("want ErrRateLimited, got %v", err)
	}

	env.clock.Advance(otp.ResendCooldown)
	second, err := env.svc.Register(ctx, "Ada", "ada@example.com", "another password", "phone")
	if err != nil {
		t.Fatalf("re-Register after cooldown: %v", err)
	}
	if second != first {
		t.Errorf("re-registration should keep the verification ID: %q vs %q", second, first)
	}
}

func TestVerifyRegistration_WrongAndReplayedCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := env.svc.VerifyRegistration(ctx, id, wrong); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("wrong code: want ErrInvalidOrExpiredCode, got %v", err)
	}
	if _, err := env.svc.VerifyRegistration(ctx, id, code); err != nil {
		t.Fatalf("right code: %v", err)
	}
	if _, err := env.svc.VerifyRegistration(ctx, id, code); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("replayed code: want ErrInvalidOrExpiredCode, got %v", err)
	}
}

func TestVerifyRegistration_ExpiredCode(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	env.clock.Advance(otp.CodeTTL)

	if _, err := env.svc.VerifyRegistration(ctx, id, code); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("expired code: want ErrInvalidOrExpiredCode, got %v", err)
	}
}

func TestVerifyRegistration_UnknownID(t *testing.T) {
	env := newTestEnv()
	if _, err := env.svc.VerifyRegistration(context.Background(), "no-such-id", "123456"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("unknown verification ID: want ErrInvalidOrExpiredCode, got %v", err)
	}
}

func TestResendRegistration(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, first := env.register(t, "ada@example.com")

	if err := env.svc.ResendRegistration(ctx, id); !errors.Is(err, ErrRateLimited) {
		t.Errorf("immediate resend: want ErrRateLimited, got %v", err)
	}

	env.clock.Advance(otp.ResendCooldown)
	if err := env.svc.ResendRegistration(ctx, id); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	second := env.sender.last(t).Code

	if first != second {
		if _, err := env.svc.VerifyRegistration(ctx, id, first); !errors.Is(err, ErrInvalidOrExpiredCode) {
			t.Errorf("old code after resend: want ErrInvalidOrExpiredCode, got %v", err)
		}
	}
	if _, err := env.svc.VerifyRegistration(ctx, id, second); err != nil {
		t.Errorf("resent code: %v", err)
	}

	if err := env.svc.ResendRegistration(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ID: want ErrNotFound, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	if _, err := env.svc.VerifyRegistration(ctx, id, code); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	if _, err := env.svc.Login(ctx, "ada@example.com", "wrong password", "phone"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "nobody@example.com", "correct horse", "phone"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "ada@example.com", "", "phone"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty password: want ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	res, err := env.svc.VerifyRegistration(ctx, id, code)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	next, err := env.svc.Refresh(ctx, res.RefreshToken, "phone")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.UserID != res.UserID {
		t.Errorf("Refresh UserID = %q, want %q", next.UserID, res.UserID)
	}
	if _, err := env.svc.Refresh(ctx, res.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("replayed refresh token: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := env.svc.Refresh(ctx, "", "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("empty refresh token: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_RejectsWrongDevice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	res, err := env.svc.VerifyRegistration(ctx, id, code)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	if _, err := env.svc.Refresh(ctx, res.RefreshToken, "laptop"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("refresh with another device name: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := env.svc.Refresh(ctx, res.RefreshToken, "phone"); err != nil {
		t.Errorf("refresh from the issuing device: %v", err)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	res, err := env.svc.VerifyRegistration(ctx, id, code)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}
	laptop, err := env.svc.Login(ctx, "ada@example.com", "correct horse", "laptop")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := env.svc.Logout(ctx, res.UserID, "phone", false); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.svc.Refresh(ctx, res.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("phone session should be dead, got %v", err)
	}
	if _, err := env.svc.Refresh(ctx, laptop.RefreshToken, "laptop"); err != nil {
		t.Errorf("laptop session should survive: %v", err)
	}

	// everywhere kills the rest; repeating is a no-op.
	if err := env.svc.Logout(ctx, res.UserID, "", true); err != nil {
		t.Fatalf("Logout everywhere: %v", err)
	}
	if err := env.svc.Logout(ctx, res.UserID, "", true); err != nil {
		t.Errorf("repeated logout: %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	res, err := env.svc.VerifyRegistration(ctx, id, code)
	if err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	if err := env.svc.ForgotPassword(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown email: want ErrNotFound, got %v", err)
	}

	env.clock.Advance(otp.ResendCooldown)
	if err := env.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	resetCode := env.sender.last(t).Code

	if err := env.svc.ResetPassword(ctx, "ada@example.com", resetCode, "a brand new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if user, _ := env.users.GetByEmail(ctx, "ada@example.com"); !user.UpdatedAt.Equal(env.clock.Now()) {
		t.Errorf("reset should stamp updated_at from the service clock, got %v", user.UpdatedAt)
	}

	// Old password is gone, sessions are revoked, new password works.
	if _, err := env.svc.Login(ctx, "ada@example.com", "correct horse", "phone"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password after reset: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.svc.Refresh(ctx, res.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("old session after reset: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "ada@example.com", "a brand new password", "phone"); err != nil {
		t.Errorf("new password: %v", err)
	}

	// The reset code is single-use.
	if err := env.svc.ResetPassword(ctx, "ada@example.com", resetCode, "yet another password"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("replayed reset code: want ErrInvalidOrExpiredCode, got %v", err)
	}
}

func TestResetPassword_WrongCodeKeepsPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	if _, err := env.svc.VerifyRegistration(ctx, id, code); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	env.clock.Advance(otp.ResendCooldown)
	if err := env.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	resetCode := env.sender.last(t).Code
	wrong := "000000"
	if wrong == resetCode {
		wrong = "000001"
	}

	if err := env.svc.ResetPassword(ctx, "ada@example.com", wrong, "a brand new password"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("wrong code: want ErrInvalidOrExpiredCode, got %v", err)
	}
	if _, err := env.svc.Login(ctx, "ada@example.com", "correct horse", "phone"); err != nil {
		t.Errorf("password should be unchanged after failed reset: %v", err)
	}
}

func TestEmailVerificationFlow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// A user that exists but is not verified (e.g. seeded).
	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte("seeded password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	now := env.clock.Now()
	if err := env.users.Create(ctx, &userdomain.User{
		ID: "u-seed", Name: "Seed", Email: "seed@example.com",
		PasswordHash: hash, EmailVerified: false, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := env.svc.ResendEmailVerification(ctx, "u-seed"); err != nil {
		t.Fatalf("ResendEmailVerification: %v", err)
	}
	code := env.sender.last(t).Code

	if err := env.svc.ConfirmEmail(ctx, "u-seed", code); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	user, _ := env.users.GetByID(ctx, "u-seed")
	if user == nil || !user.EmailVerified {
		t.Error("ConfirmEmail should mark the user verified")
	}
	if !user.UpdatedAt.Equal(env.clock.Now()) {
		t.Errorf("ConfirmEmail should stamp updated_at from the service clock, got %v", user.UpdatedAt)
	}

	// Once verified, both operations report AlreadyVerified.
	if err := env.svc.ResendEmailVerification(ctx, "u-seed"); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("resend when verified: want ErrAlreadyVerified, got %v", err)
	}
	if err := env.svc.ConfirmEmail(ctx, "u-seed", code); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("confirm when verified: want ErrAlreadyVerified, got %v", err)
	}
}

func TestForgotPassword_Cooldown(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, code := env.register(t, "ada@example.com")
	if _, err := env.svc.VerifyRegistration(ctx, id, code); err != nil {
		t.Fatalf("VerifyRegistration: %v", err)
	}

	if err := env.svc.ForgotPassword(ctx, "ada@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if err := env.svc.ForgotPassword(ctx, "ada@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("immediate second request: want ErrRateLimited, got %v", err)
	}
}
