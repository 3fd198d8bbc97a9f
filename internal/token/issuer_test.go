package token

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-platform/backend/internal/platform/clock"
	"chat-platform/backend/internal/token/repository"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 168 * time.Hour
)

func newTestIssuer() (*Issuer, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewIssuer(repository.NewMemoryRepository(), clk, rand.Reader, testAccessTTL, testRefreshTTL), clk
}

func TestIssuer_IssueAndAuthenticate(t *testing.T) {
	issuer, clk := newTestIssuer()
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("pair should carry both plaintext tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Error("access and refresh tokens should differ")
	}
	if want := clk.Now().Add(testAccessTTL); !pair.AccessExpiresAt.Equal(want) {
		t.Errorf("AccessExpiresAt = %v, want %v", pair.AccessExpiresAt, want)
	}
	if !pair.IssuedAt.Equal(clk.Now()) {
		t.Errorf("IssuedAt = %v, want %v", pair.IssuedAt, clk.Now())
	}

	at, err := issuer.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if at.UserID != "u-1" || at.DeviceName != "phone" {
		t.Errorf("Authenticate = (%q, %q), want (u-1, phone)", at.UserID, at.DeviceName)
	}
}

func TestIssuer_AuthenticateRejectsUnknownAndExpired(t *testing.T) {
	issuer, clk := newTestIssuer()
	ctx := context.Background()

	if _, err := issuer.Authenticate(ctx, "no-such-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("unknown token: want ErrUnauthenticated, got %v", err)
	}
	if _, err := issuer.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty token: want ErrUnauthenticated, got %v", err)
	}

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clk.Advance(testAccessTTL)
	if _, err := issuer.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expired token: want ErrUnauthenticated, got %v", err)
	}
}

func TestIssuer_ReloginReplacesDeviceSession(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	first, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}

	if _, err := issuer.Authenticate(ctx, first.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("old access token should be dead after re-login, got %v", err)
	}
	if _, _, err := issuer.Rotate(ctx, first.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("old refresh token should be dead after re-login, got %v", err)
	}
	if _, err := issuer.Authenticate(ctx, second.AccessToken); err != nil {
		t.Errorf("new access token: %v", err)
	}

	devices, err := issuer.ListDevices(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("devices = %d, want 1 (same device name replaces)", len(devices))
	}
}

func TestIssuer_DifferentDevicesCoexist(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	phone, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue phone: %v", err)
	}
	laptop, err := issuer.Issue(ctx, "u-1", "laptop")
	if err != nil {
		t.Fatalf("Issue laptop: %v", err)
	}

	if _, err := issuer.Authenticate(ctx, phone.AccessToken); err != nil {
		t.Errorf("phone session: %v", err)
	}
	if _, err := issuer.Authenticate(ctx, laptop.AccessToken); err != nil {
		t.Errorf("laptop session: %v", err)
	}

	devices, err := issuer.ListDevices(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("devices = %d, want 2", len(devices))
	}
}

func TestIssuer_RotateSingleUse(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	next, userID, err := issuer.Rotate(ctx, pair.RefreshToken, "phone")
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if userID != "u-1" {
		t.Errorf("Rotate userID = %q, want u-1", userID)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("rotation should mint a new refresh token")
	}

	if _, _, err := issuer.Rotate(ctx, pair.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("replayed refresh token: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, _, err := issuer.Rotate(ctx, next.RefreshToken, "phone"); err != nil {
		t.Errorf("current refresh token should rotate: %v", err)
	}
}

func TestIssuer_RotateWrongDevice(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, _, err := issuer.Rotate(ctx, pair.RefreshToken, "laptop"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("refresh from the wrong device: want ErrInvalidRefreshToken, got %v", err)
	}

	// The mismatch must not burn the token for its real device.
	if _, _, err := issuer.Rotate(ctx, pair.RefreshToken, "phone"); err != nil {
		t.Errorf("rotate from the owning device after a mismatch: %v", err)
	}
}

func TestIssuer_RotateExpiredRefresh(t *testing.T) {
	issuer, clk := newTestIssuer()
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clk.Advance(testRefreshTTL)
	if _, _, err := issuer.Rotate(ctx, pair.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expired refresh token: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestIssuer_ConcurrentRotate_OneWinner(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := issuer.Rotate(ctx, pair.RefreshToken, "phone")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrInvalidRefreshToken) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("concurrent rotate winners = %d, want exactly 1", wins)
	}
}

func TestIssuer_RevokeDevice(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	phone, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue phone: %v", err)
	}
	laptop, err := issuer.Issue(ctx, "u-1", "laptop")
	if err != nil {
		t.Fatalf("Issue laptop: %v", err)
	}

	if err := issuer.RevokeDevice(ctx, "u-1", "phone"); err != nil {
		t.Fatalf("RevokeDevice: %v", err)
	}
	if _, err := issuer.Authenticate(ctx, phone.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("revoked device access token: want ErrUnauthenticated, got %v", err)
	}
	if _, _, err := issuer.Rotate(ctx, phone.RefreshToken, "phone"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("revoked device refresh token: want ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := issuer.Authenticate(ctx, laptop.AccessToken); err != nil {
		t.Errorf("other device should survive: %v", err)
	}

	// Unknown device is a no-op.
	if err := issuer.RevokeDevice(ctx, "u-1", "tablet"); err != nil {
		t.Errorf("revoking unknown device: %v", err)
	}
}

func TestIssuer_RevokeAll(t *testing.T) {
	issuer, _ := newTestIssuer()
	ctx := context.Background()

	phone, err := issuer.Issue(ctx, "u-1", "phone")
	if err != nil {
		t.Fatalf("Issue phone: %v", err)
	}
	laptop, err := issuer.Issue(ctx, "u-1", "laptop")
	if err != nil {
		t.Fatalf("Issue laptop: %v", err)
	}
	other, err := issuer.Issue(ctx, "u-2", "phone")
	if err != nil {
		t.Fatalf("Issue u-2: %v", err)
	}

	if err := issuer.RevokeAll(ctx, "u-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	for _, tok := range []string{phone.AccessToken, laptop.AccessToken} {
		if _, err := issuer.Authenticate(ctx, tok); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("u-1 token should be dead, got %v", err)
		}
	}
	if _, err := issuer.Authenticate(ctx, other.AccessToken); err != nil {
		t.Errorf("u-2 session should survive: %v", err)
	}

	devices, err := issuer.ListDevices(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("devices after RevokeAll = %d, want 0", len(devices))
	}
}
