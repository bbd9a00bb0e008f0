package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

type authFixture struct {
	svc      *AuthService
	users    *stubUserRepo
	tokens   *stubTokenRepo
	sessions *stubSessions
	mailer   *stubMailer
	events   *stubEvents
}

func newAuthFixture(t *testing.T, at time.Time, users ...*domain.User) *authFixture {
	t.Helper()
	repo := newStubUserRepo(users...)
	tokens := &stubTokenRepo{}
	sessions := &stubSessions{}
	mailer := &stubMailer{notified: make(chan string, 4)}
	events := &stubEvents{}

	twoFactor := NewTwoFactorService(
		twoFactorConfig(), tokens, mailer, &stubLocker{}, events, testLogger(),
	).WithClock(fixedClock(at))

	svc := NewAuthService(
		NewCredentialValidator(repo), repo, twoFactor, sessions, mailer, events, testLogger(),
	).WithClock(fixedClock(at))

	return &authFixture{svc: svc, users: repo, tokens: tokens, sessions: sessions, mailer: mailer, events: events}
}

func plainUser(t *testing.T, twoFactor bool) *domain.User {
	t.Helper()
	return &domain.User{
		ID:               "user-1",
		Email:            "alice@example.com",
		PasswordHash:     mustHash(t, "correct horse"),
		TwoFactorEnabled: twoFactor,
	}
}

func awaitNotification(t *testing.T, fx *authFixture) string {
	t.Helper()
	select {
	case email := <-fx.mailer.notified:
		return email
	case <-time.After(2 * time.Second):
		t.Fatal("login notification was never dispatched")
		return ""
	}
}

func TestLoginWithoutTwoFactor(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, false))

	result, err := fx.svc.Login(context.Background(), "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.RequiresTwoFactor {
		t.Fatal("account without 2FA must not be challenged")
	}
	if result.Session == nil || result.Session.UserID != "user-1" {
		t.Fatalf("expected established session, got %+v", result.Session)
	}
	if result.User.ID != "user-1" {
		t.Fatalf("unexpected principal: %+v", result.User)
	}

	if email := awaitNotification(t, fx); email != "alice@example.com" {
		t.Fatalf("notification went to %q", email)
	}
	if len(fx.events.logins) != 1 {
		t.Fatalf("expected 1 login event, got %d", len(fx.events.logins))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, false))

	for _, tc := range []struct {
		name, email, password string
	}{
		{"wrong password", "alice@example.com", "incorrect"},
		{"unknown email", "mallory@example.com", "correct horse"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	if len(fx.sessions.established) != 0 {
		t.Fatal("no session may exist after rejected logins")
	}
}

func TestLoginWithTwoFactorOpensChallenge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, true))

	result, err := fx.svc.Login(context.Background(), "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.RequiresTwoFactor {
		t.Fatal("expected a two-factor challenge")
	}
	if result.Session != nil {
		t.Fatal("no session may exist before the code is verified")
	}
	if len(fx.tokens.tokens) != 1 {
		t.Fatalf("expected a persisted verification token, got %d", len(fx.tokens.tokens))
	}
	if len(fx.events.logins) != 0 {
		t.Fatal("login event must wait for the second factor")
	}
}

func TestVerifyAndLoginCompletesChallenge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, true))

	if _, err := fx.svc.Login(context.Background(), "alice@example.com", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	code := fx.mailer.lastCode(t)

	result, err := fx.svc.VerifyAndLogin(context.Background(), "alice@example.com", code)
	if err != nil {
		t.Fatalf("VerifyAndLogin: %v", err)
	}
	if result.Session == nil {
		t.Fatal("expected an established session")
	}
	if len(fx.events.logins) != 1 || !fx.events.logins[0].TwoFactor {
		t.Fatalf("expected a two-factor login event, got %+v", fx.events.logins)
	}

	// The code is spent; a replay with the same code cannot open a second
	// session.
	if _, err := fx.svc.VerifyAndLogin(context.Background(), "alice@example.com", code); !errors.Is(err, ErrCodeAlreadyValidated) {
		t.Fatalf("expected ErrCodeAlreadyValidated on replay, got %v", err)
	}
}

func TestVerifyAndLoginUnknownUser(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, true))

	_, err := fx.svc.VerifyAndLogin(context.Background(), "ghost@example.com", "123456")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for absent user, got %v", err)
	}
	if len(fx.sessions.established) != 0 {
		t.Fatal("no session may exist for an unknown account")
	}
}

func TestVerifyAndLoginRequiresEnabledTwoFactor(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, false))

	_, err := fx.svc.VerifyAndLogin(context.Background(), "alice@example.com", "123456")
	if !errors.Is(err, ErrTwoFactorNotEnabled) {
		t.Fatalf("expected ErrTwoFactorNotEnabled, got %v", err)
	}
}

func TestLoginSessionEstablishmentFailure(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, false))
	fx.sessions.failWith = errors.New("redis unavailable")

	_, err := fx.svc.Login(context.Background(), "alice@example.com", "correct horse")
	if !errors.Is(err, ErrSessionEstablishment) {
		t.Fatalf("expected ErrSessionEstablishment, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newAuthFixture(t, now, plainUser(t, false))

	result, err := fx.svc.Login(context.Background(), "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := fx.svc.Logout(context.Background(), result.Session.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(fx.sessions.revoked) != 1 || fx.sessions.revoked[0] != result.Session.ID {
		t.Fatalf("session was not revoked: %v", fx.sessions.revoked)
	}
}

func TestJanitorPurgesExpiredTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := &stubTokenRepo{}
	tokens.tokens = []*domain.VerificationToken{
		{ID: "stale", Email: "a@example.com", CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "fresh", Email: "b@example.com", CreatedAt: now.Add(-time.Minute)},
	}

	janitor := NewJanitor(tokens, 5*time.Minute, time.Minute, testLogger()).WithClock(fixedClock(now))
	janitor.Sweep(context.Background())

	if len(tokens.tokens) != 1 || tokens.tokens[0].ID != "fresh" {
		t.Fatalf("expected only the fresh token to survive, got %+v", tokens.tokens)
	}
}
