package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/security"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
	"github.com/Erick-MC-Cedeno/chatty/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := security.ConfigureBcrypt(bcrypt.MinCost); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = security.ConfigureBcrypt(security.DefaultBcryptCost)
	os.Exit(code)
}

func mustHashSecret(t *testing.T, secret string) string {
	t.Helper()
	hash, err := security.HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return hash
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) SaveResetToken(_ context.Context, userID string, token domain.ResetToken) error {
	for _, u := range r.users {
		if u.ID == userID {
			t := token
			u.ResetToken = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeUserRepo) ApplyPasswordChange(_ context.Context, userID, passwordHash string, changedAt time.Time) error {
	for _, u := range r.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			at := changedAt
			u.LastPasswordChange = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeSessions struct{}

func (s *fakeSessions) Establish(_ context.Context, user domain.SafeUser) (*domain.Session, error) {
	return &domain.Session{ID: "session-" + user.ID, UserID: user.ID, Email: user.Email}, nil
}

func (s *fakeSessions) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}

func (s *fakeSessions) Revoke(_ context.Context, _ string) error { return nil }

type fakeMailer struct{}

func (m *fakeMailer) SendLoginNotification(_ context.Context, _ string) error   { return nil }
func (m *fakeMailer) SendVerificationCode(_ context.Context, _, _ string) error { return nil }
func (m *fakeMailer) SendResetToken(_ context.Context, _, _ string) error       { return nil }

type fakeLocker struct{}

func (l *fakeLocker) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

type fakeEvents struct{}

func (e *fakeEvents) PublishLoginSucceeded(_ context.Context, _ domain.LoginSucceededEvent) error {
	return nil
}

func (e *fakeEvents) PublishTwoFactorChallenged(_ context.Context, _ domain.TwoFactorChallengedEvent) error {
	return nil
}

func (e *fakeEvents) PublishPasswordResetRequested(_ context.Context, _ domain.PasswordResetRequestedEvent) error {
	return nil
}

func (e *fakeEvents) PublishPasswordChanged(_ context.Context, _ domain.PasswordChangedEvent) error {
	return nil
}

func newAuthTestRouter(t *testing.T, secureCookies bool, users ...*domain.User) *gin.Engine {
	t.Helper()

	repo := newFakeUserRepo(users...)
	auth := usecase.NewAuthService(
		usecase.NewCredentialValidator(repo), repo, nil,
		&fakeSessions{}, &fakeMailer{}, &fakeEvents{}, zap.NewNop(),
	)

	sessionCfg := config.SessionSettings{CookieName: "chatty_session", TTL: time.Hour}
	handler := NewAuthHandler(auth, nil, sessionCfg, secureCookies)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/auth"))
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestLoginCookieSecureAttribute(t *testing.T) {
	for _, tc := range []struct {
		name   string
		secure bool
	}{
		{"plaintext transport", false},
		{"secure transport", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			user := &domain.User{
				ID:           "user-1",
				Email:        "alice@example.com",
				PasswordHash: mustHashSecret(t, "correct horse"),
			}
			router := newAuthTestRouter(t, tc.secure, user)

			rr := postJSON(t, router, "/auth/login",
				`{"email":"alice@example.com","password":"correct horse"}`)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var session *http.Cookie
			for _, cookie := range rr.Result().Cookies() {
				if cookie.Name == "chatty_session" {
					session = cookie
				}
			}
			if session == nil {
				t.Fatal("session cookie was not set")
			}
			if session.Secure != tc.secure {
				t.Fatalf("expected Secure=%v, got %v", tc.secure, session.Secure)
			}
			if !session.HttpOnly {
				t.Fatal("session cookie must be HttpOnly")
			}
		})
	}
}

func TestVerifyLoginUnknownUserReturnsNotFound(t *testing.T) {
	router := newAuthTestRouter(t, false)

	rr := postJSON(t, router, "/auth/login/verify",
		`{"email":"ghost@example.com","code":"123456"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d: %s", rr.Code, rr.Body.String())
	}
}
