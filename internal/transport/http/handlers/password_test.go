package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/usecase"
)

func newPasswordTestRouter(t *testing.T, cfg config.PasswordResetSettings, users ...*domain.User) *gin.Engine {
	t.Helper()

	repo := newFakeUserRepo(users...)
	resets := usecase.NewPasswordResetService(
		cfg, repo, &fakeMailer{}, &fakeLocker{}, &fakeEvents{}, zap.NewNop(),
	)
	handler := NewPasswordHandler(resets, cfg)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/password"))
	return r
}

func TestResetPasswordLengthMessageUsesConfiguredBounds(t *testing.T) {
	now := time.Now()
	cfg := config.PasswordResetSettings{
		TokenTTL:        2 * time.Minute,
		RateLimitWindow: 2 * time.Minute,
		TokenBytes:      20,
		MinPasswordLen:  10,
		MaxPasswordLen:  64,
	}
	user := &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: mustHashSecret(t, "old-password"),
		ResetToken: &domain.ResetToken{
			Hash:      mustHashSecret(t, "tok"),
			Purpose:   domain.ResetPurposePassword,
			IssuedAt:  now,
			ExpiresAt: now.Add(2 * time.Minute),
		},
	}
	router := newPasswordTestRouter(t, cfg, user)

	rr := postJSON(t, router, "/password/reset",
		`{"email":"alice@example.com","token":"tok","new_password":"short","confirm_password":"short"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "between 10 and 64 characters") {
		t.Fatalf("length message must reflect the configured bounds, got %s", rr.Body.String())
	}
}
