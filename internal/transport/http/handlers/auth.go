package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/transport/http/middleware"
	"github.com/Erick-MC-Cedeno/chatty/internal/usecase"
)

// AuthHandler exposes login, two-factor, and session endpoints.
type AuthHandler struct {
	auth          *usecase.AuthService
	twoFactor     *usecase.TwoFactorService
	sessionCfg    config.SessionSettings
	secureCookies bool
}

// NewAuthHandler constructs AuthHandler. secureCookies marks session cookies
// Secure so they are never sent over plaintext transports.
func NewAuthHandler(auth *usecase.AuthService, twoFactor *usecase.TwoFactorService, sessionCfg config.SessionSettings, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		twoFactor:     twoFactor,
		sessionCfg:    sessionCfg,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	login := append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.login)
	verify := append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.verifyLogin)

	r.POST("/login", login...)
	r.POST("/login/verify", verify...)
	r.POST("/login/resend-code", h.resendCode)
	r.POST("/logout", middleware.RequireSession(h.auth, h.sessionCfg.CookieName), h.logout)
	r.GET("/me", middleware.RequireSession(h.auth, h.sessionCfg.CookieName), h.me)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	if result.RequiresTwoFactor {
		c.JSON(http.StatusAccepted, TwoFactorPendingResponse{
			Message:           "verification code sent",
			RequiresTwoFactor: true,
			User:              newUserSummary(result.User),
		})
		return
	}

	h.respondLoggedIn(c, result)
}

func (h *AuthHandler) verifyLogin(c *gin.Context) {
	var req VerifyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	result, err := h.auth.VerifyAndLogin(c.Request.Context(), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code))
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	h.respondLoggedIn(c, result)
}

func (h *AuthHandler) resendCode(c *gin.Context) {
	var req ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	err := h.twoFactor.Resend(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		var cooldown *usecase.CooldownActiveError
		if errors.As(err, &cooldown) {
			c.JSON(http.StatusTooManyRequests,
				NewRetryErrorResponse(c, "verification code recently sent", cooldown.RemainingSeconds()))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "could not send verification code"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

func (h *AuthHandler) logout(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "could not terminate session"))
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) me(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, SessionSummary{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *AuthHandler) respondLoggedIn(c *gin.Context, result *usecase.LoginResult) {
	h.setSessionCookie(c, result.Session.ID)

	c.JSON(http.StatusOK, LoginResponse{
		User: newUserSummary(result.User),
		Session: SessionSummary{
			ID:        result.Session.ID,
			CreatedAt: result.Session.CreatedAt,
			ExpiresAt: result.Session.ExpiresAt,
		},
	})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var cooldown *usecase.CooldownActiveError
	if errors.As(err, &cooldown) {
		c.JSON(http.StatusTooManyRequests,
			NewRetryErrorResponse(c, "verification code recently sent", cooldown.RemainingSeconds()))
		return
	}

	RespondWithMappedError(c, err, []ErrorCase{
		{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		{Err: usecase.ErrTwoFactorNotEnabled, Status: http.StatusBadRequest, Message: "two-factor authentication is not enabled"},
		{Err: usecase.ErrCodeNotFound, Status: http.StatusUnauthorized, Message: "verification code not found"},
		{Err: usecase.ErrCodeExpired, Status: http.StatusUnauthorized, Message: "verification code expired"},
		{Err: usecase.ErrCodeAlreadyValidated, Status: http.StatusUnauthorized, Message: "verification code already used"},
		{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many verification attempts"},
		{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "verification code invalid"},
		{Err: usecase.ErrSessionEstablishment, Status: http.StatusServiceUnavailable, Message: "could not establish session"},
	}, http.StatusInternalServerError, "login failed")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.sessionCfg.CookieName,
		sessionID,
		int(h.sessionCfg.TTL.Seconds()),
		"/",
		"",
		h.secureCookies,
		true,
	)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCfg.CookieName, "", -1, "/", "", h.secureCookies, true)
}
